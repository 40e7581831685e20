package compliance

import (
	"github.com/yungbote/minesafe-compliance/internal/domain/safety"
)

// Outcome is everything one event changes on the day's snapshot.
type Outcome struct {
	Metrics safety.DailyMetrics
	Score   int
	Risk    safety.RiskLevel
	Streak  Streak
}

// PriorLookup loads the previous day's snapshot; a nil snapshot with nil error means none.
type PriorLookup func(dateKey string) (*safety.DailyComplianceSnapshot, error)

// Fold applies one event to snap's state and derives score, risk and streak.
// snap is not modified. prior is called at most once.
func Fold(snap *safety.DailyComplianceSnapshot, t safety.EventType, md map[string]any, prior PriorLookup) (Outcome, error) {
	var (
		metrics safety.DailyMetrics
		current Streak
		date    string
	)
	if snap != nil {
		metrics = snap.Metrics
		current = Streak{Count: snap.StreakCount, Seeded: snap.StreakSeeded}
		date = snap.Date
	}
	metrics = Apply(metrics, t, md)
	score := Score(metrics)

	var prev *safety.DailyComplianceSnapshot
	if NeedsPrior(current, score) && prior != nil && date != "" {
		p, err := prior(PreviousDateKey(date))
		if err != nil {
			return Outcome{}, err
		}
		prev = p
	}
	return Outcome{
		Metrics: metrics,
		Score:   score,
		Risk:    RiskFor(score),
		Streak:  NextStreak(current, score, prev),
	}, nil
}

// AlertSpec describes an alert a folded event should ensure is open.
type AlertSpec struct {
	Type     safety.AlertType
	Severity safety.Severity
	Message  string
	Metadata map[string]any
}

const (
	MessageLowCompliance    = "Compliance score dropped below 60."
	MessagePPENonCompliance = "Repeated PPE confirmations were skipped."
)

// Triggers lists the alerts an event with outcome o must ensure.
func Triggers(t safety.EventType, o Outcome) []AlertSpec {
	var out []AlertSpec
	if o.Risk == safety.RiskHigh {
		out = append(out, AlertSpec{
			Type:     safety.AlertLowCompliance,
			Severity: safety.SeverityHigh,
			Message:  MessageLowCompliance,
			Metadata: map[string]any{"complianceScore": o.Score},
		})
	}
	if t == safety.EventPPESkipped {
		out = append(out, AlertSpec{
			Type:     safety.AlertPPENonCompliance,
			Severity: safety.SeverityMedium,
			Message:  MessagePPENonCompliance,
			Metadata: map[string]any{"totalSkipped": o.Metrics.PPEChecksFailed},
		})
	}
	return out
}
