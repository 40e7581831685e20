package compliance

import "github.com/yungbote/minesafe-compliance/internal/domain/safety"

// Streak is the continuity state carried on a snapshot.
type Streak struct {
	Count  int
	Seeded bool
}

// NextStreak recomputes the streak after an event scored the day at score.
// prior is the previous calendar day's snapshot, nil when there is none.
// It is consulted only when the day first becomes compliant.
func NextStreak(current Streak, score int, prior *safety.DailyComplianceSnapshot) Streak {
	if score < CompliantScore {
		return Streak{Count: 0, Seeded: false}
	}
	if current.Seeded {
		return current
	}
	priorCount := 0
	if prior != nil && prior.ComplianceScore >= CompliantScore {
		priorCount = prior.StreakCount
	}
	return Streak{Count: priorCount + 1, Seeded: true}
}

// NeedsPrior reports whether NextStreak would read the prior day for this score.
func NeedsPrior(current Streak, score int) bool {
	return score >= CompliantScore && !current.Seeded
}
