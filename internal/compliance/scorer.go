package compliance

import (
	"math"

	"github.com/yungbote/minesafe-compliance/internal/domain/safety"
)

const (
	WeightChecklist  = 0.35
	WeightVideo      = 0.20
	WeightQuiz       = 0.15
	WeightPPE        = 0.15
	WeightHazard     = 0.10
	WeightEngagement = 0.05

	// CompliantScore is the lowest score that counts toward a streak and the low risk tier.
	CompliantScore = 80
	// HighRiskBelow is the score under which a day is high risk.
	HighRiskBelow = 60
)

// SubScores are the clamped [0,100] components of a compliance score.
type SubScores struct {
	Checklist  float64 `json:"checklist"`
	Video      float64 `json:"video"`
	Quiz       float64 `json:"quiz"`
	PPE        float64 `json:"ppe"`
	Hazard     float64 `json:"hazard"`
	Engagement float64 `json:"engagement"`
}

func Components(m safety.DailyMetrics) SubScores {
	var s SubScores

	s.Checklist = m.ChecklistCompletionRate
	if s.Checklist == 0 && m.ChecklistsCompleted > 0 {
		s.Checklist = 100
	}
	s.Checklist = clamp(s.Checklist)

	if m.VideosStarted > 0 {
		s.Video = clamp(float64(m.VideosCompleted) / float64(m.VideosStarted) * 100)
	}

	s.Quiz = clamp(m.QuizAverageScore)

	if checks := m.PPEChecksPassed + m.PPEChecksFailed; checks > 0 {
		s.PPE = clamp(float64(m.PPEChecksPassed) / float64(checks) * 100)
	} else {
		s.PPE = clamp(float64(m.PPEChecksPassed) * 20)
	}

	s.Hazard = clamp(float64(m.HazardsReported) * 10)
	s.Engagement = clamp(m.EngagementMinutes * 5)
	return s
}

// Score converts metrics into the 0-100 compliance score.
func Score(m safety.DailyMetrics) int {
	s := Components(m)
	weighted := WeightChecklist*s.Checklist +
		WeightVideo*s.Video +
		WeightQuiz*s.Quiz +
		WeightPPE*s.PPE +
		WeightHazard*s.Hazard +
		WeightEngagement*s.Engagement
	return int(clamp(math.Round(weighted)))
}

// RiskFor maps a score onto its risk tier.
func RiskFor(score int) safety.RiskLevel {
	switch {
	case score < HighRiskBelow:
		return safety.RiskHigh
	case score < CompliantScore:
		return safety.RiskMedium
	default:
		return safety.RiskLow
	}
}

func clamp(v float64) float64 {
	switch {
	case v != v, v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
