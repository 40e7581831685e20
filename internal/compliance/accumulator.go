package compliance

import (
	"math"

	"github.com/yungbote/minesafe-compliance/internal/domain/safety"
)

// Apply folds one event into the day's metrics and returns the result.
// Unknown event types leave the counters untouched.
func Apply(m safety.DailyMetrics, t safety.EventType, md map[string]any) safety.DailyMetrics {
	switch t {
	case safety.EventAppLogin:
		m.LoginCount++
	case safety.EventChecklistViewed:
		if total, ok := positive(md, safety.MetaTotalItems); ok {
			m.TotalChecklistItems = int(total)
		}
	case safety.EventChecklistItemCompleted:
		if truthy(md, safety.MetaCompleted) {
			m.ChecklistItemsCompleted++
		}
		if total, ok := positive(md, safety.MetaTotalItems); ok {
			m.TotalChecklistItems = int(total)
		}
	case safety.EventChecklistCompleted:
		m.ChecklistsCompleted++
		// a completed checklist counts every item as done
		if m.TotalChecklistItems > 0 {
			m.ChecklistItemsCompleted = m.TotalChecklistItems
		}
	case safety.EventPPEConfirmed:
		m.PPEChecksPassed++
	case safety.EventPPESkipped:
		m.PPEChecksFailed++
	case safety.EventVideoStarted:
		m.VideosStarted++
	case safety.EventVideoProgress:
		m.VideoMilestones++
		if secs, ok := positive(md, safety.MetaDeltaSeconds); ok {
			m.VideoWatchSeconds += secs
			m.EngagementMinutes += secs / 60
		}
	case safety.EventVideoCompleted:
		m.VideosCompleted++
		if secs, ok := positive(md, safety.MetaDurationSeconds); ok {
			m.VideoWatchSeconds += secs
			m.EngagementMinutes += secs / 60
		}
	case safety.EventHazardReported:
		m.HazardsReported++
	case safety.EventInstructionAcknowledged:
		m.Acknowledgements++
	case safety.EventNudgeAcknowledged:
		m.NudgesAcknowledged++
	case safety.EventQuizCompleted:
		score, _ := number(md, safety.MetaScore)
		score = clamp(score)
		if m.QuizAttempts == 0 {
			m.QuizAverageScore = score
		} else {
			n := float64(m.QuizAttempts)
			m.QuizAverageScore = (m.QuizAverageScore*n + score) / (n + 1)
		}
		m.QuizAverageScore = round2(m.QuizAverageScore)
		m.QuizAttempts++
	}

	switch {
	case m.TotalChecklistItems > 0:
		m.ChecklistCompletionRate = clamp(math.Round(float64(m.ChecklistItemsCompleted) / float64(m.TotalChecklistItems) * 100))
	case m.ChecklistsCompleted > 0:
		m.ChecklistCompletionRate = 100
	}
	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
