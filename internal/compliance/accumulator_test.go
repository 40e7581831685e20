package compliance

import (
	"encoding/json"
	"testing"

	"github.com/yungbote/minesafe-compliance/internal/domain/safety"
)

func TestApplyQuizRunningAverage(t *testing.T) {
	m := Apply(safety.DailyMetrics{}, safety.EventQuizCompleted, map[string]any{"score": 80.0})
	if m.QuizAverageScore != 80 || m.QuizAttempts != 1 {
		t.Fatalf("after first quiz: want=80/1 got=%v/%d", m.QuizAverageScore, m.QuizAttempts)
	}
	m = Apply(m, safety.EventQuizCompleted, map[string]any{"score": 100.0})
	if m.QuizAverageScore != 90 || m.QuizAttempts != 2 {
		t.Fatalf("after second quiz: want=90/2 got=%v/%d", m.QuizAverageScore, m.QuizAttempts)
	}
	m = Apply(m, safety.EventQuizCompleted, map[string]any{"score": 71.0})
	if m.QuizAverageScore != 83.67 {
		t.Fatalf("rounded average: want=83.67 got=%v", m.QuizAverageScore)
	}
}

func TestApplyQuizScoreForms(t *testing.T) {
	cases := []struct {
		name string
		md   map[string]any
		want float64
	}{
		{"float", map[string]any{"score": 55.5}, 55.5},
		{"int", map[string]any{"score": 40}, 40},
		{"string", map[string]any{"score": "70"}, 70},
		{"json number", map[string]any{"score": json.Number("65")}, 65},
		{"missing", map[string]any{}, 0},
		{"garbage", map[string]any{"score": "abc"}, 0},
		{"over range", map[string]any{"score": 140.0}, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := Apply(safety.DailyMetrics{}, safety.EventQuizCompleted, tc.md)
			if m.QuizAverageScore != tc.want {
				t.Fatalf("quiz average: want=%v got=%v", tc.want, m.QuizAverageScore)
			}
		})
	}
}

func TestApplyChecklistFlow(t *testing.T) {
	m := Apply(safety.DailyMetrics{}, safety.EventChecklistViewed, map[string]any{"totalItems": 4.0})
	if m.TotalChecklistItems != 4 || m.ChecklistCompletionRate != 0 {
		t.Fatalf("viewed: want total=4 rate=0 got total=%d rate=%v", m.TotalChecklistItems, m.ChecklistCompletionRate)
	}
	m = Apply(m, safety.EventChecklistItemCompleted, map[string]any{"completed": true})
	if m.ChecklistItemsCompleted != 1 || m.ChecklistCompletionRate != 25 {
		t.Fatalf("item: want items=1 rate=25 got items=%d rate=%v", m.ChecklistItemsCompleted, m.ChecklistCompletionRate)
	}
	m = Apply(m, safety.EventChecklistItemCompleted, map[string]any{"completed": false})
	if m.ChecklistItemsCompleted != 1 {
		t.Fatalf("falsy completed must not count: got=%d", m.ChecklistItemsCompleted)
	}
	m = Apply(m, safety.EventChecklistItemCompleted, map[string]any{"completed": true, "totalItems": 3.0})
	if m.TotalChecklistItems != 3 || m.ChecklistCompletionRate != 67 {
		t.Fatalf("late total: want total=3 rate=67 got total=%d rate=%v", m.TotalChecklistItems, m.ChecklistCompletionRate)
	}
	m = Apply(m, safety.EventChecklistViewed, map[string]any{})
	if m.TotalChecklistItems != 3 {
		t.Fatalf("viewed without total keeps prior: got=%d", m.TotalChecklistItems)
	}
	m = Apply(m, safety.EventChecklistCompleted, nil)
	if m.ChecklistsCompleted != 1 || m.ChecklistItemsCompleted != 3 || m.ChecklistCompletionRate != 100 {
		t.Fatalf("completed forces items: got completed=%d items=%d rate=%v", m.ChecklistsCompleted, m.ChecklistItemsCompleted, m.ChecklistCompletionRate)
	}
}

func TestApplyChecklistCompletedWithoutTotal(t *testing.T) {
	m := Apply(safety.DailyMetrics{}, safety.EventChecklistCompleted, nil)
	if m.ChecklistCompletionRate != 100 || m.ChecklistItemsCompleted != 0 {
		t.Fatalf("want rate=100 items=0 got rate=%v items=%d", m.ChecklistCompletionRate, m.ChecklistItemsCompleted)
	}
}

func TestApplyCompletionRateStaysZeroWithoutChecklists(t *testing.T) {
	events := []struct {
		t  safety.EventType
		md map[string]any
	}{
		{safety.EventAppLogin, nil},
		{safety.EventAppLogout, nil},
		{safety.EventPPEConfirmed, nil},
		{safety.EventPPESkipped, nil},
		{safety.EventVideoStarted, nil},
		{safety.EventVideoProgress, map[string]any{"deltaSeconds": 30.0}},
		{safety.EventVideoCompleted, map[string]any{"durationSeconds": 120.0}},
		{safety.EventHazardReported, nil},
		{safety.EventInstructionAcknowledged, nil},
		{safety.EventQuizCompleted, map[string]any{"score": 90.0}},
		{safety.EventNudgeAcknowledged, nil},
		{safety.EventChecklistItemCompleted, map[string]any{"completed": false}},
		{safety.EventChecklistViewed, map[string]any{"totalItems": 0.0}},
		{safety.EventType("future_event"), map[string]any{"x": 1}},
	}
	m := safety.DailyMetrics{}
	for _, ev := range events {
		m = Apply(m, ev.t, ev.md)
		if m.TotalChecklistItems != 0 || m.ChecklistsCompleted != 0 {
			t.Fatalf("%s: unexpected checklist counters %+v", ev.t, m)
		}
		if m.ChecklistCompletionRate != 0 {
			t.Fatalf("%s: rate want=0 got=%v", ev.t, m.ChecklistCompletionRate)
		}
	}
}

func TestApplyVideoAndCounters(t *testing.T) {
	m := safety.DailyMetrics{}
	m = Apply(m, safety.EventVideoStarted, nil)
	m = Apply(m, safety.EventVideoProgress, map[string]any{"deltaSeconds": 90.0})
	m = Apply(m, safety.EventVideoProgress, nil)
	m = Apply(m, safety.EventVideoCompleted, map[string]any{"durationSeconds": 30.0})
	m = Apply(m, safety.EventAppLogin, nil)
	m = Apply(m, safety.EventHazardReported, nil)
	m = Apply(m, safety.EventInstructionAcknowledged, nil)
	m = Apply(m, safety.EventNudgeAcknowledged, nil)

	if m.VideosStarted != 1 || m.VideosCompleted != 1 || m.VideoMilestones != 2 {
		t.Fatalf("video counters: got %+v", m)
	}
	if m.VideoWatchSeconds != 120 || m.EngagementMinutes != 2 {
		t.Fatalf("watch: want=120s/2min got=%vs/%vmin", m.VideoWatchSeconds, m.EngagementMinutes)
	}
	if m.LoginCount != 1 || m.HazardsReported != 1 || m.Acknowledgements != 1 || m.NudgesAcknowledged != 1 {
		t.Fatalf("counters: got %+v", m)
	}
}

func TestApplyIgnoresNonPositiveAmounts(t *testing.T) {
	m := Apply(safety.DailyMetrics{}, safety.EventVideoProgress, map[string]any{"deltaSeconds": -60.0})
	if m.VideoWatchSeconds != 0 || m.EngagementMinutes != 0 {
		t.Fatalf("negative delta must be ignored: got %+v", m)
	}
	m = Apply(m, safety.EventVideoCompleted, map[string]any{"durationSeconds": 0})
	if m.VideoWatchSeconds != 0 || m.VideosCompleted != 1 {
		t.Fatalf("zero duration must be ignored: got %+v", m)
	}

	m = Apply(safety.DailyMetrics{}, safety.EventChecklistViewed, map[string]any{"totalItems": 8})
	m = Apply(m, safety.EventChecklistViewed, map[string]any{"totalItems": 0})
	m = Apply(m, safety.EventChecklistItemCompleted, map[string]any{"completed": true, "totalItems": -3})
	if m.TotalChecklistItems != 8 {
		t.Fatalf("total items: want=8 got=%d", m.TotalChecklistItems)
	}
}

func TestApplyUnknownTypeIsPassThrough(t *testing.T) {
	in := safety.DailyMetrics{LoginCount: 3, ChecklistCompletionRate: 40}
	out := Apply(in, safety.EventType("shift_swapped"), map[string]any{"score": 10})
	if out != in {
		t.Fatalf("unknown type changed metrics: want=%+v got=%+v", in, out)
	}
}
