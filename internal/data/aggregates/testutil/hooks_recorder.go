package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/minesafe-compliance/internal/data/aggregates"
)

// HooksRecorder keeps every aggregate signal for assertions.
type HooksRecorder struct {
	mu sync.Mutex

	Operations   []OperationEvent
	Conflicts    []string
	Retries      []string
	Folds        []FoldEvent
	Opened       []string
	Acknowledged []string
}

type OperationEvent struct {
	Name     string
	Status   string
	Duration time.Duration
}

type FoldEvent struct {
	Risk  string
	Score int
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = append(h.Operations, OperationEvent{Name: name, Status: status, Duration: dur})
}

func (h *HooksRecorder) IncConflict(name string) { h.record(&h.Conflicts, name) }
func (h *HooksRecorder) IncRetry(name string)    { h.record(&h.Retries, name) }

func (h *HooksRecorder) SnapshotFolded(risk string, score int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Folds = append(h.Folds, FoldEvent{Risk: risk, Score: score})
}

func (h *HooksRecorder) AlertOpened(alertType string)       { h.record(&h.Opened, alertType) }
func (h *HooksRecorder) AlertAcknowledged(alertType string) { h.record(&h.Acknowledged, alertType) }

// Statuses lists the recorded operation statuses for name, in order.
func (h *HooksRecorder) Statuses(name string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, op := range h.Operations {
		if op.Name == name {
			out = append(out, op.Status)
		}
	}
	return out
}

func (h *HooksRecorder) record(dst *[]string, v string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	*dst = append(*dst, v)
}
