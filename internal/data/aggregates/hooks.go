package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/minesafe-compliance/internal/observability"
)

// Hooks receives write-path signals. Operation, conflict and retry signals
// fire for every executeWrite; the compliance signals fire only after commit.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)

	SnapshotFolded(risk string, score int)
	AlertOpened(alertType string)
	AlertAcknowledged(alertType string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}
func (noopHooks) SnapshotFolded(string, int)                     {}
func (noopHooks) AlertOpened(string)                             {}
func (noopHooks) AlertAcknowledged(string)                       {}

type metricsHooks struct {
	m *observability.Metrics
}

// NewObservabilityHooks reports aggregate signals as metrics; nil metrics
// yields no-op hooks.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return metricsHooks{m: metrics}
}

func (h metricsHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.m.ObserveAggregateOperation(strings.TrimSpace(name), strings.TrimSpace(status), dur)
}

func (h metricsHooks) IncConflict(name string) { h.m.IncAggregateConflict(strings.TrimSpace(name)) }
func (h metricsHooks) IncRetry(name string)    { h.m.IncAggregateRetry(strings.TrimSpace(name)) }

func (h metricsHooks) SnapshotFolded(risk string, score int) { h.m.ObserveSnapshotScore(risk, score) }
func (h metricsHooks) AlertOpened(alertType string)          { h.m.IncAlertOpened(alertType) }
func (h metricsHooks) AlertAcknowledged(alertType string)    { h.m.IncAlertAcknowledged(alertType) }
