package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/minesafe-compliance/internal/domain/aggregates"
	"github.com/yungbote/minesafe-compliance/internal/platform/dbctx"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

const defaultMaxAttempts = 3

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard

	// MaxAttempts bounds reruns of a write whose transaction failed with a
	// retryable error (serialization failure, deadlock, lock timeout).
	MaxAttempts int
	Backoff     time.Duration
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = defaultMaxAttempts
	}
	if d.Backoff <= 0 {
		d.Backoff = 20 * time.Millisecond
	}
	return d
}

// executeWrite runs fn in one transaction, reruns it on retryable store
// failures and reports the final outcome to the hooks. fn must be safe to
// rerun from scratch.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}

	var mapped error
	for attempt := 1; ; attempt++ {
		mapped = MapError(op, deps.Runner.InTx(ctx, fn))
		if mapped == nil || !domainagg.IsCode(mapped, domainagg.CodeRetryable) {
			break
		}
		deps.Hooks.IncRetry(op)
		if attempt >= deps.MaxAttempts || ctx.Err() != nil {
			break
		}
		deps.Log.Warn("aggregate write retrying", "op", op, "attempt", attempt, "error", mapped)
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(attempt) * deps.Backoff):
		}
	}

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
		if !domainagg.IsCode(mapped, domainagg.CodeValidation) && !domainagg.IsCode(mapped, domainagg.CodeNotFound) {
			deps.Log.Error("aggregate write failed", "op", op, "status", status, "error", mapped)
		}
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
