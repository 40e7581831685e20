package aggregates

import (
	"context"
	"testing"
	"time"

	domainagg "github.com/yungbote/minesafe-compliance/internal/domain/aggregates"
	"github.com/yungbote/minesafe-compliance/internal/platform/dbctx"
)

func TestExecuteWriteObservesSuccessStatus(t *testing.T) {
	hooks := &spyHooks{}

	err := executeWrite(context.Background(), BaseDeps{
		Runner: spyTxRunner,
		Hooks:  hooks,
	}, "compliance.test.success", func(_ dbctx.Context) error { return nil })
	if err != nil {
		t.Fatalf("executeWrite success: %v", err)
	}
	if len(hooks.Operations) != 1 {
		t.Fatalf("operations count: want=1 got=%d", len(hooks.Operations))
	}
	if hooks.Operations[0].Status != "success" {
		t.Fatalf("operation status: want=success got=%s", hooks.Operations[0].Status)
	}
}

func TestExecuteWriteObservesValidationStatus(t *testing.T) {
	hooks := &spyHooks{}
	calls := 0

	err := executeWrite(context.Background(), BaseDeps{
		Runner: spyTxRunner,
		Hooks:  hooks,
	}, "compliance.test.validation", func(_ dbctx.Context) error {
		calls++
		return ValidationError("unsupported event type")
	})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation code, got=%v", err)
	}
	if calls != 1 {
		t.Fatalf("validation must not rerun: want=1 got=%d", calls)
	}
	if len(hooks.Operations) != 1 || hooks.Operations[0].Status != string(domainagg.CodeValidation) {
		t.Fatalf("unexpected op status: %+v", hooks.Operations)
	}
}

func TestExecuteWriteTracksConflictAndRetryCounters(t *testing.T) {
	t.Run("conflict", func(t *testing.T) {
		hooks := &spyHooks{}
		err := executeWrite(context.Background(), BaseDeps{
			Runner: spyTxRunner,
			Hooks:  hooks,
		}, "compliance.test.conflict", func(_ dbctx.Context) error {
			return ConflictError("alert already acknowledged")
		})
		if !domainagg.IsCode(err, domainagg.CodeConflict) {
			t.Fatalf("expected conflict code, got=%v", err)
		}
		if len(hooks.Conflicts) != 1 || hooks.Conflicts[0] != "compliance.test.conflict" {
			t.Fatalf("conflict hooks: %+v", hooks.Conflicts)
		}
		if len(hooks.Retries) != 0 {
			t.Fatalf("retry hooks should be empty, got=%+v", hooks.Retries)
		}
	})

	t.Run("retryable exhausts attempts", func(t *testing.T) {
		hooks := &spyHooks{}
		calls := 0
		err := executeWrite(context.Background(), BaseDeps{
			Runner:      spyTxRunner,
			Hooks:       hooks,
			MaxAttempts: 3,
			Backoff:     time.Millisecond,
		}, "compliance.test.retry", func(_ dbctx.Context) error {
			calls++
			return RetryableError("temporary lock timeout")
		})
		if !domainagg.IsCode(err, domainagg.CodeRetryable) {
			t.Fatalf("expected retryable code, got=%v", err)
		}
		if calls != 3 {
			t.Fatalf("attempts: want=3 got=%d", calls)
		}
		if len(hooks.Retries) != 3 {
			t.Fatalf("retry hooks: want=3 got=%+v", hooks.Retries)
		}
		if len(hooks.Operations) != 1 || hooks.Operations[0].Status != string(domainagg.CodeRetryable) {
			t.Fatalf("unexpected op status: %+v", hooks.Operations)
		}
	})

	t.Run("retryable then success", func(t *testing.T) {
		hooks := &spyHooks{}
		calls := 0
		err := executeWrite(context.Background(), BaseDeps{
			Runner:  spyTxRunner,
			Hooks:   hooks,
			Backoff: time.Millisecond,
		}, "compliance.test.retry_ok", func(_ dbctx.Context) error {
			calls++
			if calls == 1 {
				return RetryableError("deadlock detected")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("executeWrite: %v", err)
		}
		if calls != 2 || len(hooks.Retries) != 1 {
			t.Fatalf("want 2 calls and 1 retry, got calls=%d retries=%d", calls, len(hooks.Retries))
		}
		if hooks.Operations[0].Status != "success" {
			t.Fatalf("status: want=success got=%s", hooks.Operations[0].Status)
		}
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := executeWrite(ctx, BaseDeps{Runner: spyTxRunner, Hooks: &spyHooks{}}, "compliance.test.cancel", func(_ dbctx.Context) error {
			calls++
			return ctx.Err()
		})
		if !domainagg.IsCode(err, domainagg.CodeRetryable) || calls != 1 {
			t.Fatalf("want one retryable attempt, got calls=%d err=%v", calls, err)
		}
	})
}

func TestAggregateErrorStatus(t *testing.T) {
	if got := aggregateErrorStatus(nil); got != "success" {
		t.Fatalf("nil status: want=success got=%s", got)
	}
	if got := aggregateErrorStatus(InvariantError("x")); got != string(domainagg.CodeInvariantViolation) {
		t.Fatalf("invariant status: got=%s", got)
	}
	if got := aggregateErrorStatus(ConflictError("x")); got != string(domainagg.CodeConflict) {
		t.Fatalf("conflict status: got=%s", got)
	}
	if got := aggregateErrorStatus(context.DeadlineExceeded); got != string(domainagg.CodeRetryable) {
		t.Fatalf("deadline status: got=%s", got)
	}
}

// spyTxRunner runs closures without a database.
var spyTxRunner = TxFunc(func(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return fn(dbctx.Context{Ctx: ctx})
})

// spyHooks records write-path signals; the compliance signals are no-ops.
type spyHooks struct {
	noopHooks
	Operations []spyOperation
	Conflicts  []string
	Retries    []string
}

type spyOperation struct {
	Name   string
	Status string
}

func (h *spyHooks) ObserveOperation(name, status string, _ time.Duration) {
	h.Operations = append(h.Operations, spyOperation{Name: name, Status: status})
}

func (h *spyHooks) IncConflict(name string) {
	h.Conflicts = append(h.Conflicts, name)
}

func (h *spyHooks) IncRetry(name string) {
	h.Retries = append(h.Retries, name)
}
