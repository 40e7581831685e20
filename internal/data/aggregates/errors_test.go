package aggregates

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/minesafe-compliance/internal/domain/aggregates"
	"github.com/yungbote/minesafe-compliance/internal/platform/dbctx"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want domainagg.ErrorCode
	}{
		{"validation", ValidationError("bad input"), domainagg.CodeValidation},
		{"conflict", ConflictError("stale"), domainagg.CodeConflict},
		{"not found", gorm.ErrRecordNotFound, domainagg.CodeNotFound},
		{"deadline", context.DeadlineExceeded, domainagg.CodeRetryable},
		{"pg unique", &pgconn.PgError{Code: "23505"}, domainagg.CodeConflict},
		{"pg serialization", &pgconn.PgError{Code: "40001"}, domainagg.CodeRetryable},
		{"pg lock", &pgconn.PgError{Code: "55P03"}, domainagg.CodeRetryable},
		{"sqlite unique", errors.New("UNIQUE constraint failed: behavior_alert.user_id"), domainagg.CodeConflict},
		{"sqlite busy", errors.New("database is locked"), domainagg.CodeRetryable},
		{"other", errors.New("disk quota"), domainagg.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := MapError("op", tc.in)
			if !domainagg.IsCode(err, tc.want) {
				t.Fatalf("code: want=%s got=%q (%v)", tc.want, domainagg.CodeOf(err), err)
			}
		})
	}
	if MapError("op", nil) != nil {
		t.Fatalf("nil must map to nil")
	}
}

func TestMapErrorPassesAggregateErrorThrough(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeNotFound, "op", "alert not found", nil)
	out := MapError("other", in)
	if out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
}

func TestMapErrorTaggedThroughWrapping(t *testing.T) {
	err := MapError("op", fmt.Errorf("fold: %w", InvariantError("streak went negative")))
	if !domainagg.IsCode(err, domainagg.CodeInvariantViolation) {
		t.Fatalf("code: want=%s got=%q", domainagg.CodeInvariantViolation, domainagg.CodeOf(err))
	}
	if !errors.Is(err, &domainagg.Error{Code: domainagg.CodeInvariantViolation}) {
		t.Fatalf("errors.Is by code: want=true")
	}
	if errors.Is(err, domainagg.ErrNotFound) {
		t.Fatalf("errors.Is other code: want=false")
	}
}

func TestGormTxRunnerWithoutDB(t *testing.T) {
	called := false
	err := NewGormTxRunner(nil).InTx(context.Background(), func(dbctx.Context) error {
		called = true
		return nil
	})
	if called || !domainagg.IsCode(err, domainagg.CodeInternal) {
		t.Fatalf("nil db: want internal and no call, got called=%v err=%v", called, err)
	}
}
