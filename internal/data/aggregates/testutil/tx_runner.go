package testutil

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/minesafe-compliance/internal/data/aggregates"
	"github.com/yungbote/minesafe-compliance/internal/platform/dbctx"
)

// InjectedTxRunner runs write closures and fails them on demand.
//
// The first TransientTimes attempts run the body and then fail with
// TransientErr, which is how a lost serialization race looks to the
// aggregate. FailCommit fails every attempt that gets past that. With DB set
// each attempt is a real transaction that the failure rolls back.
type InjectedTxRunner struct {
	DB *gorm.DB

	TransientErr   error
	TransientTimes int
	FailCommit     error

	mu        sync.Mutex
	Attempts  int
	Commits   int
	Rollbacks int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.Attempts++
	injected := r.FailCommit
	if r.Attempts <= r.TransientTimes {
		injected = r.TransientErr
	}
	r.mu.Unlock()

	body := func(dbc dbctx.Context) error {
		if err := fn(dbc); err != nil {
			return err
		}
		return injected
	}
	var err error
	if r.DB != nil {
		err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return body(dbctx.Context{Ctx: ctx, Tx: tx})
		})
	} else {
		err = body(dbctx.Context{Ctx: ctx})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.Rollbacks++
		return err
	}
	r.Commits++
	return nil
}
