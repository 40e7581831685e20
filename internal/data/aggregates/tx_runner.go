package aggregates

import (
	"context"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/minesafe-compliance/internal/domain/aggregates"
	"github.com/yungbote/minesafe-compliance/internal/platform/dbctx"
)

// TxRunner opens the transaction a write closure runs in. The closure sees
// the tx through dbc and must not commit or roll back itself.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

// TxFunc adapts a plain function to TxRunner.
type TxFunc func(ctx context.Context, fn func(dbc dbctx.Context) error) error

func (f TxFunc) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error { return f(ctx, fn) }

// NewGormTxRunner runs closures in db transactions; a nil db yields a runner
// that fails every write with CodeInternal.
func NewGormTxRunner(db *gorm.DB) TxRunner {
	return TxFunc(func(ctx context.Context, fn func(dbc dbctx.Context) error) error {
		if fn == nil {
			return nil
		}
		if db == nil {
			return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "no database configured", nil)
		}
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(dbctx.Context{Ctx: ctx, Tx: tx})
		})
	})
}
