package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	repotest "github.com/yungbote/minesafe-compliance/internal/data/repos/testutil"
	types "github.com/yungbote/minesafe-compliance/internal/domain"
	"github.com/yungbote/minesafe-compliance/internal/platform/dbctx"
)

func TestInjectedTxRunnerCounts(t *testing.T) {
	bodyErr := errors.New("boom")
	cases := []struct {
		name          string
		runner        *InjectedTxRunner
		body          error
		wantErr       error
		wantCommits   int
		wantRollbacks int
	}{
		{name: "success", runner: &InjectedTxRunner{}, wantCommits: 1},
		{name: "body error", runner: &InjectedTxRunner{}, body: bodyErr, wantErr: bodyErr, wantRollbacks: 1},
		{name: "commit failure", runner: &InjectedTxRunner{FailCommit: bodyErr}, wantErr: bodyErr, wantRollbacks: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			err := tc.runner.InTx(context.Background(), func(dbctx.Context) error {
				calls++
				return tc.body
			})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err: want=%v got=%v", tc.wantErr, err)
			}
			if calls != 1 || tc.runner.Attempts != 1 {
				t.Fatalf("calls/attempts: want=1/1 got=%d/%d", calls, tc.runner.Attempts)
			}
			if tc.runner.Commits != tc.wantCommits || tc.runner.Rollbacks != tc.wantRollbacks {
				t.Fatalf("commits/rollbacks: want=%d/%d got=%d/%d", tc.wantCommits, tc.wantRollbacks, tc.runner.Commits, tc.runner.Rollbacks)
			}
		})
	}
}

func TestInjectedTxRunnerTransientThenSuccess(t *testing.T) {
	transient := errors.New("could not serialize access")
	r := &InjectedTxRunner{TransientErr: transient, TransientTimes: 2}
	noop := func(dbctx.Context) error { return nil }

	for i := 0; i < 2; i++ {
		if err := r.InTx(context.Background(), noop); !errors.Is(err, transient) {
			t.Fatalf("attempt %d: want transient got=%v", i+1, err)
		}
	}
	if err := r.InTx(context.Background(), noop); err != nil {
		t.Fatalf("attempt 3: want=nil got=%v", err)
	}
	if r.Commits != 1 || r.Rollbacks != 2 {
		t.Fatalf("commits/rollbacks: want=1/2 got=%d/%d", r.Commits, r.Rollbacks)
	}
}

func TestInjectedTxRunnerRollsBackRealTx(t *testing.T) {
	db := repotest.DB(t)
	commitErr := errors.New("commit failed")
	r := &InjectedTxRunner{DB: db, FailCommit: commitErr}

	id := uuid.New()
	err := r.InTx(context.Background(), func(dbc dbctx.Context) error {
		return dbc.Tx.Create(&types.User{ID: id, Name: "Asha", Email: "asha@mine.example", Password: "x", Role: types.RoleWorker}).Error
	})
	if !errors.Is(err, commitErr) {
		t.Fatalf("err: want=%v got=%v", commitErr, err)
	}
	var n int64
	if err := db.Model(&types.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("rolled back row visible: want=0 got=%d", n)
	}
}
