package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/minesafe-compliance/internal/data/aggregates"
	"github.com/yungbote/minesafe-compliance/internal/data/repos"
	repotest "github.com/yungbote/minesafe-compliance/internal/data/repos/testutil"
	types "github.com/yungbote/minesafe-compliance/internal/domain"
	domainagg "github.com/yungbote/minesafe-compliance/internal/domain/aggregates"
	"github.com/yungbote/minesafe-compliance/internal/realtime"
)

type env struct {
	db        *gorm.DB
	users     repos.UserRepo
	events    repos.EngagementEventRepo
	snapshots repos.DailySnapshotRepo
	alerts    repos.BehaviorAlertRepo
	agg       domainagg.ComplianceAggregate
	emitter   *recordingEmitter
	notifier  AlertNotifier
	now       time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	e := &env{
		db:        db,
		users:     repos.NewUserRepo(db, log),
		events:    repos.NewEngagementEventRepo(db, log),
		snapshots: repos.NewDailySnapshotRepo(db, log),
		alerts:    repos.NewBehaviorAlertRepo(db, log),
		emitter:   &recordingEmitter{},
		now:       time.Now().UTC(),
	}
	e.agg = aggregates.NewComplianceAggregate(aggregates.ComplianceAggregateDeps{
		DB:        db,
		Log:       log,
		Snapshots: e.snapshots,
		Alerts:    e.alerts,
		Now:       e.clock,
	})
	e.notifier = NewAlertNotifier(e.emitter)
	return e
}

func (e *env) clock() time.Time { return e.now }

func (e *env) seedUser(t *testing.T, name string, role types.Role) *types.User {
	t.Helper()
	return repotest.SeedUser(t, context.Background(), e.db, name, role)
}

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (r *recordingEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingEmitter) byChannel(channel string) []realtime.SSEMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []realtime.SSEMessage
	for _, m := range r.msgs {
		if m.Channel == channel {
			out = append(out, m)
		}
	}
	return out
}

type fakeAuditor struct {
	mu    sync.Mutex
	err   error
	dates []string
	ids   []string
}

func (f *fakeAuditor) IndexEvent(_ context.Context, ev *types.EngagementEvent, snapshotDate string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dates = append(f.dates, snapshotDate)
	f.ids = append(f.ids, ev.ID.String())
	return f.err
}

type failingAggregate struct {
	domainagg.ComplianceAggregate
}

func (failingAggregate) FoldEvent(context.Context, domainagg.FoldEventInput) (domainagg.FoldEventResult, error) {
	return domainagg.FoldEventResult{}, domainagg.Wrap(domainagg.CodeRetryable, "compliance.fold_event", errors.New("database is locked"))
}
