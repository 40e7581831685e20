package aggregates_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/minesafe-compliance/internal/data/aggregates"
	aggtest "github.com/yungbote/minesafe-compliance/internal/data/aggregates/testutil"
	"github.com/yungbote/minesafe-compliance/internal/data/repos"
	repotest "github.com/yungbote/minesafe-compliance/internal/data/repos/testutil"
	types "github.com/yungbote/minesafe-compliance/internal/domain"
	domainagg "github.com/yungbote/minesafe-compliance/internal/domain/aggregates"
	"github.com/yungbote/minesafe-compliance/internal/platform/dbctx"
)

type fixture struct {
	db        *gorm.DB
	agg       domainagg.ComplianceAggregate
	snapshots repos.DailySnapshotRepo
	alerts    repos.BehaviorAlertRepo
	hooks     *aggtest.HooksRecorder
	worker    *types.User
}

func newFixture(t *testing.T, runner aggregates.TxRunner) *fixture {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	f := &fixture{
		db:        db,
		snapshots: repos.NewDailySnapshotRepo(db, log),
		alerts:    repos.NewBehaviorAlertRepo(db, log),
		hooks:     &aggtest.HooksRecorder{},
	}
	f.worker = repotest.SeedUser(t, context.Background(), db, "Asha Rao", types.RoleWorker)
	f.agg = aggregates.NewComplianceAggregate(aggregates.ComplianceAggregateDeps{
		DB:        db,
		Log:       log,
		Snapshots: f.snapshots,
		Alerts:    f.alerts,
		Runner:    runner,
		Hooks:     f.hooks,
	})
	return f
}

func (f *fixture) fold(t *testing.T, typ types.EventType, md map[string]any, at time.Time) domainagg.FoldEventResult {
	t.Helper()
	res, err := f.agg.FoldEvent(context.Background(), domainagg.FoldEventInput{
		UserID:     f.worker.ID,
		Type:       typ,
		Metadata:   md,
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("FoldEvent(%s): %v", typ, err)
	}
	return res
}

func (f *fixture) openAlerts(t *testing.T) []*types.BehaviorAlert {
	t.Helper()
	rows, err := f.alerts.ListOpen(dbctx.Background(context.Background()), 0, nil)
	if err != nil {
		t.Fatalf("ListOpen: %v", err)
	}
	return rows
}

func TestFoldEventSingleLowQuizOpensLowComplianceAlert(t *testing.T) {
	f := newFixture(t, nil)
	at := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	res := f.fold(t, types.EventQuizCompleted, map[string]any{"score": 40}, at)

	snap := res.Snapshot
	if snap.Date != "2024-03-10" {
		t.Fatalf("date: want=2024-03-10 got=%s", snap.Date)
	}
	if snap.Metrics.QuizAttempts != 1 || snap.Metrics.QuizAverageScore != 40 {
		t.Fatalf("quiz metrics: got=%+v", snap.Metrics)
	}
	if snap.ComplianceScore != 6 || snap.RiskLevel != types.RiskHigh {
		t.Fatalf("score/risk: want=6/high got=%d/%s", snap.ComplianceScore, snap.RiskLevel)
	}
	if snap.LastEventType != types.EventQuizCompleted || snap.LastEventAt == nil || !snap.LastEventAt.Equal(at) {
		t.Fatalf("last event: got type=%s at=%v", snap.LastEventType, snap.LastEventAt)
	}

	if len(res.Opened) != 1 || res.Opened[0].Type != types.AlertLowCompliance {
		t.Fatalf("opened: want one low_compliance got=%+v", res.Opened)
	}
	alert := res.Opened[0]
	if alert.Severity != types.SeverityHigh || alert.Message != "Compliance score dropped below 60." {
		t.Fatalf("alert fields: got=%+v", alert)
	}
	var md map[string]any
	if err := json.Unmarshal(alert.Metadata, &md); err != nil {
		t.Fatalf("alert metadata: %v", err)
	}
	if md["complianceScore"] != float64(6) {
		t.Fatalf("complianceScore: want=6 got=%v", md["complianceScore"])
	}

	stored, err := f.snapshots.GetByUserAndDate(dbctx.Background(context.Background()), f.worker.ID, "2024-03-10")
	if err != nil || stored == nil || stored.ComplianceScore != 6 {
		t.Fatalf("persisted snapshot: got=%v err=%v", stored, err)
	}
}

func TestFoldEventRepeatedPPESkipsDedupAlerts(t *testing.T) {
	f := newFixture(t, nil)
	at := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	first := f.fold(t, types.EventPPESkipped, nil, at)
	if len(first.Opened) != 2 {
		t.Fatalf("first skip: want low_compliance and ppe_non_compliance, got=%d", len(first.Opened))
	}
	second := f.fold(t, types.EventPPESkipped, nil, at.Add(time.Minute))
	if len(second.Opened) != 0 {
		t.Fatalf("second skip must not open new alerts, got=%+v", second.Opened)
	}
	if second.Snapshot.Metrics.PPEChecksFailed != 2 {
		t.Fatalf("PPEChecksFailed: want=2 got=%d", second.Snapshot.Metrics.PPEChecksFailed)
	}

	open := f.openAlerts(t)
	ppe := 0
	for _, a := range open {
		if a.Type == types.AlertPPENonCompliance {
			ppe++
			var md map[string]any
			_ = json.Unmarshal(a.Metadata, &md)
			if md["totalSkipped"] != float64(1) {
				t.Fatalf("first writer wins: want totalSkipped=1 got=%v", md["totalSkipped"])
			}
		}
	}
	if ppe != 1 || len(open) != 2 {
		t.Fatalf("open alerts: want 2 total / 1 ppe, got %d / %d", len(open), ppe)
	}
	if len(f.hooks.Folds) != 2 || len(f.hooks.Opened) != 2 {
		t.Fatalf("hooks: want folds=2 opened=2 got folds=%d opened=%d", len(f.hooks.Folds), len(f.hooks.Opened))
	}
}

func compliantDay(t *testing.T, f *fixture, day time.Time) domainagg.FoldEventResult {
	t.Helper()
	f.fold(t, types.EventChecklistCompleted, nil, day)
	f.fold(t, types.EventVideoStarted, nil, day.Add(time.Minute))
	f.fold(t, types.EventVideoCompleted, map[string]any{"durationSeconds": 60}, day.Add(2*time.Minute))
	f.fold(t, types.EventQuizCompleted, map[string]any{"score": 100}, day.Add(3*time.Minute))
	return f.fold(t, types.EventPPEConfirmed, nil, day.Add(4*time.Minute))
}

func TestFoldEventStreakAcrossDays(t *testing.T) {
	f := newFixture(t, nil)
	day1 := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	r1 := compliantDay(t, f, day1)
	if r1.Snapshot.ComplianceScore != 85 || r1.Snapshot.StreakCount != 1 || !r1.Snapshot.StreakSeeded {
		t.Fatalf("day1: want score=85 streak=1 seeded, got=%d/%d/%v", r1.Snapshot.ComplianceScore, r1.Snapshot.StreakCount, r1.Snapshot.StreakSeeded)
	}

	r2 := compliantDay(t, f, day2)
	if r2.Snapshot.Date != "2024-03-11" || r2.Snapshot.StreakCount != 2 {
		t.Fatalf("day2: want streak=2 got=%d on %s", r2.Snapshot.StreakCount, r2.Snapshot.Date)
	}

	drop := f.fold(t, types.EventPPESkipped, nil, day2.Add(time.Hour))
	if drop.Snapshot.ComplianceScore != 78 || drop.Snapshot.StreakCount != 0 || drop.Snapshot.StreakSeeded {
		t.Fatalf("drop: want 78/0/unseeded got=%d/%d/%v", drop.Snapshot.ComplianceScore, drop.Snapshot.StreakCount, drop.Snapshot.StreakSeeded)
	}
	back := f.fold(t, types.EventPPEConfirmed, nil, day2.Add(2*time.Hour))
	if back.Snapshot.ComplianceScore != 80 || back.Snapshot.StreakCount != 2 {
		t.Fatalf("recovery: want 80/2 got=%d/%d", back.Snapshot.ComplianceScore, back.Snapshot.StreakCount)
	}

	day1Snap, err := f.snapshots.GetByUserAndDate(dbctx.Background(context.Background()), f.worker.ID, "2024-03-10")
	if err != nil || day1Snap.StreakCount != 1 {
		t.Fatalf("day1 untouched by day2 events: got=%v err=%v", day1Snap, err)
	}
}

func TestFoldEventPriorDayBelowThresholdStartsFresh(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	repotest.SeedSnapshot(t, ctx, f.db, f.worker.ID, "2024-03-09", 70, types.RiskMedium, 4)

	r := compliantDay(t, f, time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC))
	if r.Snapshot.StreakCount != 1 {
		t.Fatalf("streak: want=1 got=%d", r.Snapshot.StreakCount)
	}
}

func TestFoldEventRejectsUnsupportedType(t *testing.T) {
	f := newFixture(t, nil)
	if c := f.agg.Contract(); !c.AggregateOwnsTx || c.LockScope != domainagg.LockScopeUserDay {
		t.Fatalf("contract: want owns_tx=true lock_scope=user_day got=%+v", c)
	}
	_, err := f.agg.FoldEvent(context.Background(), domainagg.FoldEventInput{
		UserID: f.worker.ID,
		Type:   types.EventType("coffee_break"),
	})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("want validation, got=%v", err)
	}
}

func TestFoldEventCommitFailureLeavesNoPartialState(t *testing.T) {
	db := repotest.DB(t)
	runner := &aggtest.InjectedTxRunner{DB: db, FailCommit: errors.New("commit failed")}
	log := repotest.Logger(t)
	hooks := &aggtest.HooksRecorder{}
	snapshots := repos.NewDailySnapshotRepo(db, log)
	alerts := repos.NewBehaviorAlertRepo(db, log)
	worker := repotest.SeedUser(t, context.Background(), db, "Asha Rao", types.RoleWorker)

	agg := aggregates.NewComplianceAggregate(aggregates.ComplianceAggregateDeps{
		DB: db, Log: log, Snapshots: snapshots, Alerts: alerts, Runner: runner, Hooks: hooks,
	})
	_, err := agg.FoldEvent(context.Background(), domainagg.FoldEventInput{
		UserID:     worker.ID,
		Type:       types.EventQuizCompleted,
		Metadata:   map[string]any{"score": 40},
		OccurredAt: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
	})
	if !domainagg.IsCode(err, domainagg.CodeInternal) {
		t.Fatalf("want internal error, got=%v", err)
	}
	if runner.Rollbacks != 1 || runner.Commits != 0 {
		t.Fatalf("tx counters: want commit=0 rollback=1 got commit=%d rollback=%d", runner.Commits, runner.Rollbacks)
	}

	dbc := dbctx.Background(context.Background())
	snap, err := snapshots.GetByUserAndDate(dbc, worker.ID, "2024-03-10")
	if err != nil || snap != nil {
		t.Fatalf("snapshot after rollback: want=nil got=%v err=%v", snap, err)
	}
	open, err := alerts.ListOpen(dbc, 0, nil)
	if err != nil || len(open) != 0 {
		t.Fatalf("alerts after rollback: want=0 got=%d err=%v", len(open), err)
	}
	if len(hooks.Operations) != 1 || hooks.Operations[0].Status != string(domainagg.CodeInternal) {
		t.Fatalf("hooks: %+v", hooks.Operations)
	}
	if len(hooks.Folds) != 0 || len(hooks.Opened) != 0 {
		t.Fatalf("rolled back fold must not signal: folds=%d opened=%d", len(hooks.Folds), len(hooks.Opened))
	}
}

func TestFoldEventRetriedWriteCountsOnce(t *testing.T) {
	db := repotest.DB(t)
	runner := &aggtest.InjectedTxRunner{DB: db, TransientErr: errors.New("database is locked"), TransientTimes: 2}
	log := repotest.Logger(t)
	hooks := &aggtest.HooksRecorder{}
	alerts := repos.NewBehaviorAlertRepo(db, log)
	worker := repotest.SeedUser(t, context.Background(), db, "Asha Rao", types.RoleWorker)

	agg := aggregates.NewComplianceAggregate(aggregates.ComplianceAggregateDeps{
		DB: db, Log: log, Snapshots: repos.NewDailySnapshotRepo(db, log), Alerts: alerts, Runner: runner, Hooks: hooks,
	})
	res, err := agg.FoldEvent(context.Background(), domainagg.FoldEventInput{
		UserID:     worker.ID,
		Type:       types.EventPPESkipped,
		OccurredAt: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("FoldEvent: %v", err)
	}
	if runner.Attempts != 3 || len(hooks.Retries) != 2 {
		t.Fatalf("attempts/retries: want=3/2 got=%d/%d", runner.Attempts, len(hooks.Retries))
	}
	if got := hooks.Statuses("compliance.fold_event"); len(got) != 1 || got[0] != "success" {
		t.Fatalf("statuses: want=[success] got=%v", got)
	}
	if res.Snapshot.Metrics.PPEChecksFailed != 1 {
		t.Fatalf("PPEChecksFailed: want=1 got=%d", res.Snapshot.Metrics.PPEChecksFailed)
	}
	open, err := alerts.ListOpen(dbctx.Background(context.Background()), 0, nil)
	if err != nil || len(open) != 2 || len(res.Opened) != 2 {
		t.Fatalf("open alerts: want=2 got=%d opened=%d err=%v", len(open), len(res.Opened), err)
	}
}

func TestFoldEventConcurrentSkipsSerialize(t *testing.T) {
	f := newFixture(t, nil)
	at := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.agg.FoldEvent(context.Background(), domainagg.FoldEventInput{
				UserID:     f.worker.ID,
				Type:       types.EventPPESkipped,
				OccurredAt: at.Add(time.Duration(i) * time.Second),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent FoldEvent: %v", err)
		}
	}

	snap, err := f.snapshots.GetByUserAndDate(dbctx.Background(context.Background()), f.worker.ID, "2024-03-10")
	if err != nil || snap.Metrics.PPEChecksFailed != n {
		t.Fatalf("PPEChecksFailed: want=%d got=%v err=%v", n, snap, err)
	}
	ppeType := types.AlertPPENonCompliance
	rows, err := f.alerts.ListOpen(dbctx.Background(context.Background()), 0, &ppeType)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ppe alerts: want=1 got=%d err=%v", len(rows), err)
	}
}

func TestEnsureAndAcknowledgeAlert(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	in := domainagg.EnsureAlertInput{
		UserID:   f.worker.ID,
		DateKey:  "2024-03-10",
		Type:     types.AlertChecklistMissed,
		Severity: types.SeverityMedium,
		Message:  "Asha Rao has not completed the pre-shift checklist.",
		Metadata: map[string]any{"reason": "pre_shift_check"},
	}
	first, err := f.agg.EnsureAlert(ctx, in)
	if err != nil || !first.Created {
		t.Fatalf("EnsureAlert: created=%v err=%v", first.Created, err)
	}
	dup, err := f.agg.EnsureAlert(ctx, in)
	if err != nil || dup.Created || dup.Alert.ID != first.Alert.ID {
		t.Fatalf("EnsureAlert dedup: created=%v err=%v", dup.Created, err)
	}

	bad := in
	bad.DateKey = "20240310"
	if _, err := f.agg.EnsureAlert(ctx, bad); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("bad date key: want validation got=%v", err)
	}

	_, err = f.agg.AcknowledgeAlert(ctx, domainagg.AcknowledgeAlertInput{AlertID: first.Alert.ID, ExpectType: types.AlertLowCompliance})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("type mismatch: want not_found got=%v", err)
	}
	if _, err := f.agg.AcknowledgeAlert(ctx, domainagg.AcknowledgeAlertInput{AlertID: uuid.New()}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("missing: want not_found got=%v", err)
	}

	ackAt := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	acked, err := f.agg.AcknowledgeAlert(ctx, domainagg.AcknowledgeAlertInput{AlertID: first.Alert.ID, ExpectType: types.AlertChecklistMissed, At: ackAt})
	if err != nil || !acked.Transitioned || acked.Alert.Status != types.AlertAcknowledged || acked.Alert.AcknowledgedAt == nil || !acked.Alert.AcknowledgedAt.Equal(ackAt) {
		t.Fatalf("AcknowledgeAlert: got=%+v err=%v", acked, err)
	}
	again, err := f.agg.AcknowledgeAlert(ctx, domainagg.AcknowledgeAlertInput{AlertID: first.Alert.ID, At: ackAt.Add(time.Hour)})
	if err != nil || again.Transitioned || again.Alert.Status != types.AlertAcknowledged {
		t.Fatalf("AcknowledgeAlert twice: want transitioned=false got=%+v err=%v", again, err)
	}
	if !again.Alert.AcknowledgedAt.Equal(ackAt) {
		t.Fatalf("second acknowledge must keep the first timestamp: want=%v got=%v", ackAt, again.Alert.AcknowledgedAt)
	}
	if len(f.openAlerts(t)) != 0 {
		t.Fatalf("no alert should remain open")
	}
	if len(f.hooks.Opened) != 1 || len(f.hooks.Acknowledged) != 1 {
		t.Fatalf("hooks: want opened=1 acknowledged=1 got opened=%d acknowledged=%d", len(f.hooks.Opened), len(f.hooks.Acknowledged))
	}
}

func TestAcknowledgeAlertRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	res, err := f.agg.EnsureAlert(ctx, domainagg.EnsureAlertInput{
		UserID: f.worker.ID, DateKey: "2024-03-10", Type: types.AlertLowCompliance, Message: "Compliance score dropped below 60.",
	})
	if err != nil {
		t.Fatalf("EnsureAlert: %v", err)
	}
	if err := f.db.Model(&types.BehaviorAlert{}).Where("id = ?", res.Alert.ID).Update("status", "archived").Error; err != nil {
		t.Fatalf("update status: %v", err)
	}
	_, err = f.agg.AcknowledgeAlert(ctx, domainagg.AcknowledgeAlertInput{AlertID: res.Alert.ID})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("archived alert: want conflict got=%v", err)
	}
	if len(f.hooks.Acknowledged) != 0 {
		t.Fatalf("hooks: want acknowledged=0 got=%d", len(f.hooks.Acknowledged))
	}
}

func TestAcknowledgeAlertConcurrentTransitionsOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	res, err := f.agg.EnsureAlert(ctx, domainagg.EnsureAlertInput{
		UserID: f.worker.ID, DateKey: "2024-03-10", Type: types.AlertPPENonCompliance, Message: "Repeated PPE confirmations were skipped.",
	})
	if err != nil {
		t.Fatalf("EnsureAlert: %v", err)
	}

	const n = 6
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		transitions int
	)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := f.agg.AcknowledgeAlert(ctx, domainagg.AcknowledgeAlertInput{AlertID: res.Alert.ID})
			if err == nil && out.Transitioned {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent AcknowledgeAlert: %v", err)
		}
	}
	if transitions != 1 || len(f.hooks.Acknowledged) != 1 {
		t.Fatalf("transitions: want=1 got=%d hooks=%d", transitions, len(f.hooks.Acknowledged))
	}
}
