package aggregates

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/minesafe-compliance/internal/compliance"
	"github.com/yungbote/minesafe-compliance/internal/data/repos"
	types "github.com/yungbote/minesafe-compliance/internal/domain"
	domainagg "github.com/yungbote/minesafe-compliance/internal/domain/aggregates"
	"github.com/yungbote/minesafe-compliance/internal/platform/dbctx"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

type ComplianceAggregateDeps struct {
	DB        *gorm.DB
	Log       *logger.Logger
	Snapshots repos.DailySnapshotRepo
	Alerts    repos.BehaviorAlertRepo
	Runner    TxRunner
	Hooks     Hooks
	Now       func() time.Time
}

type complianceAggregate struct {
	base      BaseDeps
	log       *logger.Logger
	snapshots repos.DailySnapshotRepo
	alerts    repos.BehaviorAlertRepo
	now       func() time.Time
}

func NewComplianceAggregate(deps ComplianceAggregateDeps) domainagg.ComplianceAggregate {
	baseLog := deps.Log
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	log := baseLog.With("aggregate", "ComplianceAggregate")
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &complianceAggregate{
		base: BaseDeps{
			DB:     deps.DB,
			Log:    log,
			Runner: deps.Runner,
			Hooks:  deps.Hooks,
		}.withDefaults(),
		log:       log,
		snapshots: deps.Snapshots,
		alerts:    deps.Alerts,
		now:       now,
	}
}

func (a *complianceAggregate) Contract() domainagg.Contract {
	return domainagg.ComplianceAggregateContract
}

func (a *complianceAggregate) FoldEvent(ctx context.Context, in domainagg.FoldEventInput) (domainagg.FoldEventResult, error) {
	const op = "compliance.fold_event"
	if in.UserID == uuid.Nil {
		return domainagg.FoldEventResult{}, MapError(op, ValidationError("user id is required"))
	}
	if !in.Type.Supported() {
		return domainagg.FoldEventResult{}, MapError(op, ValidationError("unsupported event type: "+string(in.Type)))
	}
	mdJSON, err := marshalMetadata(in.Metadata)
	if err != nil {
		return domainagg.FoldEventResult{}, MapError(op, ValidationError("metadata is not serializable"))
	}
	occurredAt := in.OccurredAt.UTC()
	if in.OccurredAt.IsZero() {
		occurredAt = a.now().UTC()
	}
	date := compliance.DateKey(occurredAt)

	var out domainagg.FoldEventResult
	err = executeWrite(ctx, a.base, op, func(dbc dbctx.Context) error {
		out = domainagg.FoldEventResult{}

		snap, err := a.snapshots.GetOrCreateForUpdate(dbc, in.UserID, date)
		if err != nil {
			return err
		}
		outcome, err := compliance.Fold(snap, in.Type, in.Metadata, func(key string) (*types.DailyComplianceSnapshot, error) {
			return a.snapshots.GetByUserAndDate(dbc, in.UserID, key)
		})
		if err != nil {
			return err
		}

		snap.Metrics = outcome.Metrics
		snap.ComplianceScore = outcome.Score
		snap.RiskLevel = outcome.Risk
		snap.StreakCount = outcome.Streak.Count
		snap.StreakSeeded = outcome.Streak.Seeded
		snap.LastEventType = in.Type
		snap.LastEventMetadata = mdJSON
		at := occurredAt
		snap.LastEventAt = &at
		if err := a.snapshots.Save(dbc, snap); err != nil {
			return err
		}

		for _, spec := range compliance.Triggers(in.Type, outcome) {
			alert, created, err := a.ensureAlert(dbc, in.UserID, date, spec)
			if err != nil {
				return err
			}
			if created {
				out.Opened = append(out.Opened, alert)
			}
		}
		out.Snapshot = snap
		return nil
	})
	if err != nil {
		return domainagg.FoldEventResult{}, err
	}
	hooks := a.base.Hooks
	hooks.SnapshotFolded(string(out.Snapshot.RiskLevel), out.Snapshot.ComplianceScore)
	for _, alert := range out.Opened {
		hooks.AlertOpened(string(alert.Type))
	}
	return out, nil
}

func (a *complianceAggregate) EnsureAlert(ctx context.Context, in domainagg.EnsureAlertInput) (domainagg.EnsureAlertResult, error) {
	const op = "compliance.ensure_alert"
	if in.UserID == uuid.Nil {
		return domainagg.EnsureAlertResult{}, MapError(op, ValidationError("user id is required"))
	}
	if _, err := compliance.ParseDateKey(in.DateKey); err != nil {
		return domainagg.EnsureAlertResult{}, MapError(op, ValidationError("invalid date key: "+in.DateKey))
	}
	if strings.TrimSpace(string(in.Type)) == "" || strings.TrimSpace(in.Message) == "" {
		return domainagg.EnsureAlertResult{}, MapError(op, ValidationError("alert type and message are required"))
	}
	severity := in.Severity
	if severity == "" {
		severity = types.SeverityMedium
	}

	var out domainagg.EnsureAlertResult
	err := executeWrite(ctx, a.base, op, func(dbc dbctx.Context) error {
		alert, created, err := a.ensureAlert(dbc, in.UserID, in.DateKey, compliance.AlertSpec{
			Type:     in.Type,
			Severity: severity,
			Message:  strings.TrimSpace(in.Message),
			Metadata: in.Metadata,
		})
		if err != nil {
			return err
		}
		out = domainagg.EnsureAlertResult{Alert: alert, Created: created}
		return nil
	})
	if err != nil {
		return domainagg.EnsureAlertResult{}, err
	}
	if out.Created {
		a.base.Hooks.AlertOpened(string(out.Alert.Type))
	}
	return out, nil
}

func (a *complianceAggregate) AcknowledgeAlert(ctx context.Context, in domainagg.AcknowledgeAlertInput) (domainagg.AcknowledgeAlertResult, error) {
	const op = "compliance.acknowledge_alert"
	if in.AlertID == uuid.Nil {
		return domainagg.AcknowledgeAlertResult{}, domainagg.NotFound(op, "alert not found")
	}
	at := in.At.UTC()
	if in.At.IsZero() {
		at = a.now().UTC()
	}

	var out domainagg.AcknowledgeAlertResult
	err := executeWrite(ctx, a.base, op, func(dbc dbctx.Context) error {
		out = domainagg.AcknowledgeAlertResult{}
		row, err := a.alerts.GetByID(dbc, in.AlertID)
		if err != nil {
			return err
		}
		if in.ExpectType != "" && row.Type != in.ExpectType {
			return domainagg.NotFound(op, "alert not found")
		}
		if row.Status == types.AlertAcknowledged {
			out.Alert = row
			return nil
		}
		if err := RequireStatusAllowed(string(row.Status), string(types.AlertOpen)); err != nil {
			return err
		}
		ok, err := a.base.CASGuard.UpdateByStatus(dbc, "behavior_alert", row.ID, []string{string(types.AlertOpen)}, map[string]any{
			"status":          types.AlertAcknowledged,
			"acknowledged_at": at,
			"updated_at":      a.now().UTC(),
		})
		if err != nil {
			return err
		}
		if !ok {
			// a concurrent acknowledge won; report its row
			winner, err := a.alerts.GetByID(dbc, in.AlertID)
			if err != nil {
				return err
			}
			if winner.Status == types.AlertAcknowledged {
				out.Alert = winner
				return nil
			}
			return RequireCASSuccess(ok, "alert status changed during acknowledge")
		}
		row.Status = types.AlertAcknowledged
		row.AcknowledgedAt = &at
		out = domainagg.AcknowledgeAlertResult{Alert: row, Transitioned: true}
		return nil
	})
	if err != nil {
		return domainagg.AcknowledgeAlertResult{}, err
	}
	if out.Transitioned {
		a.base.Hooks.AlertAcknowledged(string(out.Alert.Type))
	}
	return out, nil
}

func (a *complianceAggregate) ensureAlert(dbc dbctx.Context, userID uuid.UUID, date string, spec compliance.AlertSpec) (*types.BehaviorAlert, bool, error) {
	md, err := marshalMetadata(spec.Metadata)
	if err != nil {
		return nil, false, ValidationError("alert metadata is not serializable")
	}
	alert, created, err := a.alerts.EnsureOpen(dbc, &types.BehaviorAlert{
		UserID:       userID,
		SnapshotDate: date,
		Type:         spec.Type,
		Severity:     spec.Severity,
		Message:      spec.Message,
		Metadata:     md,
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		a.log.Info("alert opened", "user_id", userID, "date", date, "type", spec.Type)
	}
	return alert, created, nil
}

func marshalMetadata(md map[string]any) (datatypes.JSON, error) {
	if md == nil {
		return datatypes.JSON("{}"), nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
