package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/minesafe-compliance/internal/compliance"
	"github.com/yungbote/minesafe-compliance/internal/data/repos"
	types "github.com/yungbote/minesafe-compliance/internal/domain"
	domainagg "github.com/yungbote/minesafe-compliance/internal/domain/aggregates"
	"github.com/yungbote/minesafe-compliance/internal/platform/dbctx"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

const defaultMissedReason = "pre_shift_check"

type ReportMissedInput struct {
	CallerID uuid.UUID
	// UserID is the worker who missed the checklist; the caller when nil.
	UserID *uuid.UUID
	Reason string
}

type ReportMissedResult struct {
	Alert     *types.BehaviorAlert
	Duplicate bool
}

type ChecklistService interface {
	ReportMissed(ctx context.Context, in ReportMissedInput) (*ReportMissedResult, error)
	ListMissedOpen(ctx context.Context) ([]AlertView, error)
	AcknowledgeMissed(ctx context.Context, alertID uuid.UUID) (*types.BehaviorAlert, error)
}

type ChecklistServiceDeps struct {
	Log       *logger.Logger
	Users     repos.UserRepo
	Alerts    repos.BehaviorAlertRepo
	Aggregate domainagg.ComplianceAggregate
	Notifier  AlertNotifier
	Now       func() time.Time
}

type checklistService struct {
	log       *logger.Logger
	users     repos.UserRepo
	alerts    repos.BehaviorAlertRepo
	aggregate domainagg.ComplianceAggregate
	notifier  AlertNotifier
	now       func() time.Time
}

func NewChecklistService(deps ChecklistServiceDeps) ChecklistService {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &checklistService{
		log:       log.With("service", "ChecklistService"),
		users:     deps.Users,
		alerts:    deps.Alerts,
		aggregate: deps.Aggregate,
		notifier:  deps.Notifier,
		now:       now,
	}
}

func (s *checklistService) ReportMissed(ctx context.Context, in ReportMissedInput) (*ReportMissedResult, error) {
	const op = "checklist.report_missed"
	target := in.CallerID
	if in.UserID != nil && *in.UserID != uuid.Nil {
		target = *in.UserID
	}
	if target == uuid.Nil {
		return nil, domainagg.Validation(op, "user id is required")
	}
	worker, err := s.users.GetByID(dbctx.Background(ctx), target)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainagg.NotFound(op, "User not found")
	}
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = defaultMissedReason
	}
	res, err := s.aggregate.EnsureAlert(ctx, domainagg.EnsureAlertInput{
		UserID:   worker.ID,
		DateKey:  compliance.DateKey(s.now()),
		Type:     types.AlertChecklistMissed,
		Severity: types.SeverityMedium,
		Message:  fmt.Sprintf("%s has not completed the pre-shift checklist.", worker.Name),
		Metadata: map[string]any{
			"triggeredBy": in.CallerID.String(),
			"workerRole":  string(worker.Role),
			"reason":      reason,
		},
	})
	if err != nil {
		return nil, err
	}
	if res.Created {
		if s.notifier != nil {
			s.notifier.AlertOpened(ctx, res.Alert, worker.Summary())
		}
	}
	return &ReportMissedResult{Alert: res.Alert, Duplicate: !res.Created}, nil
}

func (s *checklistService) ListMissedOpen(ctx context.Context) ([]AlertView, error) {
	t := types.AlertChecklistMissed
	return listOpenAlerts(ctx, s.alerts, s.users, &t)
}

func (s *checklistService) AcknowledgeMissed(ctx context.Context, alertID uuid.UUID) (*types.BehaviorAlert, error) {
	return acknowledgeAlert(ctx, s.aggregate, s.notifier, domainagg.AcknowledgeAlertInput{
		AlertID:    alertID,
		ExpectType: types.AlertChecklistMissed,
		At:         s.now(),
	})
}
