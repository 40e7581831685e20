package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/minesafe-compliance/internal/data/repos"
	types "github.com/yungbote/minesafe-compliance/internal/domain"
	domainagg "github.com/yungbote/minesafe-compliance/internal/domain/aggregates"
	"github.com/yungbote/minesafe-compliance/internal/platform/dbctx"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

type AlertService interface {
	// ListOpen returns every open alert, newest first.
	ListOpen(ctx context.Context) ([]AlertView, error)
	Acknowledge(ctx context.Context, alertID uuid.UUID) (*types.BehaviorAlert, error)
}

type AlertServiceDeps struct {
	Log       *logger.Logger
	Users     repos.UserRepo
	Alerts    repos.BehaviorAlertRepo
	Aggregate domainagg.ComplianceAggregate
	Notifier  AlertNotifier
	Now       func() time.Time
}

type alertService struct {
	log       *logger.Logger
	users     repos.UserRepo
	alerts    repos.BehaviorAlertRepo
	aggregate domainagg.ComplianceAggregate
	notifier  AlertNotifier
	now       func() time.Time
}

func NewAlertService(deps AlertServiceDeps) AlertService {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &alertService{
		log:       log.With("service", "AlertService"),
		users:     deps.Users,
		alerts:    deps.Alerts,
		aggregate: deps.Aggregate,
		notifier:  deps.Notifier,
		now:       now,
	}
}

func (s *alertService) ListOpen(ctx context.Context) ([]AlertView, error) {
	return listOpenAlerts(ctx, s.alerts, s.users, nil)
}

func (s *alertService) Acknowledge(ctx context.Context, alertID uuid.UUID) (*types.BehaviorAlert, error) {
	return acknowledgeAlert(ctx, s.aggregate, s.notifier, domainagg.AcknowledgeAlertInput{
		AlertID: alertID,
		At:      s.now(),
	})
}

func listOpenAlerts(ctx context.Context, alerts repos.BehaviorAlertRepo, users repos.UserRepo, alertType *types.AlertType) ([]AlertView, error) {
	dbc := dbctx.Background(ctx)
	rows, err := alerts.ListOpen(dbc, 0, alertType)
	if err != nil {
		return nil, err
	}
	byID, err := userSummaries(dbc, users, alertUserIDs(rows))
	if err != nil {
		return nil, err
	}
	return alertViews(rows, byID), nil
}

func acknowledgeAlert(ctx context.Context, agg domainagg.ComplianceAggregate, notifier AlertNotifier, in domainagg.AcknowledgeAlertInput) (*types.BehaviorAlert, error) {
	res, err := agg.AcknowledgeAlert(ctx, in)
	if err != nil {
		return nil, err
	}
	if res.Transitioned && notifier != nil {
		notifier.AlertAcknowledged(ctx, res.Alert)
	}
	return res.Alert, nil
}
