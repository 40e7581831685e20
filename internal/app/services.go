package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/minesafe-compliance/internal/data/aggregates"
	domainagg "github.com/yungbote/minesafe-compliance/internal/domain/aggregates"
	"github.com/yungbote/minesafe-compliance/internal/observability"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
	"github.com/yungbote/minesafe-compliance/internal/realtime"
	"github.com/yungbote/minesafe-compliance/internal/services"
)

type Services struct {
	Aggregate  domainagg.ComplianceAggregate
	Notifier   services.AlertNotifier
	Auth       services.AuthService
	Events     services.EventService
	Reports    services.ReportService
	Alerts     services.AlertService
	Checklists services.ChecklistService
}

// alertEmitter publishes through Redis when a bus is configured so every API
// replica sees the alert; otherwise straight into the local hub. hub may be
// nil in processes that serve no streams.
func alertEmitter(log *logger.Logger, clients Clients, hub *realtime.SSEHub) services.SSEEmitter {
	if clients.AlertBus != nil {
		return &services.RedisEmitter{Bus: clients.AlertBus, Log: log}
	}
	if hub != nil {
		return &services.HubEmitter{Hub: hub}
	}
	return nil
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients, metrics *observability.Metrics, hub *realtime.SSEHub) Services {
	log.Info("Wiring services...")

	agg := aggregates.NewComplianceAggregate(aggregates.ComplianceAggregateDeps{
		DB:        db,
		Log:       log,
		Snapshots: repos.Snapshots,
		Alerts:    repos.Alerts,
		Hooks:     aggregates.NewObservabilityHooks(metrics),
	})
	contract := agg.Contract()
	log.Info("aggregate wired", "name", contract.Name, "owns_tx", contract.AggregateOwnsTx, "lock_scope", contract.LockScope)

	var notifier services.AlertNotifier
	if emit := alertEmitter(log, clients, hub); emit != nil {
		notifier = services.NewAlertNotifier(emit)
	}
	var auditor services.EventAuditor
	if clients.Audit != nil {
		auditor = clients.Audit
	}

	return Services{
		Aggregate: agg,
		Notifier:  notifier,
		Auth:      services.NewAuthService(log, repos.User, cfg.JWT.Secret, cfg.JWT.AccessTTL),
		Events: services.NewEventService(services.EventServiceDeps{
			Log:       log,
			Users:     repos.User,
			Events:    repos.Events,
			Aggregate: agg,
			Notifier:  notifier,
			Auditor:   auditor,
		}),
		Reports: services.NewReportService(services.ReportServiceDeps{
			Log:       log,
			Users:     repos.User,
			Events:    repos.Events,
			Snapshots: repos.Snapshots,
			Alerts:    repos.Alerts,
		}),
		Alerts: services.NewAlertService(services.AlertServiceDeps{
			Log:       log,
			Users:     repos.User,
			Alerts:    repos.Alerts,
			Aggregate: agg,
			Notifier:  notifier,
		}),
		Checklists: services.NewChecklistService(services.ChecklistServiceDeps{
			Log:       log,
			Users:     repos.User,
			Alerts:    repos.Alerts,
			Aggregate: agg,
			Notifier:  notifier,
		}),
	}
}
