package app

import (
	httpH "github.com/yungbote/minesafe-compliance/internal/http/handlers"
	"github.com/yungbote/minesafe-compliance/internal/observability"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
	"github.com/yungbote/minesafe-compliance/internal/realtime"
)

type Handlers struct {
	Health    *httpH.HealthHandler
	Auth      *httpH.AuthHandler
	Behavior  *httpH.BehaviorHandler
	Checklist *httpH.ChecklistHandler
	Realtime  *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, services Services, hub *realtime.SSEHub, metrics *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(metrics),
		Auth:      httpH.NewAuthHandler(services.Auth),
		Behavior:  httpH.NewBehaviorHandler(services.Events, services.Reports, services.Alerts),
		Checklist: httpH.NewChecklistHandler(services.Checklists),
		Realtime:  httpH.NewRealtimeHandler(log, hub),
	}
}
