package app

import (
	"github.com/gin-gonic/gin"

	apphttp "github.com/yungbote/minesafe-compliance/internal/http"
	"github.com/yungbote/minesafe-compliance/internal/observability"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *gin.Engine {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return apphttp.NewRouter(apphttp.RouterConfig{
		AuthHandler:      handlers.Auth,
		AuthMiddleware:   middleware.Auth,
		BehaviorHandler:  handlers.Behavior,
		ChecklistHandler: handlers.Checklist,
		RealtimeHandler:  handlers.Realtime,
		HealthHandler:    handlers.Health,
		Metrics:          metrics,
		CORSOrigins:      cfg.CORS.AllowedOrigins,
		EventsRateLimit:  middleware.EventsRateLimit,
		ServiceName:      serviceName,
		Log:              log,
	})
}
