package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/minesafe-compliance/internal/domain/user"
	httpH "github.com/yungbote/minesafe-compliance/internal/http/handlers"
	httpMW "github.com/yungbote/minesafe-compliance/internal/http/middleware"
	"github.com/yungbote/minesafe-compliance/internal/observability"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

type RouterConfig struct {
	AuthHandler      *httpH.AuthHandler
	AuthMiddleware   *httpMW.AuthMiddleware
	BehaviorHandler  *httpH.BehaviorHandler
	ChecklistHandler *httpH.ChecklistHandler
	RealtimeHandler  *httpH.RealtimeHandler
	HealthHandler    *httpH.HealthHandler

	Metrics         *observability.Metrics
	CORSOrigins     []string
	EventsRateLimit gin.HandlerFunc
	ServiceName     string
	Log             *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.SecurityHeaders())
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/metrics", cfg.HealthHandler.Metrics)
	}

	api := r.Group("/api")
	if cfg.AuthHandler != nil {
		api.POST("/register", cfg.AuthHandler.Register)
		api.POST("/login", cfg.AuthHandler.Login)
	}

	// Everything below needs a caller.
	if cfg.AuthMiddleware == nil {
		return r
	}
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	oversight := cfg.AuthMiddleware.RequireRoles(user.OversightRoles...)

	if cfg.BehaviorHandler != nil {
		behavior := protected.Group("/behavior")
		events := []gin.HandlerFunc{cfg.BehaviorHandler.LogEvent}
		if cfg.EventsRateLimit != nil {
			events = append([]gin.HandlerFunc{cfg.EventsRateLimit}, events...)
		}
		behavior.POST("/events", events...)
		behavior.GET("/snapshots/me", cfg.BehaviorHandler.MySnapshots)
		behavior.GET("/supervisor/overview", oversight, cfg.BehaviorHandler.SupervisorOverview)
		behavior.GET("/alerts", oversight, cfg.BehaviorHandler.ListAlerts)
		behavior.POST("/alerts/:id/acknowledge", oversight, cfg.BehaviorHandler.AcknowledgeAlert)
	}

	// Realtime (SSE)
	if cfg.RealtimeHandler != nil {
		protected.GET("/behavior/alerts/stream", cfg.RealtimeHandler.AlertStream)
	}

	if cfg.ChecklistHandler != nil {
		checklist := protected.Group("/checklist")
		checklist.POST("/missed", cfg.ChecklistHandler.ReportMissed)
		checklist.GET("/missed/open", oversight, cfg.ChecklistHandler.ListMissedOpen)
		checklist.PATCH("/missed/:alertId/ack", oversight, cfg.ChecklistHandler.AcknowledgeMissed)
	}

	return r
}
