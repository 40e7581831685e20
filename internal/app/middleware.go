package app

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	httpMW "github.com/yungbote/minesafe-compliance/internal/http/middleware"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

type Middleware struct {
	Auth            *httpMW.AuthMiddleware
	EventsRateLimit gin.HandlerFunc
}

func wireMiddleware(log *logger.Logger, cfg Config, services Services) (Middleware, error) {
	log.Info("Wiring middleware...")
	mw := Middleware{Auth: httpMW.NewAuthMiddleware(log, services.Auth)}
	if rate := strings.TrimSpace(cfg.RateLimit.Events); rate != "" {
		limit, err := httpMW.RateLimit(rate)
		if err != nil {
			return Middleware{}, fmt.Errorf("events rate limit %q: %w", rate, err)
		}
		mw.EventsRateLimit = limit
	}
	return mw, nil
}
