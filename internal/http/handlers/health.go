package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/minesafe-compliance/internal/observability"
)

type HealthHandler struct {
	metrics *observability.Metrics
}

func NewHealthHandler(metrics *observability.Metrics) *HealthHandler {
	return &HealthHandler{metrics: metrics}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Metrics serves the Prometheus text exposition; 404 when metrics are off.
func (h *HealthHandler) Metrics(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusNotFound)
		return
	}
	h.metrics.WriteHTTP(c.Writer, c.Request)
}
