package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/minesafe-compliance/internal/http/response"
	"github.com/yungbote/minesafe-compliance/internal/platform/ctxutil"
	"github.com/yungbote/minesafe-compliance/internal/services"
)

type BehaviorHandler struct {
	events  services.EventService
	reports services.ReportService
	alerts  services.AlertService
}

func NewBehaviorHandler(events services.EventService, reports services.ReportService, alerts services.AlertService) *BehaviorHandler {
	return &BehaviorHandler{events: events, reports: reports, alerts: alerts}
}

type logEventRequest struct {
	Type       string         `json:"type"`
	Metadata   map[string]any `json:"metadata"`
	OccurredAt *time.Time     `json:"occurredAt"`
}

// LogEvent handles POST /api/behavior/events.
func (h *BehaviorHandler) LogEvent(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 64<<10)
	var req logEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.events.Ingest(c.Request.Context(), services.IngestEventInput{
		UserID:     rd.UserID,
		Type:       req.Type,
		Metadata:   req.Metadata,
		OccurredAt: req.OccurredAt,
		Source:     services.SourceHTTP,
	})
	if err != nil {
		response.RespondServiceError(c, "Failed to log engagement event", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "eventId": res.EventID})
}

// MySnapshots handles GET /api/behavior/snapshots/me.
func (h *BehaviorHandler) MySnapshots(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	trend, err := h.reports.PersonalTrend(c.Request.Context(), rd.UserID, rangeParam(c))
	if err != nil {
		response.RespondServiceError(c, "Failed to fetch behavior snapshot", err)
		return
	}
	response.RespondData(c, http.StatusOK, trend)
}

// SupervisorOverview handles GET /api/behavior/supervisor/overview.
func (h *BehaviorHandler) SupervisorOverview(c *gin.Context) {
	overview, err := h.reports.SupervisorOverview(c.Request.Context(), rangeParam(c))
	if err != nil {
		response.RespondServiceError(c, "Failed to fetch supervisor overview", err)
		return
	}
	response.RespondData(c, http.StatusOK, overview)
}

func (h *BehaviorHandler) ListAlerts(c *gin.Context) {
	alerts, err := h.alerts.ListOpen(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, "Failed to fetch behavior alerts", err)
		return
	}
	response.RespondData(c, http.StatusOK, alerts)
}

func (h *BehaviorHandler) AcknowledgeAlert(c *gin.Context) {
	id, ok := uuidParam(c, "id", "Alert not found")
	if !ok {
		return
	}
	alert, err := h.alerts.Acknowledge(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, "Failed to acknowledge alert", err)
		return
	}
	response.RespondData(c, http.StatusOK, alert)
}

// rangeParam reads ?range=; missing, non-numeric or zero means the default window.
func rangeParam(c *gin.Context) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query("range")))
	if err != nil || n == 0 {
		return services.DefaultRangeDays
	}
	return n
}

// uuidParam answers 404 for ids that cannot name a stored row.
func uuidParam(c *gin.Context, name, notFound string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusNotFound, "not_found", errors.New(notFound))
		return uuid.Nil, false
	}
	return id, true
}
