package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/minesafe-compliance/internal/http/response"
	"github.com/yungbote/minesafe-compliance/internal/platform/ctxutil"
	"github.com/yungbote/minesafe-compliance/internal/services"
)

type ChecklistHandler struct {
	checklists services.ChecklistService
}

func NewChecklistHandler(checklists services.ChecklistService) *ChecklistHandler {
	return &ChecklistHandler{checklists: checklists}
}

type reportMissedRequest struct {
	UserID string `json:"userId"`
	Reason string `json:"reason"`
}

// ReportMissed handles POST /api/checklist/missed.
func (h *ChecklistHandler) ReportMissed(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req reportMissedRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	in := services.ReportMissedInput{CallerID: rd.UserID, Reason: req.Reason}
	if raw := strings.TrimSpace(req.UserID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusNotFound, "not_found", errors.New("User not found"))
			return
		}
		in.UserID = &id
	}

	res, err := h.checklists.ReportMissed(c.Request.Context(), in)
	if err != nil {
		response.RespondServiceError(c, "Server error while reporting missed checklist", err)
		return
	}
	if res.Duplicate {
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"data":      res.Alert,
			"duplicate": true,
			"message":   "Checklist miss already logged for today",
		})
		return
	}
	c.JSON(http.StatusCreated, response.Envelope{Success: true, Data: res.Alert, Message: "Admin notified about missed checklist"})
}

func (h *ChecklistHandler) ListMissedOpen(c *gin.Context) {
	alerts, err := h.checklists.ListMissedOpen(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, "Server error while fetching alerts", err)
		return
	}
	response.RespondData(c, http.StatusOK, alerts)
}

func (h *ChecklistHandler) AcknowledgeMissed(c *gin.Context) {
	id, ok := uuidParam(c, "alertId", "Checklist alert not found")
	if !ok {
		return
	}
	alert, err := h.checklists.AcknowledgeMissed(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, "Server error while acknowledging alert", err)
		return
	}
	c.JSON(http.StatusOK, response.Envelope{Success: true, Data: alert, Message: "Checklist alert acknowledged"})
}
