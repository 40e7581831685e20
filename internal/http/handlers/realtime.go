package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/minesafe-compliance/internal/domain/user"
	"github.com/yungbote/minesafe-compliance/internal/http/response"
	"github.com/yungbote/minesafe-compliance/internal/platform/ctxutil"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
	"github.com/yungbote/minesafe-compliance/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// AlertStream handles GET /api/behavior/alerts/stream. Oversight roles follow
// every alert; other callers only their own.
func (h *RealtimeHandler) AlertStream(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	client := h.hub.NewSSEClient(rd.UserID)
	defer h.hub.CloseClient(client)

	h.hub.AddChannel(client, realtime.UserChannel(rd.UserID))
	if isOversight(rd.Role) {
		h.hub.AddChannel(client, realtime.ChannelAlerts)
	}
	h.log.Debug("Alert stream open", "user_id", rd.UserID, "role", rd.Role)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
}

func isOversight(role string) bool {
	for _, r := range user.OversightRoles {
		if string(r) == role {
			return true
		}
	}
	return false
}
