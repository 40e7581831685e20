package realtime

import "github.com/google/uuid"

type SSEEvent string

const (
	SSEEventAlertOpened       SSEEvent = "AlertOpened"
	SSEEventAlertAcknowledged SSEEvent = "AlertAcknowledged"
)

// ChannelAlerts carries every alert transition; oversight clients subscribe to it.
const ChannelAlerts = "alerts"

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// UserChannel is the per-worker channel a worker's own stream subscribes to.
func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}
