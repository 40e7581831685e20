package services

import (
	"context"

	types "github.com/yungbote/minesafe-compliance/internal/domain"
	"github.com/yungbote/minesafe-compliance/internal/realtime"
)

type AlertNotifier interface {
	AlertOpened(ctx context.Context, alert *types.BehaviorAlert, worker *types.UserSummary)
	AlertAcknowledged(ctx context.Context, alert *types.BehaviorAlert)
}

type alertNotifier struct {
	emit SSEEmitter
}

func NewAlertNotifier(emit SSEEmitter) AlertNotifier {
	return &alertNotifier{emit: emit}
}

// AlertOpened goes to the oversight channel and to the worker's own channel.
func (n *alertNotifier) AlertOpened(ctx context.Context, alert *types.BehaviorAlert, worker *types.UserSummary) {
	if n == nil || n.emit == nil || alert == nil {
		return
	}
	data := map[string]any{"alert": AlertView{BehaviorAlert: alert, User: worker}}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.ChannelAlerts,
		Event:   realtime.SSEEventAlertOpened,
		Data:    data,
	})
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(alert.UserID),
		Event:   realtime.SSEEventAlertOpened,
		Data:    data,
	})
}

func (n *alertNotifier) AlertAcknowledged(ctx context.Context, alert *types.BehaviorAlert) {
	if n == nil || n.emit == nil || alert == nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.ChannelAlerts,
		Event:   realtime.SSEEventAlertAcknowledged,
		Data: map[string]any{
			"alert_id": alert.ID,
			"type":     alert.Type,
			"alert":    alert,
		},
	})
}
