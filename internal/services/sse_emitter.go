package services

import (
	"context"

	"github.com/yungbote/minesafe-compliance/internal/observability"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
	"github.com/yungbote/minesafe-compliance/internal/realtime"
	"github.com/yungbote/minesafe-compliance/internal/realtime/bus"
)

type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	if e == nil || e.Hub == nil {
		return
	}
	e.Hub.Broadcast(msg)
}

// RedisEmitter publishes through the bus; every API replica's forwarder
// rebroadcasts into its local hub.
type RedisEmitter struct {
	Bus bus.Bus
	Log *logger.Logger
}

func (e *RedisEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	if e == nil || e.Bus == nil {
		return
	}
	if err := e.Bus.Publish(ctx, msg); err != nil {
		observability.Current().IncBusPublish("error")
		if e.Log != nil {
			e.Log.Warn("Failed to publish realtime message", "channel", msg.Channel, "event", msg.Event, "error", err)
		}
		return
	}
	observability.Current().IncBusPublish("ok")
}
