package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

const outboundBuffer = 32

// SSEClient is one open alert stream. Outbound is closed by the hub when
// the client is closed; Channels is guarded by the hub's lock.
type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	Logger   *logger.Logger

	done    chan struct{}
	once    sync.Once
	dropped int
}

func newSSEClient(userID uuid.UUID, log *logger.Logger) *SSEClient {
	id := uuid.New()
	return &SSEClient{
		ID:       id,
		UserID:   userID,
		Channels: make(map[string]bool),
		Outbound: make(chan SSEMessage, outboundBuffer),
		Logger:   log.With("client_id", id.String(), "user_id", userID.String()),
		done:     make(chan struct{}),
	}
}

// offer queues msg without blocking. A slow reader loses the message rather
// than stalling the broadcaster.
func (c *SSEClient) offer(msg SSEMessage) bool {
	select {
	case c.Outbound <- msg:
		return true
	default:
		c.dropped++
		return false
	}
}
