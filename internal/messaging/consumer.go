package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	domainagg "github.com/yungbote/minesafe-compliance/internal/domain/aggregates"
	"github.com/yungbote/minesafe-compliance/internal/observability"
	"github.com/yungbote/minesafe-compliance/internal/platform/ctxutil"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
	"github.com/yungbote/minesafe-compliance/internal/services"
)

const consumerTag = "engagement-event-consumer"

type Outcome string

const (
	OutcomeAcked     Outcome = "acked"
	OutcomeMalformed Outcome = "malformed"
	OutcomeRejected  Outcome = "rejected"
	OutcomeRequeued  Outcome = "requeued"
)

// EventMessage is the queue wire format of one engagement event.
type EventMessage struct {
	UserID     string         `json:"userId"`
	Type       string         `json:"type"`
	Metadata   map[string]any `json:"metadata"`
	OccurredAt *time.Time     `json:"occurredAt,omitempty"`
}

type Consumer struct {
	log    *logger.Logger
	events services.EventService
}

func NewConsumer(log *logger.Logger, events services.EventService) *Consumer {
	if log == nil {
		log = logger.Nop()
	}
	return &Consumer{log: log.With("component", "EventConsumer"), events: events}
}

// Run consumes conn's queue with manual acknowledgement until ctx ends or the
// delivery channel closes.
func (c *Consumer) Run(ctx context.Context, conn Conn) error {
	if conn.Channel == nil {
		return fmt.Errorf("rabbitmq channel not open")
	}
	msgs, err := conn.Channel.Consume(conn.cfg.Queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}
	c.log.Info("event consumer started", "queue", conn.cfg.Queue)
	return c.Drain(ctx, msgs)
}

func (c *Consumer) Drain(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.Handle(ctx, d)
		}
	}
}

// Handle settles one delivery. Bad payloads and rejected events are dropped;
// store failures go back on the queue.
func (c *Consumer) Handle(ctx context.Context, d amqp.Delivery) Outcome {
	outcome := c.process(ctx, d)
	observability.Current().IncQueueMessage(string(outcome))

	var err error
	switch outcome {
	case OutcomeAcked:
		err = d.Ack(false)
	case OutcomeRequeued:
		err = d.Nack(false, true)
	default:
		err = d.Nack(false, false)
	}
	if err != nil {
		c.log.Error("failed to settle delivery", "outcome", outcome, "error", err)
	}
	return outcome
}

func (c *Consumer) process(ctx context.Context, d amqp.Delivery) Outcome {
	td := &ctxutil.TraceData{DeliveryID: d.MessageId}
	if td.DeliveryID == "" {
		td.DeliveryID = fmt.Sprintf("tag-%d", d.DeliveryTag)
	}
	ctx = ctxutil.WithTraceData(ctx, td)
	log := c.log.With(td.LogFields()...)

	var msg EventMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		log.Warn("failed to unmarshal event message", "error", err)
		return OutcomeMalformed
	}
	userID, err := uuid.Parse(strings.TrimSpace(msg.UserID))
	if err != nil {
		log.Warn("event message has invalid user id", "type", msg.Type)
		return OutcomeMalformed
	}

	res, err := c.events.Ingest(ctx, services.IngestEventInput{
		UserID:     userID,
		Type:       msg.Type,
		Metadata:   msg.Metadata,
		OccurredAt: msg.OccurredAt,
		Source:     services.SourceQueue,
	})
	if err != nil {
		switch domainagg.CodeOf(err) {
		case domainagg.CodeValidation, domainagg.CodeNotFound:
			log.Warn("event message rejected", "user_id", userID, "type", msg.Type, "error", err)
			return OutcomeRejected
		default:
			log.Error("failed to ingest event message", "user_id", userID, "type", msg.Type, "error", err)
			return OutcomeRequeued
		}
	}
	log.Debug("event message ingested", "event_id", res.EventID, "type", msg.Type)
	return OutcomeAcked
}
