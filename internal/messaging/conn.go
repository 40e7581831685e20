package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/streadway/amqp"

	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

type Config struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url"`
	Exchange   string `mapstructure:"exchange"`
	Queue      string `mapstructure:"queue"`
	RoutingKey string `mapstructure:"routing_key"`
	Prefetch   int    `mapstructure:"prefetch"`
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Exchange) == "" {
		c.Exchange = "minesafe"
	}
	if strings.TrimSpace(c.Queue) == "" {
		c.Queue = "engagement_events_queue"
	}
	if strings.TrimSpace(c.RoutingKey) == "" {
		c.RoutingKey = "engagement.event"
	}
	if c.Prefetch <= 0 {
		c.Prefetch = 16
	}
	return c
}

// Conn is a RabbitMQ connection with one channel and the event topology declared.
type Conn struct {
	Connection *amqp.Connection
	Channel    *amqp.Channel
	cfg        Config
}

func Dial(cfg Config) (Conn, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.URL) == "" {
		return Conn{}, fmt.Errorf("missing rabbitmq url")
	}
	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{Heartbeat: 10 * time.Second})
	if err != nil {
		return Conn{}, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return Conn{}, fmt.Errorf("failed to open a channel: %w", err)
	}
	c := Conn{Connection: conn, Channel: ch, cfg: cfg}

	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		c.Close()
		return Conn{}, fmt.Errorf("failed to declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		c.Close()
		return Conn{}, fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(cfg.Queue, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		c.Close()
		return Conn{}, fmt.Errorf("failed to bind queue: %w", err)
	}
	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		c.Close()
		return Conn{}, fmt.Errorf("failed to set qos: %w", err)
	}
	return c, nil
}

// Reconnect dials until it succeeds or ctx ends.
func Reconnect(ctx context.Context, cfg Config, log *logger.Logger) (Conn, error) {
	for {
		c, err := Dial(cfg)
		if err == nil {
			return c, nil
		}
		log.Error("cannot connect to RabbitMQ, retrying", "error", err)
		select {
		case <-ctx.Done():
			return Conn{}, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// Publish sends one event message; the seeding and load tools use it.
func (c Conn) Publish(body []byte) error {
	if c.Channel == nil {
		return fmt.Errorf("rabbitmq channel not open")
	}
	err := c.Channel.Publish(c.cfg.Exchange, c.cfg.RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("error publishing message: %w", err)
	}
	return nil
}

func (c Conn) Close() {
	if c.Channel != nil {
		_ = c.Channel.Close()
	}
	if c.Connection != nil {
		_ = c.Connection.Close()
	}
}
