package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yungbote/minesafe-compliance/internal/app"
	"github.com/yungbote/minesafe-compliance/internal/messaging"
)

func main() {
	a, err := app.Bootstrap(false)
	if err != nil {
		fmt.Printf("Failed to init consumer: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if !a.Cfg.RabbitMQ.Enabled {
		a.Log.Error("RabbitMQ is disabled; set RABBITMQ_ENABLED=true and RABBITMQ_URL")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := a.Start(); err != nil {
		a.Log.Error("Background workers failed to start", "error", err)
		return
	}

	consumer := messaging.NewConsumer(a.Log, a.Services.Events)
	for {
		conn, err := messaging.Reconnect(ctx, a.Cfg.RabbitMQ, a.Log)
		if err != nil {
			// only ctx cancellation ends Reconnect
			a.Log.Info("Event consumer stopping")
			return
		}
		err = consumer.Run(ctx, conn)
		conn.Close()
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			a.Log.Info("Event consumer stopping")
			return
		}
		a.Log.Warn("Event consumer lost its channel, reconnecting", "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}
