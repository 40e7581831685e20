package app

import (
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/minesafe-compliance/internal/clients/elasticsearch"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
	"github.com/yungbote/minesafe-compliance/internal/realtime/bus"
)

// Clients holds the optional integrations; each is nil when unconfigured.
type Clients struct {
	AlertBus bus.Bus
	Redis    *goredis.Client
	Audit    elasticsearch.AuditIndexer
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		b, rdb, err := bus.NewRedisBus(log, cfg.Redis)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis alert bus: %w", err)
		}
		out.AlertBus = b
		out.Redis = rdb
	}

	// Elasticsearch
	if cfg.Elasticsearch.Enabled {
		idx, err := elasticsearch.New(log, cfg.Elasticsearch)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init elasticsearch audit indexer: %w", err)
		}
		out.Audit = idx
	}
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.AlertBus != nil {
		_ = c.AlertBus.Close()
	}
}
