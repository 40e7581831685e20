package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	types "github.com/yungbote/minesafe-compliance/internal/domain"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

const DefaultIndex = "minesafe-engagement-events"

type Config struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// AuditIndexer mirrors accepted engagement events into a search index.
type AuditIndexer interface {
	IndexEvent(ctx context.Context, ev *types.EngagementEvent, snapshotDate string) error
	Health(ctx context.Context) error
}

type auditDoc struct {
	EventID      string          `json:"event_id"`
	UserID       string          `json:"user_id"`
	Type         string          `json:"type"`
	Zone         string          `json:"zone,omitempty"`
	SnapshotDate string          `json:"snapshot_date"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
	IndexedAt    time.Time       `json:"indexed_at"`
}

type auditIndexer struct {
	client *es.Client
	index  string
	log    *logger.Logger
}

func New(log *logger.Logger, cfg Config) (AuditIndexer, error) {
	if log == nil {
		log = logger.Nop()
	}
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("elasticsearch: at least one address is required")
	}
	client, err := es.NewClient(es.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	index := strings.TrimSpace(cfg.Index)
	if index == "" {
		index = DefaultIndex
	}
	return &auditIndexer{
		client: client,
		index:  index,
		log:    log.With("client", "AuditIndexer", "index", index),
	}, nil
}

func (a *auditIndexer) IndexEvent(ctx context.Context, ev *types.EngagementEvent, snapshotDate string) error {
	if ev == nil {
		return nil
	}
	doc := auditDoc{
		EventID:      ev.ID.String(),
		UserID:       ev.UserID.String(),
		Type:         string(ev.Type),
		SnapshotDate: snapshotDate,
		OccurredAt:   ev.OccurredAt.UTC(),
		IndexedAt:    time.Now().UTC(),
	}
	if ev.Zone != nil {
		doc.Zone = *ev.Zone
	}
	if len(ev.Metadata) > 0 {
		doc.Metadata = json.RawMessage(ev.Metadata)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	// Event id as document id keeps redelivered events idempotent.
	req := esapi.IndexRequest{
		Index:      a.index,
		DocumentID: doc.EventID,
		Body:       bytes.NewReader(raw),
	}
	res, err := req.Do(ctx, a.client)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("indexing failed: %s", res.String())
	}
	a.log.Debug("Engagement event indexed", "event_id", doc.EventID, "type", doc.Type)
	return nil
}

func (a *auditIndexer) Health(ctx context.Context) error {
	res, err := esapi.PingRequest{}.Do(ctx, a.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: %s", res.Status())
	}
	return nil
}
