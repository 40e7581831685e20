package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/minesafe-compliance/internal/compliance"
	"github.com/yungbote/minesafe-compliance/internal/data/repos"
	types "github.com/yungbote/minesafe-compliance/internal/domain"
	domainagg "github.com/yungbote/minesafe-compliance/internal/domain/aggregates"
	"github.com/yungbote/minesafe-compliance/internal/domain/safety"
	"github.com/yungbote/minesafe-compliance/internal/observability"
	"github.com/yungbote/minesafe-compliance/internal/platform/dbctx"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

const (
	SourceHTTP  = "http"
	SourceQueue = "queue"
)

const auditTimeout = 3 * time.Second

// EventAuditor mirrors accepted events to an external store.
type EventAuditor interface {
	IndexEvent(ctx context.Context, ev *types.EngagementEvent, snapshotDate string) error
}

type IngestEventInput struct {
	UserID     uuid.UUID
	Type       string
	Metadata   map[string]any
	OccurredAt *time.Time
	Source     string
}

type IngestEventResult struct {
	EventID  uuid.UUID                      `json:"eventId"`
	Snapshot *types.DailyComplianceSnapshot `json:"snapshot,omitempty"`
	Opened   []*types.BehaviorAlert         `json:"openedAlerts,omitempty"`
}

type EventService interface {
	// Ingest appends the raw event, then folds it into the day's snapshot.
	// A failed fold leaves the logged event in place.
	Ingest(ctx context.Context, in IngestEventInput) (*IngestEventResult, error)
}

type EventServiceDeps struct {
	Log       *logger.Logger
	Users     repos.UserRepo
	Events    repos.EngagementEventRepo
	Aggregate domainagg.ComplianceAggregate
	Notifier  AlertNotifier
	Auditor   EventAuditor
	Now       func() time.Time
}

type eventService struct {
	log       *logger.Logger
	users     repos.UserRepo
	events    repos.EngagementEventRepo
	aggregate domainagg.ComplianceAggregate
	notifier  AlertNotifier
	auditor   EventAuditor
	now       func() time.Time
}

func NewEventService(deps EventServiceDeps) EventService {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &eventService{
		log:       log.With("service", "EventService"),
		users:     deps.Users,
		events:    deps.Events,
		aggregate: deps.Aggregate,
		notifier:  deps.Notifier,
		auditor:   deps.Auditor,
		now:       now,
	}
}

func (s *eventService) Ingest(ctx context.Context, in IngestEventInput) (res *IngestEventResult, err error) {
	const op = "events.ingest"
	source := in.Source
	if source == "" {
		source = SourceHTTP
	}
	ctx, span := observability.StartSpan(ctx, op,
		attribute.String("event.type", in.Type),
		attribute.String("event.source", source),
	)
	defer func() { observability.EndSpan(span, err) }()

	if s.aggregate == nil || s.events == nil {
		return nil, fmt.Errorf("event service not configured")
	}
	metrics := observability.Current()

	eventType := types.EventType(strings.TrimSpace(in.Type))
	if !eventType.Supported() {
		metrics.IncEventRejected(source, "unsupported_type")
		return nil, domainagg.Validation(op, "Unsupported engagement event type")
	}
	if in.UserID == uuid.Nil {
		metrics.IncEventRejected(source, "missing_user")
		return nil, domainagg.Validation(op, "user id is required")
	}
	md := in.Metadata
	if md == nil {
		md = map[string]any{}
	}
	occurredAt, err := resolveOccurredAt(in.OccurredAt, md, s.now)
	if err != nil {
		metrics.IncEventRejected(source, "bad_occurred_at")
		return nil, domainagg.Validation(op, err.Error())
	}

	dbc := dbctx.Background(ctx)
	var worker *types.UserSummary
	if s.users != nil {
		u, uerr := s.users.GetByID(dbc, in.UserID)
		if errors.Is(uerr, gorm.ErrRecordNotFound) {
			metrics.IncEventRejected(source, "unknown_user")
			return nil, domainagg.NotFound(op, "user not found")
		}
		if uerr != nil {
			return nil, domainagg.Wrap(domainagg.CodeInternal, op, uerr)
		}
		worker = u.Summary()
	}

	raw, err := json.Marshal(md)
	if err != nil {
		metrics.IncEventRejected(source, "bad_metadata")
		return nil, domainagg.Validation(op, "metadata is not serializable")
	}
	ev := &types.EngagementEvent{
		UserID:     in.UserID,
		Type:       eventType,
		Metadata:   datatypes.JSON(raw),
		OccurredAt: occurredAt,
	}
	if zone, ok := compliance.Zone(md); ok {
		ev.Zone = &zone
	}
	if err := s.events.Create(dbc, ev); err != nil {
		s.log.Error("Failed to log engagement event", "user_id", in.UserID, "type", eventType, "error", err)
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	folded, err := s.aggregate.FoldEvent(ctx, domainagg.FoldEventInput{
		UserID:     in.UserID,
		Type:       eventType,
		Metadata:   md,
		OccurredAt: occurredAt,
	})
	if err != nil {
		s.log.Error("Failed to update daily snapshot", "user_id", in.UserID, "event_id", ev.ID, "type", eventType, "error", err)
		return nil, err
	}

	metrics.IncEventIngested(string(eventType), source)
	if s.notifier != nil {
		for _, a := range folded.Opened {
			s.notifier.AlertOpened(ctx, a, worker)
		}
	}
	s.audit(ctx, ev)

	return &IngestEventResult{
		EventID:  ev.ID,
		Snapshot: folded.Snapshot,
		Opened:   folded.Opened,
	}, nil
}

func (s *eventService) audit(ctx context.Context, ev *types.EngagementEvent) {
	if s.auditor == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := s.auditor.IndexEvent(actx, ev, compliance.DateKey(ev.OccurredAt)); err != nil {
		observability.Current().IncAuditIndexed("error")
		s.log.Warn("Audit mirror failed", "event_id", ev.ID, "error", err)
		return
	}
	observability.Current().IncAuditIndexed("ok")
}

// resolveOccurredAt prefers the explicit time, then metadata.occurredAt, then now.
func resolveOccurredAt(explicit *time.Time, md map[string]any, now func() time.Time) (time.Time, error) {
	if explicit != nil && !explicit.IsZero() {
		return explicit.UTC(), nil
	}
	raw, ok := md[safety.MetaOccurredAt]
	if !ok || raw == nil {
		return now().UTC(), nil
	}
	switch v := raw.(type) {
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return now().UTC(), nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", compliance.DateLayout} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("metadata.occurredAt is not a valid timestamp")
	case float64:
		// epoch milliseconds
		return time.UnixMilli(int64(v)).UTC(), nil
	case json.Number:
		ms, err := v.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("metadata.occurredAt is not a valid timestamp")
		}
		return time.UnixMilli(ms).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("metadata.occurredAt is not a valid timestamp")
	}
}
