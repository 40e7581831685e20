package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/minesafe-compliance/internal/domain/safety"
)

var ComplianceAggregateContract = Contract{
	Name:            "Safety.ComplianceAggregate",
	AggregateOwnsTx: true,
	LockScope:       LockScopeUserDay,
	Notes:           "Owns the accumulate, score, streak, persist and alert sequence for one (user, day) snapshot.",
}

// ComplianceAggregate owns the daily snapshot and alert invariants.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodeRetryable, CodeInternal.
type ComplianceAggregate interface {
	Aggregate

	// FoldEvent applies one already-logged event to its day's snapshot and
	// ensures the alerts it triggers are open, all in one transaction.
	FoldEvent(ctx context.Context, in FoldEventInput) (FoldEventResult, error)

	// EnsureAlert opens an alert unless one of the same type is already open
	// for the user and day.
	EnsureAlert(ctx context.Context, in EnsureAlertInput) (EnsureAlertResult, error)

	// AcknowledgeAlert moves an open alert to acknowledged. When ExpectType is
	// set, alerts of another type are reported as not found. Acknowledging an
	// already acknowledged alert succeeds with Transitioned false.
	AcknowledgeAlert(ctx context.Context, in AcknowledgeAlertInput) (AcknowledgeAlertResult, error)
}

type FoldEventInput struct {
	UserID     uuid.UUID
	Type       safety.EventType
	Metadata   map[string]any
	OccurredAt time.Time
}

type FoldEventResult struct {
	Snapshot *safety.DailyComplianceSnapshot
	// Opened holds alerts created by this event; already-open ones are not repeated.
	Opened []*safety.BehaviorAlert
}

type EnsureAlertInput struct {
	UserID   uuid.UUID
	DateKey  string
	Type     safety.AlertType
	Severity safety.Severity
	Message  string
	Metadata map[string]any
}

type EnsureAlertResult struct {
	Alert   *safety.BehaviorAlert
	Created bool
}

type AcknowledgeAlertInput struct {
	AlertID    uuid.UUID
	ExpectType safety.AlertType
	At         time.Time
}

type AcknowledgeAlertResult struct {
	Alert *safety.BehaviorAlert
	// Transitioned is true only for the call that moved the alert out of open.
	Transitioned bool
}
