package safety

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AlertType string

const (
	AlertLowCompliance    AlertType = "low_compliance"
	AlertPPENonCompliance AlertType = "ppe_non_compliance"
	AlertChecklistMissed  AlertType = "checklist_missed"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type AlertStatus string

const (
	AlertOpen         AlertStatus = "open"
	AlertAcknowledged AlertStatus = "acknowledged"
)

// BehaviorAlert allows at most one open row per (user, snapshot_date, type).
// The partial unique index backing that rule is created in data/db.Migrate.
type BehaviorAlert struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index:idx_behavior_alert_lookup,priority:1" json:"user_id"`
	SnapshotDate string         `gorm:"column:snapshot_date;size:10;not null;index:idx_behavior_alert_lookup,priority:2" json:"snapshotDate"`
	Type         AlertType      `gorm:"column:type;not null;index:idx_behavior_alert_lookup,priority:3" json:"type"`
	Severity     Severity       `gorm:"column:severity;not null" json:"severity"`
	Message      string         `gorm:"column:message;not null" json:"message"`
	Metadata     datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	Status       AlertStatus    `gorm:"column:status;not null;index:idx_behavior_alert_lookup,priority:4;index" json:"status"`

	AcknowledgedAt *time.Time `gorm:"column:acknowledged_at" json:"acknowledgedAt,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (BehaviorAlert) TableName() string { return "behavior_alert" }
