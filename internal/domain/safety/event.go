package safety

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type EventType string

const (
	EventAppLogin                EventType = "app_login"
	EventAppLogout               EventType = "app_logout"
	EventChecklistViewed         EventType = "checklist_viewed"
	EventChecklistItemCompleted  EventType = "checklist_item_completed"
	EventChecklistCompleted      EventType = "checklist_completed"
	EventPPEConfirmed            EventType = "ppe_confirmed"
	EventPPESkipped              EventType = "ppe_skipped"
	EventVideoStarted            EventType = "video_started"
	EventVideoProgress           EventType = "video_progress"
	EventVideoCompleted          EventType = "video_completed"
	EventHazardReported          EventType = "hazard_reported"
	EventInstructionAcknowledged EventType = "instruction_acknowledged"
	EventQuizCompleted           EventType = "quiz_completed"
	EventNudgeAcknowledged       EventType = "nudge_acknowledged"
)

// SupportedEventTypes is the closed set accepted at ingestion.
var SupportedEventTypes = []EventType{
	EventAppLogin,
	EventAppLogout,
	EventChecklistViewed,
	EventChecklistItemCompleted,
	EventChecklistCompleted,
	EventPPEConfirmed,
	EventPPESkipped,
	EventVideoStarted,
	EventVideoProgress,
	EventVideoCompleted,
	EventHazardReported,
	EventInstructionAcknowledged,
	EventQuizCompleted,
	EventNudgeAcknowledged,
}

func (t EventType) Supported() bool {
	for _, s := range SupportedEventTypes {
		if s == t {
			return true
		}
	}
	return false
}

// Metadata keys recognised by the accumulator and the zone heatmap.
const (
	MetaTotalItems      = "totalItems"
	MetaCompleted       = "completed"
	MetaDeltaSeconds    = "deltaSeconds"
	MetaDurationSeconds = "durationSeconds"
	MetaScore           = "score"
	MetaZone            = "zone"
	MetaOccurredAt      = "occurredAt"
)

// EngagementEvent is the append-only raw event log row.
type EngagementEvent struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_engagement_event_user_time,priority:1" json:"user_id"`
	Type       EventType      `gorm:"column:type;not null;index" json:"type"`
	// Zone is nil when the event carried no zone tag, "" when the tag was blank.
	Zone       *string        `gorm:"column:zone;index:idx_engagement_event_zone_time,priority:1" json:"zone,omitempty"`
	Metadata   datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	OccurredAt time.Time      `gorm:"not null;index:idx_engagement_event_user_time,priority:2;index:idx_engagement_event_zone_time,priority:2" json:"occurred_at"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
}

func (EngagementEvent) TableName() string { return "engagement_event" }
