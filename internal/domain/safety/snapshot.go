package safety

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// DailyMetrics is the per-user per-day fold of engagement events.
type DailyMetrics struct {
	LoginCount              int     `json:"loginCount"`
	ChecklistsCompleted     int     `json:"checklistsCompleted"`
	ChecklistItemsCompleted int     `json:"checklistItemsCompleted"`
	TotalChecklistItems     int     `json:"totalChecklistItems"`
	ChecklistCompletionRate float64 `json:"checklistCompletionRate"`
	VideosStarted           int     `json:"videosStarted"`
	VideosCompleted         int     `json:"videosCompleted"`
	VideoMilestones         int     `json:"videoMilestones"`
	VideoWatchSeconds       float64 `json:"videoWatchSeconds"`
	HazardsReported         int     `json:"hazardsReported"`
	Acknowledgements        int     `json:"acknowledgements"`
	PPEChecksPassed         int     `json:"ppeChecksPassed"`
	PPEChecksFailed         int     `json:"ppeChecksFailed"`
	QuizAttempts            int     `json:"quizAttempts"`
	QuizAverageScore        float64 `json:"quizAverageScore"`
	EngagementMinutes       float64 `json:"engagementMinutes"`
	NudgesAcknowledged      int     `json:"nudgesAcknowledged"`
}

// DailyComplianceSnapshot is unique per (user_id, date).
type DailyComplianceSnapshot struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_snapshot_user_date,priority:1" json:"user_id"`
	Date   string    `gorm:"column:date;size:10;not null;uniqueIndex:idx_snapshot_user_date,priority:2;index" json:"date"`

	Metrics         DailyMetrics `gorm:"column:metrics;type:jsonb;serializer:json;not null" json:"metrics"`
	ComplianceScore int          `gorm:"column:compliance_score;not null" json:"complianceScore"`
	RiskLevel       RiskLevel    `gorm:"column:risk_level;not null" json:"riskLevel"`
	StreakCount     int          `gorm:"column:streak_count;not null" json:"streakCount"`
	StreakSeeded    bool         `gorm:"column:streak_seeded;not null" json:"streakSeeded"`

	LastEventType     EventType      `gorm:"column:last_event_type" json:"lastEventType,omitempty"`
	LastEventMetadata datatypes.JSON `gorm:"column:last_event_metadata;type:jsonb" json:"lastEventMetadata,omitempty"`
	LastEventAt       *time.Time     `gorm:"column:last_event_at" json:"lastEventAt,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (DailyComplianceSnapshot) TableName() string { return "daily_compliance_snapshot" }
