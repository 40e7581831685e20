package domain

import (
	"github.com/yungbote/minesafe-compliance/internal/domain/safety"
	"github.com/yungbote/minesafe-compliance/internal/domain/user"
)

type EventType = safety.EventType
type RiskLevel = safety.RiskLevel
type AlertType = safety.AlertType
type AlertStatus = safety.AlertStatus
type Severity = safety.Severity

type EngagementEvent = safety.EngagementEvent
type DailyMetrics = safety.DailyMetrics
type DailyComplianceSnapshot = safety.DailyComplianceSnapshot
type BehaviorAlert = safety.BehaviorAlert

type Role = user.Role
type User = user.User
type UserSummary = user.Summary

const (
	EventAppLogin                = safety.EventAppLogin
	EventAppLogout               = safety.EventAppLogout
	EventChecklistViewed         = safety.EventChecklistViewed
	EventChecklistItemCompleted  = safety.EventChecklistItemCompleted
	EventChecklistCompleted      = safety.EventChecklistCompleted
	EventPPEConfirmed            = safety.EventPPEConfirmed
	EventPPESkipped              = safety.EventPPESkipped
	EventVideoStarted            = safety.EventVideoStarted
	EventVideoProgress           = safety.EventVideoProgress
	EventVideoCompleted          = safety.EventVideoCompleted
	EventHazardReported          = safety.EventHazardReported
	EventInstructionAcknowledged = safety.EventInstructionAcknowledged
	EventQuizCompleted           = safety.EventQuizCompleted
	EventNudgeAcknowledged       = safety.EventNudgeAcknowledged

	RiskLow    = safety.RiskLow
	RiskMedium = safety.RiskMedium
	RiskHigh   = safety.RiskHigh

	AlertLowCompliance    = safety.AlertLowCompliance
	AlertPPENonCompliance = safety.AlertPPENonCompliance
	AlertChecklistMissed  = safety.AlertChecklistMissed

	AlertOpen         = safety.AlertOpen
	AlertAcknowledged = safety.AlertAcknowledged

	SeverityLow    = safety.SeverityLow
	SeverityMedium = safety.SeverityMedium
	SeverityHigh   = safety.SeverityHigh

	RoleWorker      = user.RoleWorker
	RoleSupervisor  = user.RoleSupervisor
	RoleAdmin       = user.RoleAdmin
	RoleDGMSOfficer = user.RoleDGMSOfficer
)

// Models lists every table AutoMigrate owns.
func Models() []any {
	return []any{
		&User{},
		&EngagementEvent{},
		&DailyComplianceSnapshot{},
		&BehaviorAlert{},
	}
}
