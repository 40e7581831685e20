package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/minesafe-compliance/internal/data/repos/safety"
	"github.com/yungbote/minesafe-compliance/internal/data/repos/user"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

type UserRepo = user.UserRepo

type EngagementEventRepo = safety.EngagementEventRepo
type DailySnapshotRepo = safety.DailySnapshotRepo
type BehaviorAlertRepo = safety.BehaviorAlertRepo

type ZoneActivity = safety.ZoneActivity

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }

func NewEngagementEventRepo(db *gorm.DB, baseLog *logger.Logger) EngagementEventRepo {
	return safety.NewEngagementEventRepo(db, baseLog)
}
func NewDailySnapshotRepo(db *gorm.DB, baseLog *logger.Logger) DailySnapshotRepo {
	return safety.NewDailySnapshotRepo(db, baseLog)
}
func NewBehaviorAlertRepo(db *gorm.DB, baseLog *logger.Logger) BehaviorAlertRepo {
	return safety.NewBehaviorAlertRepo(db, baseLog)
}
