package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/minesafe-compliance/internal/data/repos"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

type Repos struct {
	User      repos.UserRepo
	Events    repos.EngagementEventRepo
	Snapshots repos.DailySnapshotRepo
	Alerts    repos.BehaviorAlertRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:      repos.NewUserRepo(db, log),
		Events:    repos.NewEngagementEventRepo(db, log),
		Snapshots: repos.NewDailySnapshotRepo(db, log),
		Alerts:    repos.NewBehaviorAlertRepo(db, log),
	}
}
