package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/minesafe-compliance/internal/domain"
)

// openAlertIndex enforces one open alert per (user, day, type). Both
// Postgres and SQLite accept partial unique indexes in this form.
const openAlertIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_behavior_alert_open_unique
ON behavior_alert (user_id, snapshot_date, type) WHERE status = 'open'`

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	if err := db.Exec(openAlertIndex).Error; err != nil {
		return fmt.Errorf("create open alert index: %w", err)
	}
	return nil
}
