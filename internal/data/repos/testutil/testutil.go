package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/minesafe-compliance/internal/data/db"
	types "github.com/yungbote/minesafe-compliance/internal/domain"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB returns a migrated database private to the test. TEST_POSTGRES_DSN
// selects Postgres; otherwise a named in-memory SQLite database is used.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	cfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	}

	var (
		conn *gorm.DB
		err  error
	)
	if dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN")); dsn != "" {
		conn, err = gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			tb.Fatalf("open postgres: %v", err)
		}
		truncate(tb, conn)
	} else {
		name := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
		conn, err = gorm.Open(sqlite.Open(name), cfg)
		if err != nil {
			tb.Fatalf("open sqlite: %v", err)
		}
		sqlDB, err := conn.DB()
		if err != nil {
			tb.Fatalf("sqlite handle: %v", err)
		}
		sqlDB.SetMaxOpenConns(1)
		tb.Cleanup(func() { _ = sqlDB.Close() })
	}

	if err := db.AutoMigrateAll(conn); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	return conn
}

func truncate(tb testing.TB, conn *gorm.DB) {
	tb.Helper()
	if err := db.AutoMigrateAll(conn); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	for _, table := range []string{"behavior_alert", "daily_compliance_snapshot", "engagement_event", `"user"`} {
		if err := conn.Exec("DELETE FROM " + table).Error; err != nil {
			tb.Fatalf("truncate %s: %v", table, err)
		}
	}
}

// Tx opens a transaction rolled back at cleanup. With SQLite all work in the
// test must go through the returned handle.
func Tx(tb testing.TB, conn *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := conn.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, role types.Role) *types.User {
	tb.Helper()
	now := time.Now().UTC()
	u := &types.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "-" + uuid.NewString()[:8] + "@mine.example",
		Password:  "pw",
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedSnapshot(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, date string, score int, risk types.RiskLevel, streak int) *types.DailyComplianceSnapshot {
	tb.Helper()
	now := time.Now().UTC()
	s := &types.DailyComplianceSnapshot{
		ID:              uuid.New(),
		UserID:          userID,
		Date:            date,
		ComplianceScore: score,
		RiskLevel:       risk,
		StreakCount:     streak,
		StreakSeeded:    streak > 0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed snapshot: %v", err)
	}
	return s
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
