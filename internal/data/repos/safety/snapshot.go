package safety

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/minesafe-compliance/internal/domain"
	"github.com/yungbote/minesafe-compliance/internal/platform/dbctx"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

type DailySnapshotRepo interface {
	// GetOrCreateForUpdate returns the (user, date) row locked for the
	// caller's transaction, inserting a zero-valued row first when missing.
	GetOrCreateForUpdate(dbc dbctx.Context, userID uuid.UUID, date string) (*types.DailyComplianceSnapshot, error)
	// GetByUserAndDate is a plain read; nil, nil when absent.
	GetByUserAndDate(dbc dbctx.Context, userID uuid.UUID, date string) (*types.DailyComplianceSnapshot, error)
	Save(dbc dbctx.Context, snap *types.DailyComplianceSnapshot) error
	ListByUserBetween(dbc dbctx.Context, userID uuid.UUID, start, end string) ([]*types.DailyComplianceSnapshot, error)
	ListBetween(dbc dbctx.Context, start, end string) ([]*types.DailyComplianceSnapshot, error)
}

type dailySnapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDailySnapshotRepo(db *gorm.DB, baseLog *logger.Logger) DailySnapshotRepo {
	return &dailySnapshotRepo{db: db, log: baseLog.With("repo", "DailySnapshotRepo")}
}

func (r *dailySnapshotRepo) GetOrCreateForUpdate(dbc dbctx.Context, userID uuid.UUID, date string) (*types.DailyComplianceSnapshot, error) {
	if userID == uuid.Nil || date == "" {
		return nil, gorm.ErrRecordNotFound
	}
	conn := dbc.Conn(r.db)

	now := time.Now().UTC()
	fresh := &types.DailyComplianceSnapshot{
		ID:        uuid.New(),
		UserID:    userID,
		Date:      date,
		RiskLevel: types.RiskHigh,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := conn.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoNothing: true,
		}).
		Create(fresh).Error; err != nil {
		return nil, err
	}

	var out types.DailyComplianceSnapshot
	if err := conn.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND date = ?", userID, date).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *dailySnapshotRepo) GetByUserAndDate(dbc dbctx.Context, userID uuid.UUID, date string) (*types.DailyComplianceSnapshot, error) {
	var out types.DailyComplianceSnapshot
	err := dbc.Conn(r.db).
		Where("user_id = ? AND date = ?", userID, date).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *dailySnapshotRepo) Save(dbc dbctx.Context, snap *types.DailyComplianceSnapshot) error {
	if snap == nil || snap.ID == uuid.Nil {
		return gorm.ErrRecordNotFound
	}
	snap.UpdatedAt = time.Now().UTC()
	res := dbc.Conn(r.db).
		Model(&types.DailyComplianceSnapshot{}).
		Where("id = ?", snap.ID).
		Select(
			"metrics",
			"compliance_score",
			"risk_level",
			"streak_count",
			"streak_seeded",
			"last_event_type",
			"last_event_metadata",
			"last_event_at",
			"updated_at",
		).
		Updates(snap)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *dailySnapshotRepo) ListByUserBetween(dbc dbctx.Context, userID uuid.UUID, start, end string) ([]*types.DailyComplianceSnapshot, error) {
	out := []*types.DailyComplianceSnapshot{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, start, end).
		Order("date ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *dailySnapshotRepo) ListBetween(dbc dbctx.Context, start, end string) ([]*types.DailyComplianceSnapshot, error) {
	out := []*types.DailyComplianceSnapshot{}
	if err := dbc.Conn(r.db).
		Where("date >= ? AND date <= ?", start, end).
		Order("date ASC, user_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
