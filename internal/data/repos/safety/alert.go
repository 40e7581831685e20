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

type BehaviorAlertRepo interface {
	// FindOpen returns the open alert for (user, date, type) or nil, nil.
	FindOpen(dbc dbctx.Context, userID uuid.UUID, date string, alertType types.AlertType) (*types.BehaviorAlert, error)
	// CreateOpen inserts an open alert. created is false when another open
	// alert for the same key already exists.
	CreateOpen(dbc dbctx.Context, alert *types.BehaviorAlert) (created bool, err error)
	// EnsureOpen finds or creates the open alert for alert's key.
	EnsureOpen(dbc dbctx.Context, alert *types.BehaviorAlert) (*types.BehaviorAlert, bool, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.BehaviorAlert, error)
	ListOpen(dbc dbctx.Context, limit int, alertType *types.AlertType) ([]*types.BehaviorAlert, error)
}

type behaviorAlertRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBehaviorAlertRepo(db *gorm.DB, baseLog *logger.Logger) BehaviorAlertRepo {
	return &behaviorAlertRepo{db: db, log: baseLog.With("repo", "BehaviorAlertRepo")}
}

func (r *behaviorAlertRepo) FindOpen(dbc dbctx.Context, userID uuid.UUID, date string, alertType types.AlertType) (*types.BehaviorAlert, error) {
	var out types.BehaviorAlert
	err := dbc.Conn(r.db).
		Where("user_id = ? AND snapshot_date = ? AND type = ? AND status = ?", userID, date, alertType, types.AlertOpen).
		Order("created_at ASC").
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *behaviorAlertRepo) CreateOpen(dbc dbctx.Context, alert *types.BehaviorAlert) (bool, error) {
	if alert == nil {
		return false, nil
	}
	now := time.Now().UTC()
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	alert.Status = types.AlertOpen
	alert.AcknowledgedAt = nil
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	alert.UpdatedAt = now

	// The partial unique index on open alerts turns a concurrent duplicate into a no-op.
	res := dbc.Conn(r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(alert)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *behaviorAlertRepo) EnsureOpen(dbc dbctx.Context, alert *types.BehaviorAlert) (*types.BehaviorAlert, bool, error) {
	if alert == nil {
		return nil, false, nil
	}
	existing, err := r.FindOpen(dbc, alert.UserID, alert.SnapshotDate, alert.Type)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	created, err := r.CreateOpen(dbc, alert)
	if err != nil {
		return nil, false, err
	}
	if created {
		return alert, true, nil
	}
	existing, err = r.FindOpen(dbc, alert.UserID, alert.SnapshotDate, alert.Type)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, gorm.ErrRecordNotFound
	}
	return existing, false, nil
}

func (r *behaviorAlertRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.BehaviorAlert, error) {
	if id == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	var out types.BehaviorAlert
	if err := dbc.Conn(r.db).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOpen returns open alerts newest first, optionally narrowed to one type.
func (r *behaviorAlertRepo) ListOpen(dbc dbctx.Context, limit int, alertType *types.AlertType) ([]*types.BehaviorAlert, error) {
	out := []*types.BehaviorAlert{}
	q := dbc.Conn(r.db).Where("status = ?", types.AlertOpen)
	if alertType != nil {
		q = q.Where("type = ?", *alertType)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
