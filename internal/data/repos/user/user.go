package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/minesafe-compliance/internal/domain"
	"github.com/yungbote/minesafe-compliance/internal/platform/dbctx"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.User, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.User, error)
	EmailExists(dbc dbctx.Context, email string) (bool, error)
	CountByRoles(dbc dbctx.Context, roles []types.Role) (int64, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	if len(users) == 0 {
		return []*types.User{}, nil
	}
	now := time.Now().UTC()
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		u.Email = normalizeEmail(u.Email)
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		u.UpdatedAt = now
	}
	if err := dbc.Conn(r.db).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetByID returns gorm.ErrRecordNotFound when the user does not exist.
func (r *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	if id == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	var out types.User
	if err := dbc.Conn(r.db).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.User, error) {
	out := []*types.User{}
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.Conn(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userRepo) GetByEmail(dbc dbctx.Context, email string) (*types.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var out types.User
	if err := dbc.Conn(r.db).Where("email = ?", email).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userRepo) EmailExists(dbc dbctx.Context, email string) (bool, error) {
	var count int64
	if err := dbc.Conn(r.db).Model(&types.User{}).
		Where("email = ?", normalizeEmail(email)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepo) CountByRoles(dbc dbctx.Context, roles []types.Role) (int64, error) {
	var count int64
	if len(roles) == 0 {
		return 0, nil
	}
	if err := dbc.Conn(r.db).Model(&types.User{}).
		Where("role IN ?", roles).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
