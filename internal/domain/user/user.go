package user

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleWorker      Role = "worker"
	RoleSupervisor  Role = "supervisor"
	RoleAdmin       Role = "admin"
	RoleDGMSOfficer Role = "dgms_officer"
)

// OversightRoles may read cross-worker views and act on alerts.
var OversightRoles = []Role{RoleSupervisor, RoleAdmin, RoleDGMSOfficer}

// RosterRoles are counted as eligible workers in the supervisor overview.
var RosterRoles = []Role{RoleWorker, RoleSupervisor}

func (r Role) Valid() bool {
	switch r {
	case RoleWorker, RoleSupervisor, RoleAdmin, RoleDGMSOfficer:
		return true
	default:
		return false
	}
}

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name     string    `gorm:"not null;column:name" json:"name"`
	Email    string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password string    `gorm:"not null;column:password" json:"-"`
	Role     Role      `gorm:"not null;column:role;index" json:"role"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "user" }

// Summary is the public projection joined into reports and alert listings.
type Summary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}

func (u *User) Summary() *Summary {
	if u == nil {
		return nil
	}
	return &Summary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
