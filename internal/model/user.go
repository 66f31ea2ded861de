package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role constants
const (
	RoleOwner      = "owner"
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleSupervisor = "supervisor"
	RoleCashier    = "cashier"
	RoleWaiter     = "waiter"
)

// PrivilegedRoles may settle without manager approval and may act as approvers.
var PrivilegedRoles = []string{RoleAdmin, RoleManager, RoleOwner, RoleSupervisor}

// IsPrivilegedRole reports whether role belongs to PrivilegedRoles.
func IsPrivilegedRole(role string) bool {
	for _, r := range PrivilegedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User is a staff account. ManagerPINHash holds a bcrypt hash of the approval PIN.
type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	BranchID       *uuid.UUID     `gorm:"type:uuid;index" json:"branch_id"`
	Username       string         `gorm:"type:varchar(255);not null" json:"username"`
	Email          string         `gorm:"type:varchar(255)" json:"email"`
	Password       string         `gorm:"type:varchar(255);not null" json:"-"`
	Role           string         `gorm:"type:varchar(50);not null" json:"role"`
	ManagerPINHash *string        `gorm:"type:varchar(255)" json:"-"`
	IsActive       bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
