package model

import (
	"time"

	"github.com/google/uuid"
)

// Settlement audit actions
const (
	ActionShiftCompleted = "shift_completed"
	ActionRefunded       = "refunded"
	ActionVoided         = "voided"
)

// Audited entity types
const (
	EntityShift = "shift"
	EntityOrder = "order"
)

// AuditLog tracks Who, What, and When for settlement operations. Rows are append-only.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_audit_scope" json:"tenant_id"`
	BranchID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_audit_scope" json:"branch_id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType string     `gorm:"type:varchar(30);not null" json:"entity_type"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	Details    string     `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	IPAddress  string     `gorm:"type:varchar(64)" json:"ip_address"`
	UserAgent  string     `gorm:"type:text" json:"user_agent"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
