package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RefundType constants
const (
	RefundTypeFull    = "full"
	RefundTypePartial = "partial"
	RefundTypeItem    = "item"
)

const RefundStatusCompleted = "completed"

// Refund records money returned to a customer against a paid order.
type Refund struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_refunds_tenant_no" json:"tenant_id"`
	BranchID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"branch_id"`
	OrderID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	RefundNo     string          `gorm:"type:varchar(30);not null;uniqueIndex:idx_refunds_tenant_no" json:"refund_no"`
	RefundType   string          `gorm:"type:varchar(20);not null" json:"refund_type"` // full, partial, item
	RefundMethod string          `gorm:"type:varchar(20);not null;default:'cash'" json:"refund_method"`
	Amount       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Reason       string          `gorm:"type:text;not null" json:"reason"`
	ItemIDs      string          `gorm:"type:jsonb" json:"item_ids"` // JSON array of refunded order_items.id
	ApprovedBy   *uuid.UUID      `gorm:"type:uuid" json:"approved_by"`
	ProcessedBy  uuid.UUID       `gorm:"type:uuid;not null" json:"processed_by"`
	Status       string          `gorm:"type:varchar(20);not null;default:'completed'" json:"status"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
}
