package model

import (
	"time"

	"github.com/google/uuid"
)

// TableStatus constants
const (
	TableStatusAvailable = "available"
	TableStatusOccupied  = "occupied"
	TableStatusReserved  = "reserved"
)

// RestaurantTable is a dine-in table on the floor map.
type RestaurantTable struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_tables_scope" json:"tenant_id"`
	BranchID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_tables_scope" json:"branch_id"`
	TableNumber    string     `gorm:"type:varchar(20);not null" json:"table_number"`
	Status         string     `gorm:"type:varchar(20);not null;default:'available'" json:"status"`
	CurrentOrderID *uuid.UUID `gorm:"type:uuid" json:"current_order_id"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// KitchenTicket status constants
const (
	KitchenTicketPending    = "pending"
	KitchenTicketInProgress = "in_progress"
	KitchenTicketReady      = "ready"
	KitchenTicketServed     = "served"
	KitchenTicketCancelled  = "cancelled"
)

// KitchenTicket is a unit of work on the kitchen display for one order.
type KitchenTicket struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	BranchID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"branch_id"`
	OrderID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"order_id"`
	Status       string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CancelReason string     `gorm:"type:text" json:"cancel_reason"`
	CancelledAt  *time.Time `json:"cancelled_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
