package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShiftStatus constants
const (
	ShiftStatusOpen       = "open"
	ShiftStatusReconciled = "reconciled"
)

// Shift is a bounded period of cashier activity at a branch.
// At most one shift per (tenant, branch) is open; a reconciled shift is never written again.
type Shift struct {
	ID                  uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID            uuid.UUID       `gorm:"type:uuid;not null;index:idx_shifts_scope" json:"tenant_id"`
	BranchID            uuid.UUID       `gorm:"type:uuid;not null;index:idx_shifts_scope" json:"branch_id"`
	UserID              uuid.UUID       `gorm:"type:uuid;not null" json:"user_id"`
	Status              string          `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	StartedAt           time.Time       `gorm:"not null" json:"started_at"`
	EndedAt             *time.Time      `json:"ended_at"`
	ReconciledAt        *time.Time      `json:"reconciled_at"`
	ClosedBy            *uuid.UUID      `gorm:"type:uuid" json:"closed_by"`
	OpeningBalance      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"opening_balance"`
	TotalSales          decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_sales"`
	TotalRefunds        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_refunds"`
	OrderCount          int             `gorm:"type:int;not null;default:0" json:"order_count"`
	ExpectedCash        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"expected_cash"`
	ExpectedCard        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"expected_card"`
	ExpectedOther       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"expected_other"`
	ActualCash          decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"actual_cash"`
	ActualCard          decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"actual_card"`
	ActualOther         decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"actual_other"`
	CashVariance        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"cash_variance"`
	CardVariance        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"card_variance"`
	OtherVariance       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"other_variance"`
	TotalVariance       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_variance"`
	RequiresReview      bool            `gorm:"not null;default:false" json:"requires_review"`
	ReconciliationNotes string          `gorm:"type:text" json:"reconciliation_notes"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// CashSessionStatus constants
const (
	CashSessionOpen   = "open"
	CashSessionClosed = "closed"
)

// CashSession tracks the physical cash drawer of a branch while it is open.
type CashSession struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_cash_sessions_scope" json:"tenant_id"`
	BranchID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_cash_sessions_scope" json:"branch_id"`
	ShiftID      *uuid.UUID      `gorm:"type:uuid;index" json:"shift_id"`
	Status       string          `gorm:"type:varchar(20);not null;default:'open'" json:"status"`
	OpeningCash  decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"opening_cash"`
	CashSales    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"cash_sales"`
	TotalRefunds decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_refunds"`
	ExpectedCash decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"expected_cash"`
	OpenedAt     time.Time       `json:"opened_at"`
	ClosedAt     *time.Time      `json:"closed_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
