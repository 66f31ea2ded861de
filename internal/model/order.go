package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus constants
const (
	OrderStatusOpen      = "open"
	OrderStatusPreparing = "preparing"
	OrderStatusServed    = "served"
	OrderStatusClosed    = "closed"
	OrderStatusCancelled = "cancelled"
	OrderStatusVoided    = "voided"
	OrderStatusRefunded  = "refunded"
)

// PaymentStatus constants
const (
	PaymentStatusUnpaid        = "unpaid"
	PaymentStatusPartial       = "partial"
	PaymentStatusPaid          = "paid"
	PaymentStatusPartialRefund = "partial_refund"
	PaymentStatusRefunded      = "refunded"
)

// Order is a customer order. Orders are created by order intake and only
// transitioned (refunded, voided) by the settlement services.
type Order struct {
	ID                  uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID            uuid.UUID       `gorm:"type:uuid;not null;index:idx_orders_scope" json:"tenant_id"`
	BranchID            uuid.UUID       `gorm:"type:uuid;not null;index:idx_orders_scope" json:"branch_id"`
	OrderNumber         string          `gorm:"type:varchar(50);not null" json:"order_number"`
	Status              string          `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	PaymentStatus       string          `gorm:"type:varchar(20);not null;default:'unpaid'" json:"payment_status"`
	Subtotal            decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"subtotal"`
	TaxAmount           decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"tax_amount"`
	DiscountAmount      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"discount_amount"`
	ServiceChargeAmount decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"service_charge_amount"`
	TotalAmount         decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_amount"`
	PaidAmount          decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"paid_amount"`
	RefundedAmount      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"refunded_amount"`
	TableID             *uuid.UUID      `gorm:"type:uuid;index" json:"table_id"`
	CreatedBy           *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	VoidedAt            *time.Time      `json:"voided_at"`
	VoidedBy            *uuid.UUID      `gorm:"type:uuid" json:"voided_by"`
	VoidReason          string          `gorm:"type:text" json:"void_reason"`
	Items               []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt           time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// RefundableAmount is what has been paid and not yet refunded.
func (o Order) RefundableAmount() decimal.Decimal {
	return o.PaidAmount.Sub(o.RefundedAmount)
}

// IsPaid reports whether any payment has been recorded against the order.
func (o Order) IsPaid() bool {
	switch o.PaymentStatus {
	case PaymentStatusPaid, PaymentStatusPartial, PaymentStatusPartialRefund:
		return true
	}
	return false
}

// OrderItem represents a line item within an Order
type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductName string          `gorm:"type:varchar(255);not null" json:"product_name"`
	Quantity    int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"line_total"`
	IsVoided    bool            `gorm:"not null;default:false" json:"is_voided"`
	VoidedAt    *time.Time      `json:"voided_at"`
	VoidedBy    *uuid.UUID      `gorm:"type:uuid" json:"voided_by"`
	VoidReason  string          `gorm:"type:text" json:"void_reason"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Payment method constants. Anything not cash or card settles in the "other" stream.
const (
	PaymentMethodCash  = "cash"
	PaymentMethodCard  = "card"
	PaymentMethodOther = "other"
)

// Payment is a tender recorded against an order by the checkout flow.
type Payment struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_payments_scope" json:"tenant_id"`
	BranchID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_payments_scope" json:"branch_id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	Method    string          `gorm:"type:varchar(30);not null" json:"method"` // cash, card, qris, transfer, voucher...
	Amount    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	CreatedAt time.Time       `gorm:"index" json:"created_at"`
}

// PaymentStream folds a raw payment method into the cash/card/other reconciliation streams.
func PaymentStream(method string) string {
	switch method {
	case PaymentMethodCash:
		return PaymentMethodCash
	case PaymentMethodCard, "credit_card", "debit_card", "debit", "credit":
		return PaymentMethodCard
	default:
		return PaymentMethodOther
	}
}
