package repository

import (
	"context"
	"fmt"
	"time"

	"posbackend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MethodTotal is an aggregated amount for one payment or refund method.
type MethodTotal struct {
	Method string          `gorm:"column:method"`
	Amount decimal.Decimal `gorm:"column:amount"`
	Count  int64           `gorm:"column:count"`
}

// ShiftSales aggregates branch activity inside a shift window.
type ShiftSales struct {
	OrderCount  int64
	VoidedCount int64
	Payments    []MethodTotal
	Refunds     []MethodTotal
}

type ShiftRepository interface {
	FindOpenForUpdate(ctx context.Context, scope Scope, shiftID *uuid.UUID) (*model.Shift, error)
	SalesSummary(ctx context.Context, scope Scope, from, to time.Time) (ShiftSales, error)
	Save(ctx context.Context, shift *model.Shift) error
}

type shiftRepository struct {
	db *gorm.DB
}

func NewShiftRepository(db *gorm.DB) ShiftRepository {
	return &shiftRepository{db: db}
}

// FindOpenForUpdate locks the requested open shift, or the most recently started
// open shift of the branch when shiftID is nil.
func (r *shiftRepository) FindOpenForUpdate(ctx context.Context, scope Scope, shiftID *uuid.UUID) (*model.Shift, error) {
	var shift model.Shift
	query := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND branch_id = ? AND status = ?", scope.TenantID, scope.BranchID, model.ShiftStatusOpen)
	if shiftID != nil {
		query = query.Where("id = ?", *shiftID)
	}
	if err := query.Order("started_at DESC").First(&shift).Error; err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *shiftRepository) SalesSummary(ctx context.Context, scope Scope, from, to time.Time) (ShiftSales, error) {
	var sales ShiftSales
	db := GetDB(ctx, r.db)

	if err := db.Model(&model.Payment{}).
		Select("method, COALESCE(SUM(amount), 0) AS amount, COUNT(*) AS count").
		Where("tenant_id = ? AND branch_id = ? AND created_at >= ? AND created_at <= ?", scope.TenantID, scope.BranchID, from, to).
		Group("method").
		Order("method").
		Scan(&sales.Payments).Error; err != nil {
		return ShiftSales{}, fmt.Errorf("failed to aggregate payments: %w", err)
	}

	if err := db.Model(&model.Refund{}).
		Select("refund_method AS method, COALESCE(SUM(amount), 0) AS amount, COUNT(*) AS count").
		Where("tenant_id = ? AND branch_id = ? AND status = ? AND created_at >= ? AND created_at <= ?",
			scope.TenantID, scope.BranchID, model.RefundStatusCompleted, from, to).
		Group("refund_method").
		Order("refund_method").
		Scan(&sales.Refunds).Error; err != nil {
		return ShiftSales{}, fmt.Errorf("failed to aggregate refunds: %w", err)
	}

	var counts struct {
		OrderCount  int64
		VoidedCount int64
	}
	if err := db.Model(&model.Order{}).
		Select("COUNT(*) FILTER (WHERE status NOT IN (?, ?)) AS order_count, COUNT(*) FILTER (WHERE status = ?) AS voided_count",
			model.OrderStatusVoided, model.OrderStatusCancelled, model.OrderStatusVoided).
		Where("tenant_id = ? AND branch_id = ? AND created_at >= ? AND created_at <= ?", scope.TenantID, scope.BranchID, from, to).
		Scan(&counts).Error; err != nil {
		return ShiftSales{}, fmt.Errorf("failed to count orders: %w", err)
	}
	sales.OrderCount = counts.OrderCount
	sales.VoidedCount = counts.VoidedCount

	return sales, nil
}

func (r *shiftRepository) Save(ctx context.Context, shift *model.Shift) error {
	return GetDB(ctx, r.db).Save(shift).Error
}
