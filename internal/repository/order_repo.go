package repository

import (
	"context"
	"time"

	"posbackend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	FindByIDForUpdate(ctx context.Context, scope Scope, id uuid.UUID) (*model.Order, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error)
	PrimaryPaymentMethod(ctx context.Context, orderID uuid.UUID) (string, error)
	ApplyRefund(ctx context.Context, orderID uuid.UUID, refundedAmount decimal.Decimal, paymentStatus, status string) error
	MarkVoided(ctx context.Context, orderID uuid.UUID, voidedBy uuid.UUID, reason string, at time.Time) error
	VoidItems(ctx context.Context, orderID uuid.UUID, itemIDs []uuid.UUID, voidedBy uuid.UUID, reason string, at time.Time) (int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// FindByIDForUpdate loads the order with SELECT ... FOR UPDATE. Must run inside RunInTx.
func (r *orderRepository) FindByIDForUpdate(ctx context.Context, scope Scope, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND tenant_id = ? AND branch_id = ?", id, scope.TenantID, scope.BranchID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	var items []model.OrderItem
	if err := GetDB(ctx, r.db).Where("order_id = ?", orderID).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// PrimaryPaymentMethod returns the method carrying the largest share of the order's payments,
// or an empty string when the order has no payments.
func (r *orderRepository) PrimaryPaymentMethod(ctx context.Context, orderID uuid.UUID) (string, error) {
	var rows []struct {
		Method string
		Total  decimal.Decimal
	}
	if err := GetDB(ctx, r.db).Model(&model.Payment{}).
		Select("method, SUM(amount) AS total").
		Where("order_id = ?", orderID).
		Group("method").
		Order("total DESC").
		Limit(1).
		Scan(&rows).Error; err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].Method, nil
}

func (r *orderRepository) ApplyRefund(ctx context.Context, orderID uuid.UUID, refundedAmount decimal.Decimal, paymentStatus, status string) error {
	return GetDB(ctx, r.db).Model(&model.Order{}).Where("id = ?", orderID).Updates(map[string]interface{}{
		"refunded_amount": refundedAmount,
		"payment_status":  paymentStatus,
		"status":          status,
	}).Error
}

func (r *orderRepository) MarkVoided(ctx context.Context, orderID uuid.UUID, voidedBy uuid.UUID, reason string, at time.Time) error {
	return GetDB(ctx, r.db).Model(&model.Order{}).Where("id = ?", orderID).Updates(map[string]interface{}{
		"status":      model.OrderStatusVoided,
		"voided_at":   at,
		"voided_by":   voidedBy,
		"void_reason": reason,
	}).Error
}

// VoidItems marks the order's non-voided items as voided. A nil itemIDs voids every remaining item.
func (r *orderRepository) VoidItems(ctx context.Context, orderID uuid.UUID, itemIDs []uuid.UUID, voidedBy uuid.UUID, reason string, at time.Time) (int64, error) {
	query := GetDB(ctx, r.db).Model(&model.OrderItem{}).Where("order_id = ? AND is_voided = ?", orderID, false)
	if itemIDs != nil {
		if len(itemIDs) == 0 {
			return 0, nil
		}
		query = query.Where("id IN ?", itemIDs)
	}
	result := query.Updates(map[string]interface{}{
		"is_voided":   true,
		"voided_at":   at,
		"voided_by":   voidedBy,
		"void_reason": reason,
	})
	return result.RowsAffected, result.Error
}
