package repository

import (
	"context"
	"errors"
	"time"

	"posbackend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TableRepository manages the dine-in floor map
type TableRepository interface {
	Release(ctx context.Context, scope Scope, tableID, orderID uuid.UUID) (tableNumber string, freed bool, err error)
}

type tableRepository struct {
	db *gorm.DB
}

func NewTableRepository(db *gorm.DB) TableRepository {
	return &tableRepository{db: db}
}

// Release frees the table when it is still held by orderID. A table already
// reassigned to another order keeps its state.
func (r *tableRepository) Release(ctx context.Context, scope Scope, tableID, orderID uuid.UUID) (string, bool, error) {
	var table model.RestaurantTable
	db := GetDB(ctx, r.db)
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND tenant_id = ? AND branch_id = ?", tableID, scope.TenantID, scope.BranchID).
		First(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}

	if table.CurrentOrderID != nil && *table.CurrentOrderID != orderID {
		return table.TableNumber, false, nil
	}

	if err := db.Model(&model.RestaurantTable{}).Where("id = ?", table.ID).Updates(map[string]interface{}{
		"status":           model.TableStatusAvailable,
		"current_order_id": nil,
	}).Error; err != nil {
		return table.TableNumber, false, err
	}
	return table.TableNumber, true, nil
}

// KitchenRepository manages kitchen display tickets
type KitchenRepository interface {
	CancelOpenTickets(ctx context.Context, orderID uuid.UUID, reason string, at time.Time) (int64, error)
}

type kitchenRepository struct {
	db *gorm.DB
}

func NewKitchenRepository(db *gorm.DB) KitchenRepository {
	return &kitchenRepository{db: db}
}

func (r *kitchenRepository) CancelOpenTickets(ctx context.Context, orderID uuid.UUID, reason string, at time.Time) (int64, error) {
	result := GetDB(ctx, r.db).Model(&model.KitchenTicket{}).
		Where("order_id = ? AND status IN ?", orderID, []string{model.KitchenTicketPending, model.KitchenTicketInProgress}).
		Updates(map[string]interface{}{
			"status":        model.KitchenTicketCancelled,
			"cancel_reason": reason,
			"cancelled_at":  at,
		})
	return result.RowsAffected, result.Error
}

// CashSessionRepository adjusts the open cash drawer session
type CashSessionRepository interface {
	RecordRefund(ctx context.Context, scope Scope, amount decimal.Decimal) (bool, error)
}

type cashSessionRepository struct {
	db *gorm.DB
}

func NewCashSessionRepository(db *gorm.DB) CashSessionRepository {
	return &cashSessionRepository{db: db}
}

// RecordRefund adds a cash refund to the branch's open drawer session. It reports
// false when no session is open.
func (r *cashSessionRepository) RecordRefund(ctx context.Context, scope Scope, amount decimal.Decimal) (bool, error) {
	result := GetDB(ctx, r.db).Model(&model.CashSession{}).
		Where("tenant_id = ? AND branch_id = ? AND status = ?", scope.TenantID, scope.BranchID, model.CashSessionOpen).
		Updates(map[string]interface{}{
			"total_refunds": gorm.Expr("total_refunds + ?", amount),
			"expected_cash": gorm.Expr("expected_cash - ?", amount),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
