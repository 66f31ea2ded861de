package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"posbackend/internal/events"
	"posbackend/internal/model"
	"posbackend/pkg/money"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type VoidOrderRequest struct {
	OrderID    string `json:"order_id" binding:"required"`
	Reason     string `json:"reason" binding:"required,max=500"`
	ManagerPIN string `json:"manager_pin"`
}

type VoidedOrder struct {
	ID                      string `json:"id"`
	OrderNumber             string `json:"order_number"`
	Status                  string `json:"status"`
	Reason                  string `json:"reason"`
	VoidedAt                string `json:"voided_at"`
	VoidedBy                string `json:"voided_by"`
	ApprovedBy              string `json:"approved_by"`
	ApprovedByName          string `json:"approved_by_name"`
	TotalAmount             string `json:"total_amount"`
	ItemsVoided             int64  `json:"items_voided"`
	TableFreed              bool   `json:"table_freed"`
	TableNumber             string `json:"table_number,omitempty"`
	KitchenTicketsCancelled int64  `json:"kitchen_tickets_cancelled"`
}

type VoidOrderResponse struct {
	Success bool        `json:"success"`
	Order   VoidedOrder `json:"order"`
}

// --- Interface ---

type VoidService interface {
	VoidOrder(ctx context.Context, sc SettlementContext, req VoidOrderRequest) (VoidOrderResponse, error)
}

type voidService struct {
	deps SettlementDeps
	now  func() time.Time
}

func NewVoidService(deps SettlementDeps) VoidService {
	return &voidService{deps: deps.withDefaults(), now: time.Now}
}

// --- Implementation ---

func (s *voidService) VoidOrder(ctx context.Context, sc SettlementContext, req VoidOrderRequest) (VoidOrderResponse, error) {
	if err := sc.validate(); err != nil {
		return VoidOrderResponse{}, err
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return VoidOrderResponse{}, validationError("invalid order_id")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return VoidOrderResponse{}, validationError("reason is required")
	}
	if err := s.deps.Limiter.Allow(ctx, sc.TenantID, sc.UserID); err != nil {
		return VoidOrderResponse{}, err
	}

	var resp VoidOrderResponse
	var voidedAt time.Time

	err = s.deps.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.deps.Orders.FindByIDForUpdate(txCtx, sc.Scope(), orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}

		policy, err := s.deps.Policies.Resolve(txCtx, sc.TenantID)
		if err != nil {
			return err
		}

		if err := checkVoidEligibility(*order, policy); err != nil {
			return err
		}

		decision, err := s.deps.Gate.Evaluate(txCtx, sc, ApprovalRequest{
			Operation:  "void",
			Reasons:    voidApprovalReasons(policy, sc, *order),
			Amount:     &order.TotalAmount,
			Credential: strings.TrimSpace(req.ManagerPIN),
		})
		if err != nil {
			return err
		}

		now := s.now()
		voidedAt = now
		previousStatus := order.Status

		if err := s.deps.Orders.MarkVoided(txCtx, order.ID, sc.UserID, reason, now); err != nil {
			return fmt.Errorf("failed to void order: %w", err)
		}

		var itemsVoided int64
		if s.deps.Capabilities.ItemVoidColumns {
			itemsVoided, err = s.deps.Orders.VoidItems(txCtx, order.ID, nil, sc.UserID, reason, now)
			if err != nil {
				return fmt.Errorf("failed to void order items: %w", err)
			}
		}

		var (
			tableNumber string
			tableFreed  bool
		)
		if order.TableID != nil && s.deps.Capabilities.RestaurantTables {
			tableNumber, tableFreed, err = s.deps.Tables.Release(txCtx, sc.Scope(), *order.TableID, order.ID)
			if err != nil {
				return fmt.Errorf("failed to release table: %w", err)
			}
		}

		var ticketsCancelled int64
		if s.deps.Capabilities.KitchenTickets {
			ticketsCancelled, err = s.deps.Kitchen.CancelOpenTickets(txCtx, order.ID, "order voided: "+reason, now)
			if err != nil {
				return fmt.Errorf("failed to cancel kitchen tickets: %w", err)
			}
		}

		resp = VoidOrderResponse{
			Success: true,
			Order: VoidedOrder{
				ID:                      order.ID.String(),
				OrderNumber:             order.OrderNumber,
				Status:                  model.OrderStatusVoided,
				Reason:                  reason,
				VoidedAt:                now.Format(time.RFC3339),
				VoidedBy:                sc.UserID.String(),
				ApprovedBy:              decision.ApprovedBy.String(),
				ApprovedByName:          decision.ApproverName,
				TotalAmount:             money.Format(order.TotalAmount),
				ItemsVoided:             itemsVoided,
				TableFreed:              tableFreed,
				TableNumber:             tableNumber,
				KitchenTicketsCancelled: ticketsCancelled,
			},
		}

		return s.deps.Audit.Write(txCtx, sc, AuditEntry{
			Action:     model.ActionVoided,
			EntityType: model.EntityOrder,
			EntityID:   order.ID.String(),
			Details: map[string]interface{}{
				"order_number":              order.OrderNumber,
				"previous_status":           previousStatus,
				"payment_status":            order.PaymentStatus,
				"total_amount":              money.Format(order.TotalAmount),
				"paid_amount":               money.Format(order.PaidAmount),
				"reason":                    reason,
				"items_voided":              itemsVoided,
				"table_freed":               tableFreed,
				"table_number":              tableNumber,
				"kitchen_tickets_cancelled": ticketsCancelled,
				"approval_state":            string(decision.State),
				"approval_reasons":          decision.Reasons,
				"approved_by":               decision.ApprovedBy.String(),
				"approved_by_name":          decision.ApproverName,
			},
		})
	})
	if err != nil {
		err = translateError(err)
		s.deps.logFailure("void_order", sc, err)
		return VoidOrderResponse{}, err
	}

	s.deps.publish(ctx, sc, events.TypeOrderVoided, map[string]interface{}{
		"order_id":     resp.Order.ID,
		"order_number": resp.Order.OrderNumber,
		"table_freed":  resp.Order.TableFreed,
		"table_number": resp.Order.TableNumber,
	}, voidedAt)

	return resp, nil
}
