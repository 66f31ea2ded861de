package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"posbackend/internal/events"
	"posbackend/internal/model"
	"posbackend/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type RefundOrderRequest struct {
	OrderID      string   `json:"order_id" binding:"required"`
	RefundType   string   `json:"refund_type" binding:"required,oneof=full partial item"`
	Reason       string   `json:"reason" binding:"required,max=500"`
	Amount       *string  `json:"amount"`   // partial refunds only
	ItemIDs      []string `json:"item_ids"` // item refunds only
	RefundMethod string   `json:"refund_method" binding:"omitempty,oneof=cash card other"`
	ApprovalPIN  string   `json:"approval_pin"`
}

type RefundBreakdown struct {
	ItemsSubtotal string   `json:"items_subtotal"`
	TaxShare      string   `json:"tax_share"`
	ServiceShare  string   `json:"service_charge_share"`
	DiscountShare string   `json:"discount_share"`
	Capped        bool     `json:"capped"`
	ItemIDs       []string `json:"item_ids"`
}

type RefundSummary struct {
	ID             string           `json:"id"`
	RefundNo       string           `json:"refund_no"`
	Type           string           `json:"type"`
	Method         string           `json:"method"`
	Amount         string           `json:"amount"`
	Status         string           `json:"status"`
	ApprovedBy     string           `json:"approved_by"`
	ApprovedByName string           `json:"approved_by_name"`
	ProcessedBy    string           `json:"processed_by"`
	PaymentStatus  string           `json:"payment_status"`
	OrderStatus    string           `json:"order_status"`
	Breakdown      *RefundBreakdown `json:"breakdown,omitempty"`
}

type OrderBalance struct {
	ID            string `json:"id"`
	OrderNumber   string `json:"order_number"`
	TotalPaid     string `json:"total_paid"`
	TotalRefunded string `json:"total_refunded"`
	Remaining     string `json:"remaining"`
}

type RefundOrderResponse struct {
	Success bool          `json:"success"`
	Refund  RefundSummary `json:"refund"`
	Order   OrderBalance  `json:"order"`
}

// --- Interface ---

type RefundService interface {
	RefundOrder(ctx context.Context, sc SettlementContext, req RefundOrderRequest) (RefundOrderResponse, error)
}

type refundService struct {
	deps SettlementDeps
	now  func() time.Time
}

func NewRefundService(deps SettlementDeps) RefundService {
	return &refundService{deps: deps.withDefaults(), now: time.Now}
}

// --- Implementation ---

type refundInput struct {
	orderID uuid.UUID
	kind    string
	reason  string
	amount  decimal.Decimal
	itemIDs []uuid.UUID
	method  string
	pin     string
}

func parseRefundRequest(req RefundOrderRequest) (refundInput, error) {
	in := refundInput{
		kind:   req.RefundType,
		reason: strings.TrimSpace(req.Reason),
		method: req.RefundMethod,
		pin:    strings.TrimSpace(req.ApprovalPIN),
	}

	id, err := uuid.Parse(req.OrderID)
	if err != nil {
		return in, validationError("invalid order_id")
	}
	in.orderID = id

	if in.reason == "" {
		return in, validationError("reason is required")
	}

	switch in.method {
	case "", model.PaymentMethodCash, model.PaymentMethodCard, model.PaymentMethodOther:
	default:
		return in, validationError("refund_method must be one of cash, card, other")
	}

	switch in.kind {
	case model.RefundTypeFull:
	case model.RefundTypePartial:
		if req.Amount == nil || strings.TrimSpace(*req.Amount) == "" {
			return in, validationError("amount is required for partial refunds")
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(*req.Amount))
		if err != nil {
			return in, validationError("invalid amount")
		}
		if !amount.IsPositive() {
			return in, ErrInvalidRefundAmount
		}
		if money.HasSubCent(amount) {
			return in, validationError("amount must have at most two decimals")
		}
		in.amount = amount
	case model.RefundTypeItem:
		if len(req.ItemIDs) == 0 {
			return in, validationError("item_ids is required for item refunds")
		}
		seen := make(map[uuid.UUID]bool, len(req.ItemIDs))
		for _, raw := range req.ItemIDs {
			itemID, err := uuid.Parse(raw)
			if err != nil {
				return in, validationError("invalid item id %q", raw)
			}
			if !seen[itemID] {
				seen[itemID] = true
				in.itemIDs = append(in.itemIDs, itemID)
			}
		}
	default:
		return in, validationError("refund_type must be one of full, partial, item")
	}
	return in, nil
}

func (s *refundService) RefundOrder(ctx context.Context, sc SettlementContext, req RefundOrderRequest) (RefundOrderResponse, error) {
	if err := sc.validate(); err != nil {
		return RefundOrderResponse{}, err
	}
	in, err := parseRefundRequest(req)
	if err != nil {
		return RefundOrderResponse{}, err
	}
	if err := s.deps.Limiter.Allow(ctx, sc.TenantID, sc.UserID); err != nil {
		return RefundOrderResponse{}, err
	}

	var resp RefundOrderResponse
	var processedAt time.Time

	err = s.deps.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.deps.Orders.FindByIDForUpdate(txCtx, sc.Scope(), in.orderID)
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

		now := s.now()
		processedAt = now
		if err := checkRefundEligibility(*order, policy, now); err != nil {
			return err
		}

		quote, err := s.quote(txCtx, *order, in)
		if err != nil {
			return err
		}
		amount := money.Round(quote.Amount)

		decision, err := s.deps.Gate.Evaluate(txCtx, sc, ApprovalRequest{
			Operation:  "refund",
			Reasons:    refundApprovalReasons(policy, sc, amount),
			Amount:     &amount,
			Credential: in.pin,
		})
		if err != nil {
			return err
		}

		method, err := s.refundMethod(txCtx, order.ID, in.method)
		if err != nil {
			return err
		}

		refundNo, err := s.deps.Refunds.NextRefundNo(txCtx, sc.TenantID, now)
		if err != nil {
			return err
		}

		itemIDs, err := json.Marshal(quote.ItemIDs)
		if err != nil {
			return fmt.Errorf("failed to encode refunded items: %w", err)
		}

		approvedBy := decision.ApprovedBy
		refund := &model.Refund{
			ID:           uuid.New(),
			TenantID:     sc.TenantID,
			BranchID:     sc.BranchID,
			OrderID:      order.ID,
			RefundNo:     refundNo,
			RefundType:   quote.Type,
			RefundMethod: method,
			Amount:       amount,
			Reason:       in.reason,
			ItemIDs:      string(itemIDs),
			ApprovedBy:   &approvedBy,
			ProcessedBy:  sc.UserID,
			Status:       model.RefundStatusCompleted,
			CreatedAt:    now,
		}
		if err := s.deps.Refunds.Create(txCtx, refund); err != nil {
			return fmt.Errorf("failed to create refund: %w", err)
		}

		outcome := ApplyRefund(*order, amount)
		if err := s.deps.Orders.ApplyRefund(txCtx, order.ID, outcome.RefundedAmount, outcome.PaymentStatus, outcome.OrderStatus); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}

		if quote.Type == model.RefundTypeItem && s.deps.Capabilities.ItemVoidColumns && len(quote.ItemIDs) > 0 {
			ids := make([]uuid.UUID, 0, len(quote.ItemIDs))
			for _, raw := range quote.ItemIDs {
				ids = append(ids, uuid.MustParse(raw))
			}
			if _, err := s.deps.Orders.VoidItems(txCtx, order.ID, ids, sc.UserID, "refunded: "+in.reason, now); err != nil {
				return fmt.Errorf("failed to void refunded items: %w", err)
			}
		}

		cashSessionAdjusted := false
		if method == model.PaymentMethodCash && s.deps.Capabilities.CashSessions {
			cashSessionAdjusted, err = s.deps.CashSessions.RecordRefund(txCtx, sc.Scope(), amount)
			if err != nil {
				return fmt.Errorf("failed to adjust cash session: %w", err)
			}
		}

		resp = RefundOrderResponse{
			Success: true,
			Refund: RefundSummary{
				ID:             refund.ID.String(),
				RefundNo:       refund.RefundNo,
				Type:           refund.RefundType,
				Method:         refund.RefundMethod,
				Amount:         money.Format(amount),
				Status:         refund.Status,
				ApprovedBy:     decision.ApprovedBy.String(),
				ApprovedByName: decision.ApproverName,
				ProcessedBy:    sc.UserID.String(),
				PaymentStatus:  outcome.PaymentStatus,
				OrderStatus:    outcome.OrderStatus,
			},
			Order: OrderBalance{
				ID:            order.ID.String(),
				OrderNumber:   order.OrderNumber,
				TotalPaid:     money.Format(order.PaidAmount),
				TotalRefunded: money.Format(outcome.RefundedAmount),
				Remaining:     money.Format(outcome.Remaining),
			},
		}
		if quote.Type == model.RefundTypeItem {
			resp.Refund.Breakdown = &RefundBreakdown{
				ItemsSubtotal: money.Format(quote.ItemsSubtotal),
				TaxShare:      money.Format(quote.TaxShare),
				ServiceShare:  money.Format(quote.ServiceShare),
				DiscountShare: money.Format(quote.DiscountShare),
				Capped:        quote.Capped,
				ItemIDs:       quote.ItemIDs,
			}
		}

		return s.deps.Audit.Write(txCtx, sc, AuditEntry{
			Action:     model.ActionRefunded,
			EntityType: model.EntityOrder,
			EntityID:   order.ID.String(),
			Details: map[string]interface{}{
				"refund_id":             refund.ID.String(),
				"refund_no":             refund.RefundNo,
				"refund_type":           refund.RefundType,
				"refund_method":         refund.RefundMethod,
				"amount":                money.Format(amount),
				"available_before":      money.Format(quote.Available),
				"refunded_before":       money.Format(order.RefundedAmount),
				"refunded_after":        money.Format(outcome.RefundedAmount),
				"payment_status":        outcome.PaymentStatus,
				"order_status":          outcome.OrderStatus,
				"breakdown":             resp.Refund.Breakdown,
				"reason":                in.reason,
				"approval_state":        string(decision.State),
				"approval_reasons":      decision.Reasons,
				"approved_by":           decision.ApprovedBy.String(),
				"approved_by_name":      decision.ApproverName,
				"cash_session_adjusted": cashSessionAdjusted,
			},
		})
	})
	if err != nil {
		err = translateError(err)
		s.deps.logFailure("refund_order", sc, err)
		return RefundOrderResponse{}, err
	}

	s.deps.publish(ctx, sc, events.TypeOrderRefunded, map[string]interface{}{
		"order_id":       resp.Order.ID,
		"refund_id":      resp.Refund.ID,
		"refund_no":      resp.Refund.RefundNo,
		"amount":         resp.Refund.Amount,
		"payment_status": resp.Refund.PaymentStatus,
		"order_status":   resp.Refund.OrderStatus,
	}, processedAt)

	return resp, nil
}

func (s *refundService) quote(ctx context.Context, order model.Order, in refundInput) (RefundQuote, error) {
	switch in.kind {
	case model.RefundTypePartial:
		return QuotePartialRefund(order, in.amount)
	case model.RefundTypeItem:
		items, err := s.deps.Orders.ListItems(ctx, order.ID)
		if err != nil {
			return RefundQuote{}, fmt.Errorf("failed to load order items: %w", err)
		}
		byID := make(map[uuid.UUID]model.OrderItem, len(items))
		for _, item := range items {
			byID[item.ID] = item
		}
		selected := make([]model.OrderItem, 0, len(in.itemIDs))
		var missing []string
		for _, id := range in.itemIDs {
			item, ok := byID[id]
			if !ok {
				missing = append(missing, id.String())
				continue
			}
			selected = append(selected, item)
		}
		if len(missing) > 0 {
			return RefundQuote{}, ErrInvalidItems.WithData(map[string]interface{}{"item_ids": missing})
		}
		return QuoteItemRefund(order, selected)
	default:
		return QuoteFullRefund(order)
	}
}

// refundMethod returns the requested method, else the stream of the order's
// largest payment, else cash.
func (s *refundService) refundMethod(ctx context.Context, orderID uuid.UUID, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	method, err := s.deps.Orders.PrimaryPaymentMethod(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve refund method: %w", err)
	}
	if method == "" {
		return model.PaymentMethodCash, nil
	}
	return model.PaymentStream(method), nil
}
