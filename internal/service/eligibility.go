package service

import (
	"time"

	"posbackend/internal/model"
)

// checkRefundEligibility runs against a row already locked FOR UPDATE.
func checkRefundEligibility(order model.Order, policy Policy, now time.Time) error {
	if policy.RefundPeriodDays > 0 {
		deadline := order.CreatedAt.AddDate(0, 0, policy.RefundPeriodDays)
		if now.After(deadline) {
			return ErrRefundPeriodExpired.WithData(map[string]interface{}{
				"refund_period_days": policy.RefundPeriodDays,
				"order_created_at":   order.CreatedAt.Format(time.RFC3339),
			})
		}
	}
	if !order.IsPaid() && order.PaymentStatus != model.PaymentStatusRefunded {
		return ErrOrderNotPaid
	}
	if order.Status == model.OrderStatusVoided {
		return ErrInvalidOrderStatus.WithMessage("voided orders cannot be refunded")
	}
	if order.Status == model.OrderStatusRefunded || order.PaymentStatus == model.PaymentStatusRefunded {
		return ErrOrderAlreadyRefunded
	}
	if !order.RefundableAmount().IsPositive() {
		return ErrNoRefundableAmount
	}
	return nil
}

// checkVoidEligibility runs against a row already locked FOR UPDATE.
func checkVoidEligibility(order model.Order, policy Policy) error {
	if order.Status == model.OrderStatusVoided {
		return ErrOrderAlreadyVoided
	}
	if order.IsPaid() && !policy.AllowVoidPaidOrders {
		return ErrCannotVoidPaidOrder
	}
	switch order.Status {
	case model.OrderStatusClosed, model.OrderStatusRefunded, model.OrderStatusCancelled:
		return ErrInvalidOrderStatus.WithMessage("orders in status %s cannot be voided", order.Status)
	}
	return nil
}
