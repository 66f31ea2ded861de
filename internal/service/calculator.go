package service

import (
	"posbackend/internal/model"
	"posbackend/pkg/money"

	"github.com/shopspring/decimal"
)

// Variance status values
const (
	VarianceOK      = "ok"
	VarianceWarning = "warning"
)

// Streams holds one amount per reconciliation stream.
type Streams struct {
	Cash  decimal.Decimal
	Card  decimal.Decimal
	Other decimal.Decimal
}

func (s Streams) Total() decimal.Decimal {
	return money.Sum(s.Cash, s.Card, s.Other)
}

// ShiftTotals are the expected-side inputs of a reconciliation.
type ShiftTotals struct {
	OpeningBalance decimal.Decimal
	Sales          Streams
	CashRefunds    decimal.Decimal
}

// Reconciliation is the outcome of comparing expected and counted totals.
// Expected and actual streams are held at cents so the stored variances add up.
type Reconciliation struct {
	Expected       Streams
	Actual         Streams
	Variance       Streams
	TotalVariance  decimal.Decimal
	Threshold      decimal.Decimal
	RequiresReview bool
}

// Reconcile computes expected amounts and variances for a shift close.
// Review is required only when |total_variance| strictly exceeds threshold.
func Reconcile(totals ShiftTotals, actual Streams, threshold decimal.Decimal) Reconciliation {
	expected := Streams{
		Cash:  money.Round(totals.OpeningBalance.Add(totals.Sales.Cash).Sub(totals.CashRefunds)),
		Card:  money.Round(totals.Sales.Card),
		Other: money.Round(totals.Sales.Other),
	}
	actual = Streams{Cash: money.Round(actual.Cash), Card: money.Round(actual.Card), Other: money.Round(actual.Other)}
	variance := Streams{
		Cash:  actual.Cash.Sub(expected.Cash),
		Card:  actual.Card.Sub(expected.Card),
		Other: actual.Other.Sub(expected.Other),
	}
	total := variance.Total()

	return Reconciliation{
		Expected:       expected,
		Actual:         actual,
		Variance:       variance,
		TotalVariance:  total,
		Threshold:      threshold,
		RequiresReview: money.Round(total).Abs().GreaterThan(threshold),
	}
}

// Status reports "warning" for a variance whose magnitude exceeds the threshold.
func (r Reconciliation) Status() string {
	return VarianceStatus(r.TotalVariance, r.Threshold)
}

func VarianceStatus(variance, threshold decimal.Decimal) string {
	if money.Round(variance).Abs().GreaterThan(threshold) {
		return VarianceWarning
	}
	return VarianceOK
}

// RefundQuote is the computed amount of a refund before persistence.
type RefundQuote struct {
	Type          string
	Available     decimal.Decimal
	Amount        decimal.Decimal
	ItemsSubtotal decimal.Decimal
	TaxShare      decimal.Decimal
	ServiceShare  decimal.Decimal
	DiscountShare decimal.Decimal
	Capped        bool
	ItemIDs       []string
}

// QuoteFullRefund refunds everything paid and not yet refunded.
func QuoteFullRefund(order model.Order) (RefundQuote, error) {
	available := order.RefundableAmount()
	quote := RefundQuote{Type: model.RefundTypeFull, Available: available, Amount: available}
	if !quote.Amount.IsPositive() {
		return RefundQuote{}, ErrInvalidRefundAmount
	}
	return quote, nil
}

// QuotePartialRefund validates a caller-supplied amount against the refundable amount.
func QuotePartialRefund(order model.Order, amount decimal.Decimal) (RefundQuote, error) {
	available := order.RefundableAmount()
	if !money.Round(amount).IsPositive() {
		return RefundQuote{}, ErrInvalidRefundAmount
	}
	if money.Round(amount).GreaterThan(money.Round(available)) {
		return RefundQuote{}, ErrAmountExceedsAvail.WithData(map[string]interface{}{
			"requested": money.Format(amount),
			"available": money.Format(available),
		})
	}
	return RefundQuote{Type: model.RefundTypePartial, Available: available, Amount: amount}, nil
}

// QuoteItemRefund refunds the selected items' line totals plus their proportional
// share of tax and service charge, less their share of discount, capped at the
// refundable amount. Voided items contribute nothing.
func QuoteItemRefund(order model.Order, items []model.OrderItem) (RefundQuote, error) {
	available := order.RefundableAmount()

	lines := decimal.Zero
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.IsVoided {
			continue
		}
		lines = lines.Add(item.LineTotal)
		ids = append(ids, item.ID.String())
	}

	quote := RefundQuote{
		Type:          model.RefundTypeItem,
		Available:     available,
		ItemsSubtotal: lines,
		TaxShare:      decimal.Zero,
		ServiceShare:  decimal.Zero,
		DiscountShare: decimal.Zero,
		ItemIDs:       ids,
	}

	if order.Subtotal.IsPositive() {
		// Multiply before dividing to keep full precision across the split.
		quote.TaxShare = lines.Mul(order.TaxAmount).Div(order.Subtotal)
		quote.ServiceShare = lines.Mul(order.ServiceChargeAmount).Div(order.Subtotal)
		quote.DiscountShare = lines.Mul(order.DiscountAmount).Div(order.Subtotal)
	}

	amount := lines.Add(quote.TaxShare).Add(quote.ServiceShare).Sub(quote.DiscountShare)
	if amount.GreaterThan(available) {
		amount = available
		quote.Capped = true
	}
	quote.Amount = amount

	if !money.Round(amount).IsPositive() {
		return RefundQuote{}, ErrInvalidRefundAmount
	}
	return quote, nil
}

// RefundOutcome is the order state after a refund of amount is applied.
type RefundOutcome struct {
	RefundedAmount decimal.Decimal
	Remaining      decimal.Decimal
	PaymentStatus  string
	OrderStatus    string
}

// ApplyRefund computes the order's new refund totals and statuses. The order is
// fully refunded once refunded_amount reaches paid_amount within one cent.
func ApplyRefund(order model.Order, amount decimal.Decimal) RefundOutcome {
	refunded := money.Round(order.RefundedAmount.Add(amount))
	outcome := RefundOutcome{
		RefundedAmount: refunded,
		Remaining:      money.Round(order.PaidAmount.Sub(refunded)),
		PaymentStatus:  model.PaymentStatusPartialRefund,
		OrderStatus:    order.Status,
	}
	if money.AtLeast(refunded, order.PaidAmount) {
		outcome.PaymentStatus = model.PaymentStatusRefunded
		outcome.OrderStatus = model.OrderStatusRefunded
	}
	return outcome
}
