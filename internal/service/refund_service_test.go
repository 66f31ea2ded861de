package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"posbackend/internal/events"
	"posbackend/internal/model"
	"posbackend/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestRefundOrderPartial(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("100.00")

	resp, err := f.refundService().RefundOrder(context.Background(), f.cashier, RefundOrderRequest{
		OrderID:    order.ID.String(),
		RefundType: model.RefundTypePartial,
		Reason:     "cold soup",
		Amount:     strPtr("30.00"),
	})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "30.00", resp.Refund.Amount)
	assert.Equal(t, model.RefundTypePartial, resp.Refund.Type)
	assert.Equal(t, model.RefundStatusCompleted, resp.Refund.Status)
	assert.Equal(t, model.PaymentStatusPartialRefund, resp.Refund.PaymentStatus)
	assert.Equal(t, model.OrderStatusClosed, resp.Refund.OrderStatus)
	assert.Equal(t, "RF-20260314-00001", resp.Refund.RefundNo)
	assert.Equal(t, model.PaymentMethodCash, resp.Refund.Method)
	assert.Equal(t, f.cashier.UserID.String(), resp.Refund.ApprovedBy)
	assert.Equal(t, "100.00", resp.Order.TotalPaid)
	assert.Equal(t, "30.00", resp.Order.TotalRefunded)
	assert.Equal(t, "70.00", resp.Order.Remaining)

	stored := f.store.order(order.ID)
	assert.Equal(t, "30.00", money.Format(stored.RefundedAmount))
	assert.Equal(t, model.PaymentStatusPartialRefund, stored.PaymentStatus)

	refunds := f.store.refundRows()
	require.Len(t, refunds, 1)
	assert.Equal(t, f.cashier.UserID, refunds[0].ProcessedBy)
	require.NotNil(t, refunds[0].ApprovedBy)
	assert.Equal(t, f.cashier.UserID, *refunds[0].ApprovedBy)

	audits := f.store.auditRows()
	require.Len(t, audits, 1)
	assert.Equal(t, model.ActionRefunded, audits[0].Action)
	assert.Equal(t, order.ID.String(), audits[0].EntityID)
	assert.Equal(t, "10.0.0.7", audits[0].IPAddress)
	assert.Equal(t, "pos-terminal/2.1", audits[0].UserAgent)

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(audits[0].Details), &details))
	assert.Equal(t, "30.00", details["amount"])
	assert.Equal(t, "cold soup", details["reason"])
	assert.Equal(t, "req-1", details["request_id"])

	published := f.publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.TypeOrderRefunded, published[0].Type)
	assert.Equal(t, f.tenantID, published[0].TenantID)
}

func TestRefundOrderFull(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("80.00", func(o *model.Order) {
		o.PaymentStatus = model.PaymentStatusPartialRefund
		o.RefundedAmount = dec("20.00")
	})

	resp, err := f.refundService().RefundOrder(context.Background(), f.manager, RefundOrderRequest{
		OrderID:    order.ID.String(),
		RefundType: model.RefundTypeFull,
		Reason:     "customer complaint",
	})

	require.NoError(t, err)
	assert.Equal(t, "60.00", resp.Refund.Amount)
	assert.Equal(t, model.PaymentStatusRefunded, resp.Refund.PaymentStatus)
	assert.Equal(t, model.OrderStatusRefunded, resp.Refund.OrderStatus)
	assert.Equal(t, "0.00", resp.Order.Remaining)

	stored := f.store.order(order.ID)
	assert.Equal(t, model.OrderStatusRefunded, stored.Status)
	assert.True(t, stored.RefundedAmount.Equal(stored.PaidAmount))
}

func TestRefundOrderItemsAddsProportionalTax(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("220.00", func(o *model.Order) {
		o.Subtotal = dec("200.00")
		o.TaxAmount = dec("20.00")
	})
	soup := f.addItem(order.ID, "Soup", "25.00")
	bread := f.addItem(order.ID, "Bread", "15.00")
	f.addItem(order.ID, "Steak", "160.00")
	f.store.cashSessions = []model.CashSession{{
		ID: uuid.New(), TenantID: f.tenantID, BranchID: f.branchID, Status: model.CashSessionOpen,
		TotalRefunds: decimal.Zero, ExpectedCash: dec("500.00"),
	}}

	resp, err := f.refundService().RefundOrder(context.Background(), f.cashier, RefundOrderRequest{
		OrderID:    order.ID.String(),
		RefundType: model.RefundTypeItem,
		Reason:     "wrong dishes",
		ItemIDs:    []string{soup.ID.String(), bread.ID.String(), soup.ID.String()},
	})

	require.NoError(t, err)
	assert.Equal(t, "44.00", resp.Refund.Amount)
	require.NotNil(t, resp.Refund.Breakdown)
	assert.Equal(t, "40.00", resp.Refund.Breakdown.ItemsSubtotal)
	assert.Equal(t, "4.00", resp.Refund.Breakdown.TaxShare)
	assert.Equal(t, "176.00", resp.Order.Remaining)

	voided := map[string]bool{}
	for _, item := range f.store.orderItems(order.ID) {
		voided[item.ProductName] = item.IsVoided
	}
	assert.Equal(t, map[string]bool{"Soup": true, "Bread": true, "Steak": false}, voided)

	sessions := f.store.cashSessionRows()
	assert.Equal(t, "44.00", money.Format(sessions[0].TotalRefunds))
	assert.Equal(t, "456.00", money.Format(sessions[0].ExpectedCash))

	// The refunded items no longer count toward a second item refund.
	_, err = f.refundService().RefundOrder(context.Background(), f.cashier, RefundOrderRequest{
		OrderID:    order.ID.String(),
		RefundType: model.RefundTypeItem,
		Reason:     "again",
		ItemIDs:    []string{soup.ID.String()},
	})
	assert.ErrorIs(t, err, ErrInvalidRefundAmount)
}

func TestRefundOrderItemsRejectsForeignItems(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("50.00")
	f.addItem(order.ID, "Tea", "50.00")

	_, err := f.refundService().RefundOrder(context.Background(), f.cashier, RefundOrderRequest{
		OrderID:    order.ID.String(),
		RefundType: model.RefundTypeItem,
		Reason:     "mistake",
		ItemIDs:    []string{uuid.NewString()},
	})

	assert.ErrorIs(t, err, ErrInvalidItems)
	assert.Empty(t, f.store.refundRows())
}

func TestRefundOrderCardPaymentSkipsCashSession(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("40.00")
	f.store.payments[len(f.store.payments)-1].Method = "credit_card"
	f.store.cashSessions = []model.CashSession{{
		ID: uuid.New(), TenantID: f.tenantID, BranchID: f.branchID, Status: model.CashSessionOpen,
		TotalRefunds: decimal.Zero, ExpectedCash: dec("100.00"),
	}}

	resp, err := f.refundService().RefundOrder(context.Background(), f.cashier, RefundOrderRequest{
		OrderID:    order.ID.String(),
		RefundType: model.RefundTypeFull,
		Reason:     "duplicate charge",
	})

	require.NoError(t, err)
	assert.Equal(t, model.PaymentMethodCard, resp.Refund.Method)
	assert.Equal(t, "100.00", money.Format(f.store.cashSessionRows()[0].ExpectedCash))
}

func TestRefundOrderExceedingAvailableLeavesOrderUntouched(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("100.00")

	_, err := f.refundService().RefundOrder(context.Background(), f.cashier, RefundOrderRequest{
		OrderID:    order.ID.String(),
		RefundType: model.RefundTypePartial,
		Reason:     "typo",
		Amount:     strPtr("100.01"),
	})

	require.ErrorIs(t, err, ErrAmountExceedsAvail)
	assert.True(t, f.store.order(order.ID).RefundedAmount.IsZero())
	assert.Empty(t, f.store.refundRows())
	assert.Empty(t, f.store.auditRows())
	assert.Empty(t, f.publisher.published())
}

func TestRefundOrderValidation(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("10.00")
	svc := f.refundService()

	tests := []struct {
		name string
		req  RefundOrderRequest
		want error
	}{
		{"bad order id", RefundOrderRequest{OrderID: "nope", RefundType: model.RefundTypeFull, Reason: "x"}, ErrValidation},
		{"missing reason", RefundOrderRequest{OrderID: order.ID.String(), RefundType: model.RefundTypeFull, Reason: "  "}, ErrValidation},
		{"unknown type", RefundOrderRequest{OrderID: order.ID.String(), RefundType: "store_credit", Reason: "x"}, ErrValidation},
		{"partial without amount", RefundOrderRequest{OrderID: order.ID.String(), RefundType: model.RefundTypePartial, Reason: "x"}, ErrValidation},
		{"partial zero amount", RefundOrderRequest{OrderID: order.ID.String(), RefundType: model.RefundTypePartial, Reason: "x", Amount: strPtr("0")}, ErrInvalidRefundAmount},
		{"partial negative amount", RefundOrderRequest{OrderID: order.ID.String(), RefundType: model.RefundTypePartial, Reason: "x", Amount: strPtr("-5")}, ErrInvalidRefundAmount},
		{"partial sub-cent amount", RefundOrderRequest{OrderID: order.ID.String(), RefundType: model.RefundTypePartial, Reason: "x", Amount: strPtr("0.004")}, ErrValidation},
		{"partial amount with a stray fraction", RefundOrderRequest{OrderID: order.ID.String(), RefundType: model.RefundTypePartial, Reason: "x", Amount: strPtr("5.001")}, ErrValidation},
		{"item without ids", RefundOrderRequest{OrderID: order.ID.String(), RefundType: model.RefundTypeItem, Reason: "x"}, ErrValidation},
		{"bad method", RefundOrderRequest{OrderID: order.ID.String(), RefundType: model.RefundTypeFull, Reason: "x", RefundMethod: "crypto"}, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RefundOrder(context.Background(), f.cashier, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.store.refundRows())
	assert.Empty(t, f.store.auditRows())
	assert.True(t, f.store.order(order.ID).RefundedAmount.IsZero())
}

func TestRefundOrderNotFoundOutsideScope(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("10.00", func(o *model.Order) { o.BranchID = uuid.New() })

	_, err := f.refundService().RefundOrder(context.Background(), f.cashier, RefundOrderRequest{
		OrderID:    order.ID.String(),
		RefundType: model.RefundTypeFull,
		Reason:     "x",
	})

	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestRefundOrderPeriodFromTenantSetting(t *testing.T) {
	f := newFixture(t)
	f.setting(model.SettingRefundPeriodDays, "1")
	order := f.paidOrder("10.00", func(o *model.Order) { o.CreatedAt = f.now.Add(-49 * time.Hour) })

	_, err := f.refundService().RefundOrder(context.Background(), f.manager, RefundOrderRequest{
		OrderID:    order.ID.String(),
		RefundType: model.RefundTypeFull,
		Reason:     "late",
	})

	assert.ErrorIs(t, err, ErrRefundPeriodExpired)
}

func TestRefundOrderRequiresApprovalAboveThreshold(t *testing.T) {
	f := newFixture(t)
	f.setting(model.SettingRefundApprovalThreshold, "50.00")
	order := f.paidOrder("120.00")
	svc := f.refundService()
	req := RefundOrderRequest{
		OrderID:    order.ID.String(),
		RefundType: model.RefundTypePartial,
		Reason:     "burnt",
		Amount:     strPtr("75.00"),
	}

	_, err := svc.RefundOrder(context.Background(), f.cashier, req)

	require.ErrorIs(t, err, ErrManagerApprovalNeeded)
	var se *SettlementError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "75.00", se.Data["amount"])
	assert.Equal(t, []string{ReasonAmountOverThreshold}, se.Data["reasons"])
	assert.True(t, f.store.order(order.ID).RefundedAmount.IsZero())
	assert.Empty(t, f.store.refundRows())

	req.ApprovalPIN = "1111"
	_, err = svc.RefundOrder(context.Background(), f.cashier, req)
	require.ErrorIs(t, err, ErrInvalidApprovalPin)
	assert.Empty(t, f.store.refundRows())
	assert.Empty(t, f.store.auditRows())

	req.ApprovalPIN = managerPIN
	resp, err := svc.RefundOrder(context.Background(), f.cashier, req)
	require.NoError(t, err)
	assert.Equal(t, f.manager.UserID.String(), resp.Refund.ApprovedBy)
	assert.Equal(t, f.cashier.UserID.String(), resp.Refund.ProcessedBy)

	refunds := f.store.refundRows()
	require.Len(t, refunds, 1)
	assert.Equal(t, f.manager.UserID, *refunds[0].ApprovedBy)
	assert.Equal(t, f.cashier.UserID, refunds[0].ProcessedBy)

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(f.store.auditRows()[0].Details), &details))
	assert.Equal(t, string(ApprovalGranted), details["approval_state"])
	assert.Equal(t, f.manager.UserID.String(), details["approved_by"])
}

func TestRefundOrderRoleGateFromTenantSetting(t *testing.T) {
	f := newFixture(t)
	f.setting(model.SettingRequireManagerRefund, "true")
	order := f.paidOrder("20.00")
	req := RefundOrderRequest{OrderID: order.ID.String(), RefundType: model.RefundTypeFull, Reason: "x"}

	_, err := f.refundService().RefundOrder(context.Background(), f.cashier, req)
	require.ErrorIs(t, err, ErrManagerApprovalNeeded)

	_, err = f.refundService().RefundOrder(context.Background(), f.manager, req)
	require.NoError(t, err)
}

func TestRefundOrderConcurrentFullRefunds(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("64.00")
	svc := f.refundService()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RefundOrder(context.Background(), f.manager, RefundOrderRequest{
				OrderID:    order.ID.String(),
				RefundType: model.RefundTypeFull,
				Reason:     "double tap",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrOrderAlreadyRefunded) || errors.Is(err, ErrNoRefundableAmount), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.store.refundRows(), 1)
	assert.Equal(t, "64.00", money.Format(f.store.order(order.ID).RefundedAmount))
}

func TestRefundOrderRandomPartialsNeverExceedPaid(t *testing.T) {
	f := newFixture(t)
	rng := rand.New(rand.NewSource(11))
	svc := f.refundService()

	for run := 0; run < 25; run++ {
		paid := decimal.New(rng.Int63n(20000)+100, -2)
		order := f.paidOrder(paid.StringFixed(2))

		for step := 0; step < 12; step++ {
			requested := decimal.New(rng.Int63n(paid.Shift(2).IntPart()/2+10)+1, -2)
			_, err := svc.RefundOrder(context.Background(), f.manager, RefundOrderRequest{
				OrderID:    order.ID.String(),
				RefundType: model.RefundTypePartial,
				Reason:     "property",
				Amount:     strPtr(requested.StringFixed(2)),
			})
			if err != nil {
				var se *SettlementError
				require.ErrorAs(t, err, &se)
				require.NotEqual(t, KindInternal, se.Kind, "run %d step %d: %v", run, step, err)
			}

			stored := f.store.order(order.ID)
			require.True(t, stored.RefundedAmount.LessThanOrEqual(stored.PaidAmount),
				"run %d step %d: refunded %s > paid %s", run, step, stored.RefundedAmount, stored.PaidAmount)
		}
	}
}

func TestRefundOrderAuditFailureIsBestEffort(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder("30.00")
	f.store.auditErr = errors.New("audit_logs: disk full")

	resp, err := f.refundService().RefundOrder(context.Background(), f.cashier, RefundOrderRequest{
		OrderID:    order.ID.String(),
		RefundType: model.RefundTypeFull,
		Reason:     "x",
	})

	require.NoError(t, err)
	assert.Equal(t, "30.00", resp.Refund.Amount)
	assert.Len(t, f.store.refundRows(), 1)
	assert.Empty(t, f.store.auditRows())

	warnings := f.logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage("audit write failed, settlement continues").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, model.ActionRefunded, warnings[0].ContextMap()["action"])
}

func TestRefundOrderStrictAuditRollsBack(t *testing.T) {
	f := newFixture(t)
	f.strictAudit()
	order := f.paidOrder("30.00")
	f.store.auditErr = errors.New("audit_logs: disk full")

	_, err := f.refundService().RefundOrder(context.Background(), f.cashier, RefundOrderRequest{
		OrderID:    order.ID.String(),
		RefundType: model.RefundTypeFull,
		Reason:     "x",
	})

	require.ErrorIs(t, err, ErrInternal)
	assert.Empty(t, f.store.refundRows())
	assert.True(t, f.store.order(order.ID).RefundedAmount.IsZero())
	assert.Empty(t, f.publisher.published())
	assert.NotEmpty(t, f.logs.FilterMessage("settlement failed").All())
}

func TestRefundOrderRateLimited(t *testing.T) {
	f := newFixture(t)
	limiter := NewAuditRateLimiter(&fakeAuditRepo{s: f.store}, 2, zap.NewNop()).(*auditRateLimiter)
	limiter.now = f.clock
	f.deps.Limiter = limiter
	order := f.paidOrder("100.00")
	svc := f.refundService()

	req := RefundOrderRequest{OrderID: order.ID.String(), RefundType: model.RefundTypePartial, Reason: "x", Amount: strPtr("1.00")}
	for i := 0; i < 2; i++ {
		_, err := svc.RefundOrder(context.Background(), f.cashier, req)
		require.NoError(t, err)
	}

	_, err := svc.RefundOrder(context.Background(), f.cashier, req)
	require.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.Len(t, f.store.refundRows(), 2)

	// Another user of the same tenant has their own window.
	_, err = svc.RefundOrder(context.Background(), f.manager, req)
	assert.NoError(t, err)

	// The window rolls after a minute.
	f.now = f.now.Add(61 * time.Second)
	_, err = svc.RefundOrder(context.Background(), f.cashier, req)
	assert.NoError(t, err)
}

func TestRefundOrderPublishFailureDoesNotFailRefund(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker unreachable")
	order := f.paidOrder("12.00")

	_, err := f.refundService().RefundOrder(context.Background(), f.cashier, RefundOrderRequest{
		OrderID:    order.ID.String(),
		RefundType: model.RefundTypeFull,
		Reason:     "x",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, f.logs.FilterMessage("failed to publish settlement event").All())
}

func TestRefundNumbersIncrementPerDay(t *testing.T) {
	f := newFixture(t)
	svc := f.refundService()

	var numbers []string
	for i := 0; i < 3; i++ {
		order := f.paidOrder("5.00")
		resp, err := svc.RefundOrder(context.Background(), f.manager, RefundOrderRequest{OrderID: order.ID.String(), RefundType: model.RefundTypeFull, Reason: "x"})
		require.NoError(t, err)
		numbers = append(numbers, resp.Refund.RefundNo)
	}

	assert.Equal(t, []string{"RF-20260314-00001", "RF-20260314-00002", "RF-20260314-00003"}, numbers)
}
