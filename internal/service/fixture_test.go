package service

import (
	"testing"
	"time"

	"posbackend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

const managerPIN = "4321"

type fixture struct {
	t         *testing.T
	store     *fakeStore
	publisher *recordingPublisher
	logs      *observer.ObservedLogs
	deps      SettlementDeps
	now       time.Time

	tenantID uuid.UUID
	branchID uuid.UUID
	cashier  SettlementContext
	manager  SettlementContext
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	f := &fixture{
		t:         t,
		store:     newFakeStore(),
		publisher: &recordingPublisher{},
		logs:      logs,
		now:       time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC),
		tenantID:  uuid.New(),
		branchID:  uuid.New(),
	}

	f.cashier = SettlementContext{
		TenantID:  f.tenantID,
		BranchID:  f.branchID,
		UserID:    uuid.New(),
		Username:  "cashier.one",
		Role:      model.RoleCashier,
		ClientIP:  "10.0.0.7",
		UserAgent: "pos-terminal/2.1",
		RequestID: "req-1",
	}
	f.manager = f.cashier
	f.manager.UserID = uuid.New()
	f.manager.Username = "manager.one"
	f.manager.Role = model.RoleManager

	hash, err := bcrypt.GenerateFromPassword([]byte(managerPIN), bcrypt.MinCost)
	require.NoError(t, err)
	pinHash := string(hash)
	password, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	f.store.users = []model.User{
		{ID: f.cashier.UserID, TenantID: f.tenantID, Username: f.cashier.Username, Role: model.RoleCashier, Password: string(password), IsActive: true},
		{ID: f.manager.UserID, TenantID: f.tenantID, Username: f.manager.Username, Role: model.RoleManager, Password: string(password), ManagerPINHash: &pinHash, IsActive: true},
	}

	auditRepo := &fakeAuditRepo{s: f.store}
	writer := NewAuditWriter(auditRepo, logger, false).(*auditWriter)
	writer.now = f.clock

	f.deps = SettlementDeps{
		TxManager:    &fakeTxManager{s: f.store},
		Orders:       &fakeOrderRepo{s: f.store},
		Shifts:       &fakeShiftRepo{s: f.store},
		Refunds:      &fakeRefundRepo{s: f.store},
		Tables:       &fakeTableRepo{s: f.store},
		Kitchen:      &fakeKitchenRepo{s: f.store},
		CashSessions: &fakeCashSessionRepo{s: f.store},
		Policies:     NewPolicyResolver(&fakeSettingsRepo{s: f.store}, DefaultPolicy()),
		Gate:         NewApprovalGate(&fakeUserRepo{s: f.store}),
		Audit:        writer,
		Publisher:    f.publisher,
		Capabilities: model.FullCapabilities(),
		Logger:       logger,
	}
	return f
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) setting(key, value string) {
	if f.store.settings[f.tenantID] == nil {
		f.store.settings[f.tenantID] = map[string]string{}
	}
	f.store.settings[f.tenantID][key] = value
}

func (f *fixture) strictAudit() {
	writer := NewAuditWriter(&fakeAuditRepo{s: f.store}, f.deps.Logger, true).(*auditWriter)
	writer.now = f.clock
	f.deps.Audit = writer
}

func (f *fixture) refundService() *refundService {
	svc := NewRefundService(f.deps).(*refundService)
	svc.now = f.clock
	return svc
}

func (f *fixture) voidService() *voidService {
	svc := NewVoidService(f.deps).(*voidService)
	svc.now = f.clock
	return svc
}

func (f *fixture) shiftService() *shiftService {
	svc := NewShiftService(f.deps).(*shiftService)
	svc.now = f.clock
	return svc
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string { return &s }

// paidOrder stores a closed order fully paid in cash.
func (f *fixture) paidOrder(paid string, mutate ...func(*model.Order)) model.Order {
	amount := dec(paid)
	order := model.Order{
		ID:             uuid.New(),
		TenantID:       f.tenantID,
		BranchID:       f.branchID,
		OrderNumber:    "ORD-" + uuid.NewString()[:8],
		Status:         model.OrderStatusClosed,
		PaymentStatus:  model.PaymentStatusPaid,
		Subtotal:       amount,
		TaxAmount:      decimal.Zero,
		DiscountAmount: decimal.Zero,
		TotalAmount:    amount,
		PaidAmount:     amount,
		RefundedAmount: decimal.Zero,
		CreatedAt:      f.now.Add(-2 * time.Hour),
	}
	for _, m := range mutate {
		m(&order)
	}
	f.store.orders[order.ID] = order
	f.store.payments = append(f.store.payments, model.Payment{
		ID:        uuid.New(),
		TenantID:  f.tenantID,
		BranchID:  f.branchID,
		OrderID:   order.ID,
		Method:    model.PaymentMethodCash,
		Amount:    order.PaidAmount,
		CreatedAt: order.CreatedAt,
	})
	return order
}

// openOrder stores an unpaid dine-in order still being served.
func (f *fixture) openOrder(mutate ...func(*model.Order)) model.Order {
	order := model.Order{
		ID:             uuid.New(),
		TenantID:       f.tenantID,
		BranchID:       f.branchID,
		OrderNumber:    "ORD-" + uuid.NewString()[:8],
		Status:         model.OrderStatusServed,
		PaymentStatus:  model.PaymentStatusUnpaid,
		Subtotal:       dec("45.00"),
		TotalAmount:    dec("45.00"),
		PaidAmount:     decimal.Zero,
		RefundedAmount: decimal.Zero,
		CreatedAt:      f.now.Add(-30 * time.Minute),
	}
	for _, m := range mutate {
		m(&order)
	}
	f.store.orders[order.ID] = order
	return order
}

func (f *fixture) addItem(orderID uuid.UUID, name, lineTotal string) model.OrderItem {
	item := model.OrderItem{
		ID:          uuid.New(),
		OrderID:     orderID,
		ProductName: name,
		Quantity:    1,
		UnitPrice:   dec(lineTotal),
		LineTotal:   dec(lineTotal),
		CreatedAt:   f.now.Add(-time.Hour),
	}
	f.store.items[orderID] = append(f.store.items[orderID], item)
	return item
}

func (f *fixture) openShift(opening string, startedAgo time.Duration) model.Shift {
	shift := model.Shift{
		ID:             uuid.New(),
		TenantID:       f.tenantID,
		BranchID:       f.branchID,
		UserID:         f.cashier.UserID,
		Status:         model.ShiftStatusOpen,
		StartedAt:      f.now.Add(-startedAgo),
		OpeningBalance: dec(opening),
	}
	f.store.shifts[shift.ID] = shift
	return shift
}

func (f *fixture) payment(method, amount string, at time.Time) {
	f.store.payments = append(f.store.payments, model.Payment{
		ID:        uuid.New(),
		TenantID:  f.tenantID,
		BranchID:  f.branchID,
		OrderID:   uuid.New(),
		Method:    method,
		Amount:    dec(amount),
		CreatedAt: at,
	})
}
