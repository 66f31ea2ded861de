package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"posbackend/internal/events"
	"posbackend/internal/model"
	"posbackend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fakeStore is an in-memory stand-in for the settlement tables. Transactions are
// serialised by txMu and roll back to a snapshot on error; dataMu guards every
// individual read or write so calls made outside a transaction stay race free.
type fakeStore struct {
	txMu   sync.Mutex
	dataMu sync.Mutex

	orders       map[uuid.UUID]model.Order
	items        map[uuid.UUID][]model.OrderItem
	payments     []model.Payment
	shifts       map[uuid.UUID]model.Shift
	refunds      []model.Refund
	audits       []model.AuditLog
	users        []model.User
	settings     map[uuid.UUID]map[string]string
	tables       map[uuid.UUID]model.RestaurantTable
	tickets      []model.KitchenTicket
	cashSessions []model.CashSession

	auditErr error // returned by every audit insert while set
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:   map[uuid.UUID]model.Order{},
		items:    map[uuid.UUID][]model.OrderItem{},
		shifts:   map[uuid.UUID]model.Shift{},
		settings: map[uuid.UUID]map[string]string{},
		tables:   map[uuid.UUID]model.RestaurantTable{},
	}
}

type storeSnapshot struct {
	orders       map[uuid.UUID]model.Order
	items        map[uuid.UUID][]model.OrderItem
	shifts       map[uuid.UUID]model.Shift
	refunds      []model.Refund
	audits       []model.AuditLog
	users        []model.User
	tables       map[uuid.UUID]model.RestaurantTable
	tickets      []model.KitchenTicket
	cashSessions []model.CashSession
}

func (s *fakeStore) snapshot() storeSnapshot {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()

	snap := storeSnapshot{
		orders:       make(map[uuid.UUID]model.Order, len(s.orders)),
		items:        make(map[uuid.UUID][]model.OrderItem, len(s.items)),
		shifts:       make(map[uuid.UUID]model.Shift, len(s.shifts)),
		refunds:      append([]model.Refund(nil), s.refunds...),
		audits:       append([]model.AuditLog(nil), s.audits...),
		users:        append([]model.User(nil), s.users...),
		tables:       make(map[uuid.UUID]model.RestaurantTable, len(s.tables)),
		tickets:      append([]model.KitchenTicket(nil), s.tickets...),
		cashSessions: append([]model.CashSession(nil), s.cashSessions...),
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}
	for k, v := range s.items {
		snap.items[k] = append([]model.OrderItem(nil), v...)
	}
	for k, v := range s.shifts {
		snap.shifts[k] = v
	}
	for k, v := range s.tables {
		snap.tables[k] = v
	}
	return snap
}

func (s *fakeStore) restore(snap storeSnapshot) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()

	s.orders = snap.orders
	s.items = snap.items
	s.shifts = snap.shifts
	s.refunds = snap.refunds
	s.audits = snap.audits
	s.users = snap.users
	s.tables = snap.tables
	s.tickets = snap.tickets
	s.cashSessions = snap.cashSessions
}

func (s *fakeStore) order(id uuid.UUID) model.Order {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return s.orders[id]
}

func (s *fakeStore) orderItems(id uuid.UUID) []model.OrderItem {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return append([]model.OrderItem(nil), s.items[id]...)
}

func (s *fakeStore) shift(id uuid.UUID) model.Shift {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return s.shifts[id]
}

func (s *fakeStore) refundRows() []model.Refund {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return append([]model.Refund(nil), s.refunds...)
}

func (s *fakeStore) auditRows() []model.AuditLog {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return append([]model.AuditLog(nil), s.audits...)
}

func (s *fakeStore) table(id uuid.UUID) model.RestaurantTable {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return s.tables[id]
}

func (s *fakeStore) ticketRows() []model.KitchenTicket {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return append([]model.KitchenTicket(nil), s.tickets...)
}

func (s *fakeStore) cashSessionRows() []model.CashSession {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return append([]model.CashSession(nil), s.cashSessions...)
}

// --- TransactionManager ---

type fakeTxManager struct {
	s *fakeStore
}

func (m *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	snap := m.s.snapshot()
	if err := fn(ctx); err != nil {
		m.s.restore(snap)
		return err
	}
	return nil
}

// --- OrderRepository ---

type fakeOrderRepo struct {
	s *fakeStore
}

func (r *fakeOrderRepo) FindByIDForUpdate(_ context.Context, scope repository.Scope, id uuid.UUID) (*model.Order, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()

	order, ok := r.s.orders[id]
	if !ok || order.TenantID != scope.TenantID || order.BranchID != scope.BranchID {
		return nil, gorm.ErrRecordNotFound
	}
	return &order, nil
}

func (r *fakeOrderRepo) ListItems(_ context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	return append([]model.OrderItem(nil), r.s.items[orderID]...), nil
}

func (r *fakeOrderRepo) PrimaryPaymentMethod(_ context.Context, orderID uuid.UUID) (string, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()

	totals := map[string]decimal.Decimal{}
	for _, p := range r.s.payments {
		if p.OrderID == orderID {
			totals[p.Method] = totals[p.Method].Add(p.Amount)
		}
	}
	best, bestAmount := "", decimal.Zero
	for method, amount := range totals {
		if amount.GreaterThan(bestAmount) {
			best, bestAmount = method, amount
		}
	}
	return best, nil
}

func (r *fakeOrderRepo) ApplyRefund(_ context.Context, orderID uuid.UUID, refundedAmount decimal.Decimal, paymentStatus, status string) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()

	order := r.s.orders[orderID]
	order.RefundedAmount = refundedAmount
	order.PaymentStatus = paymentStatus
	order.Status = status
	r.s.orders[orderID] = order
	return nil
}

func (r *fakeOrderRepo) MarkVoided(_ context.Context, orderID uuid.UUID, voidedBy uuid.UUID, reason string, at time.Time) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()

	order := r.s.orders[orderID]
	order.Status = model.OrderStatusVoided
	order.VoidedAt = &at
	order.VoidedBy = &voidedBy
	order.VoidReason = reason
	r.s.orders[orderID] = order
	return nil
}

func (r *fakeOrderRepo) VoidItems(_ context.Context, orderID uuid.UUID, itemIDs []uuid.UUID, voidedBy uuid.UUID, reason string, at time.Time) (int64, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()

	selected := map[uuid.UUID]bool{}
	for _, id := range itemIDs {
		selected[id] = true
	}

	var n int64
	items := r.s.items[orderID]
	for i := range items {
		if items[i].IsVoided || (itemIDs != nil && !selected[items[i].ID]) {
			continue
		}
		items[i].IsVoided = true
		items[i].VoidedAt = &at
		items[i].VoidedBy = &voidedBy
		items[i].VoidReason = reason
		n++
	}
	return n, nil
}

// --- ShiftRepository ---

type fakeShiftRepo struct {
	s *fakeStore
}

func (r *fakeShiftRepo) FindOpenForUpdate(_ context.Context, scope repository.Scope, shiftID *uuid.UUID) (*model.Shift, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()

	var found *model.Shift
	for _, sh := range r.s.shifts {
		if sh.TenantID != scope.TenantID || sh.BranchID != scope.BranchID || sh.Status != model.ShiftStatusOpen {
			continue
		}
		if shiftID != nil && sh.ID != *shiftID {
			continue
		}
		if found == nil || sh.StartedAt.After(found.StartedAt) {
			cp := sh
			found = &cp
		}
	}
	if found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return found, nil
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

func (r *fakeShiftRepo) SalesSummary(_ context.Context, scope repository.Scope, from, to time.Time) (repository.ShiftSales, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()

	var sales repository.ShiftSales
	payments := map[string]*repository.MethodTotal{}
	for _, p := range r.s.payments {
		if p.TenantID != scope.TenantID || p.BranchID != scope.BranchID || !within(p.CreatedAt, from, to) {
			continue
		}
		mt, ok := payments[p.Method]
		if !ok {
			mt = &repository.MethodTotal{Method: p.Method, Amount: decimal.Zero}
			payments[p.Method] = mt
		}
		mt.Amount = mt.Amount.Add(p.Amount)
		mt.Count++
	}
	refunds := map[string]*repository.MethodTotal{}
	for _, rf := range r.s.refunds {
		if rf.TenantID != scope.TenantID || rf.BranchID != scope.BranchID || !within(rf.CreatedAt, from, to) {
			continue
		}
		mt, ok := refunds[rf.RefundMethod]
		if !ok {
			mt = &repository.MethodTotal{Method: rf.RefundMethod, Amount: decimal.Zero}
			refunds[rf.RefundMethod] = mt
		}
		mt.Amount = mt.Amount.Add(rf.Amount)
		mt.Count++
	}
	for _, o := range r.s.orders {
		if o.TenantID != scope.TenantID || o.BranchID != scope.BranchID || !within(o.CreatedAt, from, to) {
			continue
		}
		switch o.Status {
		case model.OrderStatusVoided:
			sales.VoidedCount++
		case model.OrderStatusCancelled:
		default:
			sales.OrderCount++
		}
	}
	for _, mt := range payments {
		sales.Payments = append(sales.Payments, *mt)
	}
	for _, mt := range refunds {
		sales.Refunds = append(sales.Refunds, *mt)
	}
	sort.Slice(sales.Payments, func(i, j int) bool { return sales.Payments[i].Method < sales.Payments[j].Method })
	sort.Slice(sales.Refunds, func(i, j int) bool { return sales.Refunds[i].Method < sales.Refunds[j].Method })
	return sales, nil
}

func (r *fakeShiftRepo) Save(_ context.Context, shift *model.Shift) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	r.s.shifts[shift.ID] = *shift
	return nil
}

// --- RefundRepository ---

type fakeRefundRepo struct {
	s *fakeStore
}

func (r *fakeRefundRepo) Create(_ context.Context, refund *model.Refund) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	for _, existing := range r.s.refunds {
		if existing.TenantID == refund.TenantID && existing.RefundNo == refund.RefundNo {
			return fmt.Errorf("duplicate refund_no %s", refund.RefundNo)
		}
	}
	r.s.refunds = append(r.s.refunds, *refund)
	return nil
}

func (r *fakeRefundRepo) NextRefundNo(_ context.Context, tenantID uuid.UUID, at time.Time) (string, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()

	prefix := "RF-" + at.Format("20060102") + "-"
	count := 0
	for _, rf := range r.s.refunds {
		if rf.TenantID == tenantID && strings.HasPrefix(rf.RefundNo, prefix) {
			count++
		}
	}
	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

// --- AuditRepository ---

type fakeAuditRepo struct {
	s *fakeStore
}

func (r *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	if r.s.auditErr != nil {
		return r.s.auditErr
	}
	entry.ID = uuid.New()
	r.s.audits = append(r.s.audits, *entry)
	return nil
}

func (r *fakeAuditRepo) CountRecent(_ context.Context, tenantID, userID uuid.UUID, actions []string, since time.Time) (int64, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()

	wanted := map[string]bool{}
	for _, a := range actions {
		wanted[a] = true
	}
	var n int64
	for _, a := range r.s.audits {
		if a.TenantID == tenantID && a.UserID != nil && *a.UserID == userID && wanted[a.Action] && !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeAuditRepo) List(_ context.Context, scope repository.Scope, action string, page, limit int) ([]model.AuditLog, int64, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()

	var matched []model.AuditLog
	for i := len(r.s.audits) - 1; i >= 0; i-- {
		a := r.s.audits[i]
		if a.TenantID != scope.TenantID || a.BranchID != scope.BranchID {
			continue
		}
		if action != "" && a.Action != action {
			continue
		}
		matched = append(matched, a)
	}
	total := int64(len(matched))
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// --- UserRepository ---

type fakeUserRepo struct {
	s *fakeStore
}

func (r *fakeUserRepo) GetByID(_ context.Context, tenantID, id uuid.UUID) (*model.User, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	for _, u := range r.s.users {
		if u.ID == id && u.TenantID == tenantID && u.IsActive {
			cp := u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) ListApprovers(_ context.Context, tenantID uuid.UUID, roles []string) ([]model.User, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()

	allowed := map[string]bool{}
	for _, role := range roles {
		allowed[role] = true
	}
	var out []model.User
	for _, u := range r.s.users {
		if u.TenantID == tenantID && u.IsActive && allowed[u.Role] && u.ManagerPINHash != nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateManagerPIN(_ context.Context, id uuid.UUID, pinHash string) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	for i := range r.s.users {
		if r.s.users[i].ID == id {
			hash := pinHash
			r.s.users[i].ManagerPINHash = &hash
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// --- SettingsRepository ---

type fakeSettingsRepo struct {
	s *fakeStore
}

func (r *fakeSettingsRepo) GetAll(_ context.Context, tenantID uuid.UUID) (map[string]string, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	out := map[string]string{}
	for k, v := range r.s.settings[tenantID] {
		out[k] = v
	}
	return out, nil
}

// --- Floor collaborators ---

type fakeTableRepo struct {
	s *fakeStore
}

func (r *fakeTableRepo) Release(_ context.Context, scope repository.Scope, tableID, orderID uuid.UUID) (string, bool, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()

	table, ok := r.s.tables[tableID]
	if !ok || table.TenantID != scope.TenantID || table.BranchID != scope.BranchID {
		return "", false, nil
	}
	if table.CurrentOrderID != nil && *table.CurrentOrderID != orderID {
		return table.TableNumber, false, nil
	}
	table.Status = model.TableStatusAvailable
	table.CurrentOrderID = nil
	r.s.tables[tableID] = table
	return table.TableNumber, true, nil
}

type fakeKitchenRepo struct {
	s *fakeStore
}

func (r *fakeKitchenRepo) CancelOpenTickets(_ context.Context, orderID uuid.UUID, reason string, at time.Time) (int64, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()

	var n int64
	for i := range r.s.tickets {
		t := &r.s.tickets[i]
		if t.OrderID != orderID {
			continue
		}
		if t.Status != model.KitchenTicketPending && t.Status != model.KitchenTicketInProgress {
			continue
		}
		t.Status = model.KitchenTicketCancelled
		t.CancelReason = reason
		t.CancelledAt = &at
		n++
	}
	return n, nil
}

type fakeCashSessionRepo struct {
	s *fakeStore
}

func (r *fakeCashSessionRepo) RecordRefund(_ context.Context, scope repository.Scope, amount decimal.Decimal) (bool, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()

	adjusted := false
	for i := range r.s.cashSessions {
		cs := &r.s.cashSessions[i]
		if cs.TenantID != scope.TenantID || cs.BranchID != scope.BranchID || cs.Status != model.CashSessionOpen {
			continue
		}
		cs.TotalRefunds = cs.TotalRefunds.Add(amount)
		cs.ExpectedCash = cs.ExpectedCash.Sub(amount)
		adjusted = true
	}
	return adjusted, nil
}

// --- Publisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) published() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}
