package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"posbackend/internal/events"
	"posbackend/internal/model"
	"posbackend/internal/repository"
	"posbackend/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CloseShiftRequest struct {
	ShiftID       string         `json:"shift_id"`
	ActualCash    *string        `json:"actual_cash"`
	ActualCard    *string        `json:"actual_card"`
	ActualOther   *string        `json:"actual_other"`
	Notes         string         `json:"notes" binding:"max=2000"`
	Denominations map[string]int `json:"denominations"` // face value -> count
}

type ShiftSummary struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	StartedAt       string `json:"started_at"`
	EndedAt         string `json:"ended_at"`
	Duration        string `json:"duration"`
	DurationMinutes int64  `json:"duration_minutes"`
	ClosedBy        string `json:"closed_by"`
	ClosedByName    string `json:"closed_by_name"`
}

type StreamAmounts struct {
	Cash  string `json:"cash"`
	Card  string `json:"card"`
	Other string `json:"other"`
	Total string `json:"total"`
}

type VarianceSummary struct {
	StreamAmounts
	Status         string            `json:"status"` // ok | warning
	StreamStatus   map[string]string `json:"stream_status"`
	RequiresReview bool              `json:"requires_review"`
	Threshold      string            `json:"threshold"`
}

type ShiftFinancials struct {
	OpeningBalance string          `json:"opening_balance"`
	Expected       StreamAmounts   `json:"expected"`
	Actual         StreamAmounts   `json:"actual"`
	Variance       VarianceSummary `json:"variance"`
}

type SalesSummary struct {
	OrderCount   int64  `json:"order_count"`
	VoidedCount  int64  `json:"voided_count"`
	TotalSales   string `json:"total_sales"`
	TotalRefunds string `json:"total_refunds"`
	NetSales     string `json:"net_sales"`
	AverageOrder string `json:"average_order"`
}

type MethodBreakdown struct {
	Method string `json:"method"`
	Stream string `json:"stream"`
	Amount string `json:"amount"`
	Count  int64  `json:"count"`
}

type PaymentBreakdown struct {
	Cash    string            `json:"cash"`
	Card    string            `json:"card"`
	Other   string            `json:"other"`
	Methods []MethodBreakdown `json:"methods"`
	Refunds []MethodBreakdown `json:"refunds"`
}

type CloseShiftResponse struct {
	Success          bool             `json:"success"`
	Shift            ShiftSummary     `json:"shift"`
	Financials       ShiftFinancials  `json:"financials"`
	SalesSummary     SalesSummary     `json:"sales_summary"`
	PaymentBreakdown PaymentBreakdown `json:"payment_breakdown"`
	Report           string           `json:"report"`
}

// --- Interface ---

type ShiftService interface {
	CloseShift(ctx context.Context, sc SettlementContext, req CloseShiftRequest) (CloseShiftResponse, error)
}

type shiftService struct {
	deps SettlementDeps
	now  func() time.Time
}

func NewShiftService(deps SettlementDeps) ShiftService {
	return &shiftService{deps: deps.withDefaults(), now: time.Now}
}

// --- Implementation ---

type closeShiftInput struct {
	shiftID        *uuid.UUID
	sessionShiftID *uuid.UUID
	actualCash     decimal.Decimal
	actualCard     *decimal.Decimal
	actualOther    *decimal.Decimal
	counted        *decimal.Decimal
	notes          string
}

func parseCloseShiftRequest(sc SettlementContext, req CloseShiftRequest) (closeShiftInput, error) {
	in := closeShiftInput{sessionShiftID: sc.ShiftID, notes: strings.TrimSpace(req.Notes)}

	if req.ShiftID != "" {
		id, err := uuid.Parse(req.ShiftID)
		if err != nil {
			return in, validationError("invalid shift_id")
		}
		in.shiftID = &id
	}

	if len(req.Denominations) > 0 {
		counted, err := countDenominations(req.Denominations)
		if err != nil {
			return in, err
		}
		in.counted = &counted
	}

	switch {
	case req.ActualCash != nil:
		cash, err := money.Parse(*req.ActualCash)
		if err != nil {
			return in, validationError("invalid actual_cash: %v", err)
		}
		if in.counted != nil && !money.Round(cash).Equal(money.Round(*in.counted)) {
			return in, ErrDenominationMismatch.WithData(map[string]interface{}{
				"actual_cash":   money.Format(cash),
				"counted_total": money.Format(*in.counted),
			})
		}
		in.actualCash = cash
	case in.counted != nil:
		in.actualCash = *in.counted
	default:
		return in, validationError("actual_cash or denominations is required")
	}

	var err error
	if in.actualCard, err = optionalAmount("actual_card", req.ActualCard); err != nil {
		return in, err
	}
	if in.actualOther, err = optionalAmount("actual_other", req.ActualOther); err != nil {
		return in, err
	}
	return in, nil
}

func optionalAmount(field string, raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := money.Parse(*raw)
	if err != nil {
		return nil, validationError("invalid %s: %v", field, err)
	}
	return &d, nil
}

// countDenominations totals a cash count keyed by face value.
func countDenominations(denominations map[string]int) (decimal.Decimal, error) {
	total := decimal.Zero
	for face, count := range denominations {
		value, err := money.Parse(face)
		if err != nil || !value.IsPositive() {
			return decimal.Zero, validationError("invalid denomination %q", face)
		}
		if count < 0 {
			return decimal.Zero, validationError("denomination %s has a negative count", face)
		}
		total = total.Add(value.Mul(decimal.NewFromInt(int64(count))))
	}
	return total, nil
}

// streamTotals folds per-method aggregates into the reconciliation streams.
func streamTotals(rows []repository.MethodTotal) Streams {
	s := Streams{Cash: decimal.Zero, Card: decimal.Zero, Other: decimal.Zero}
	for _, row := range rows {
		switch model.PaymentStream(row.Method) {
		case model.PaymentMethodCash:
			s.Cash = s.Cash.Add(row.Amount)
		case model.PaymentMethodCard:
			s.Card = s.Card.Add(row.Amount)
		default:
			s.Other = s.Other.Add(row.Amount)
		}
	}
	return s
}

func breakdown(rows []repository.MethodTotal) []MethodBreakdown {
	out := make([]MethodBreakdown, 0, len(rows))
	for _, row := range rows {
		out = append(out, MethodBreakdown{
			Method: row.Method,
			Stream: model.PaymentStream(row.Method),
			Amount: money.Format(row.Amount),
			Count:  row.Count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out
}

// lockShift locks the shift named in the request, else the session's shift,
// else the latest open shift of the branch. A session pointer to a shift that
// is no longer open is ignored.
func (s *shiftService) lockShift(ctx context.Context, sc SettlementContext, in closeShiftInput) (*model.Shift, error) {
	if in.shiftID != nil {
		return s.deps.Shifts.FindOpenForUpdate(ctx, sc.Scope(), in.shiftID)
	}
	if in.sessionShiftID != nil {
		shift, err := s.deps.Shifts.FindOpenForUpdate(ctx, sc.Scope(), in.sessionShiftID)
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return shift, err
		}
	}
	return s.deps.Shifts.FindOpenForUpdate(ctx, sc.Scope(), nil)
}

func (s *shiftService) CloseShift(ctx context.Context, sc SettlementContext, req CloseShiftRequest) (CloseShiftResponse, error) {
	if err := sc.validate(); err != nil {
		return CloseShiftResponse{}, err
	}
	in, err := parseCloseShiftRequest(sc, req)
	if err != nil {
		return CloseShiftResponse{}, err
	}

	var (
		shift model.Shift
		sales repository.ShiftSales
		rec   Reconciliation
		resp  CloseShiftResponse
	)

	err = s.deps.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.lockShift(txCtx, sc, in)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoOpenShift
			}
			return fmt.Errorf("failed to lock shift: %w", err)
		}
		shift = *locked

		policy, err := s.deps.Policies.Resolve(txCtx, sc.TenantID)
		if err != nil {
			return err
		}

		now := s.now()
		sales, err = s.deps.Shifts.SalesSummary(txCtx, sc.Scope(), shift.StartedAt, now)
		if err != nil {
			return err
		}

		payments := streamTotals(sales.Payments)
		refunds := streamTotals(sales.Refunds)

		actual := Streams{Cash: in.actualCash, Card: payments.Card, Other: payments.Other}
		if in.actualCard != nil {
			actual.Card = *in.actualCard
		}
		if in.actualOther != nil {
			actual.Other = *in.actualOther
		}

		rec = Reconcile(ShiftTotals{
			OpeningBalance: shift.OpeningBalance,
			Sales:          payments,
			CashRefunds:    refunds.Cash,
		}, actual, policy.VarianceThreshold)

		shift.Status = model.ShiftStatusReconciled
		shift.EndedAt = &now
		shift.ReconciledAt = &now
		closedBy := sc.UserID
		shift.ClosedBy = &closedBy
		shift.TotalSales = money.Round(payments.Total())
		shift.TotalRefunds = money.Round(refunds.Total())
		shift.OrderCount = int(sales.OrderCount)
		shift.ExpectedCash = money.Round(rec.Expected.Cash)
		shift.ExpectedCard = money.Round(rec.Expected.Card)
		shift.ExpectedOther = money.Round(rec.Expected.Other)
		shift.ActualCash = money.Round(rec.Actual.Cash)
		shift.ActualCard = money.Round(rec.Actual.Card)
		shift.ActualOther = money.Round(rec.Actual.Other)
		shift.CashVariance = money.Round(rec.Variance.Cash)
		shift.CardVariance = money.Round(rec.Variance.Card)
		shift.OtherVariance = money.Round(rec.Variance.Other)
		shift.TotalVariance = money.Round(rec.TotalVariance)
		shift.RequiresReview = rec.RequiresReview

		resp = s.buildResponse(sc, shift, sales, rec)
		shift.ReconciliationNotes = resp.Report
		if in.notes != "" {
			shift.ReconciliationNotes = in.notes + "\n\n" + resp.Report
		}

		if err := s.deps.Shifts.Save(txCtx, &shift); err != nil {
			return fmt.Errorf("failed to save shift: %w", err)
		}

		return s.deps.Audit.Write(txCtx, sc, AuditEntry{
			Action:     model.ActionShiftCompleted,
			EntityType: model.EntityShift,
			EntityID:   shift.ID.String(),
			Details: map[string]interface{}{
				"financials":    resp.Financials,
				"sales_summary": resp.SalesSummary,
				"notes":         in.notes,
				"report":        resp.Report,
			},
		})
	})
	if err != nil {
		err = translateError(err)
		s.deps.logFailure("close_shift", sc, err)
		return CloseShiftResponse{}, err
	}

	s.deps.publish(ctx, sc, events.TypeShiftReconciled, map[string]interface{}{
		"shift_id":        shift.ID.String(),
		"closed_by":       sc.UserID.String(),
		"total_sales":     resp.SalesSummary.TotalSales,
		"total_variance":  resp.Financials.Variance.Total,
		"requires_review": rec.RequiresReview,
	}, *shift.EndedAt)

	return resp, nil
}

func (s *shiftService) buildResponse(sc SettlementContext, shift model.Shift, sales repository.ShiftSales, rec Reconciliation) CloseShiftResponse {
	payments := streamTotals(sales.Payments)
	refunds := streamTotals(sales.Refunds)
	totalSales := payments.Total()
	totalRefunds := refunds.Total()

	average := decimal.Zero
	if sales.OrderCount > 0 {
		average = totalSales.Div(decimal.NewFromInt(sales.OrderCount))
	}

	duration := shift.EndedAt.Sub(shift.StartedAt)

	resp := CloseShiftResponse{
		Success: true,
		Shift: ShiftSummary{
			ID:              shift.ID.String(),
			Status:          shift.Status,
			StartedAt:       shift.StartedAt.Format(time.RFC3339),
			EndedAt:         shift.EndedAt.Format(time.RFC3339),
			Duration:        duration.Round(time.Minute).String(),
			DurationMinutes: int64(duration / time.Minute),
			ClosedBy:        sc.UserID.String(),
			ClosedByName:    sc.Username,
		},
		Financials: ShiftFinancials{
			OpeningBalance: money.Format(shift.OpeningBalance),
			Expected:       streamAmounts(rec.Expected),
			Actual:         streamAmounts(rec.Actual),
			Variance: VarianceSummary{
				StreamAmounts: streamAmounts(rec.Variance),
				Status:        rec.Status(),
				StreamStatus: map[string]string{
					model.PaymentMethodCash:  VarianceStatus(rec.Variance.Cash, rec.Threshold),
					model.PaymentMethodCard:  VarianceStatus(rec.Variance.Card, rec.Threshold),
					model.PaymentMethodOther: VarianceStatus(rec.Variance.Other, rec.Threshold),
				},
				RequiresReview: rec.RequiresReview,
				Threshold:      money.Format(rec.Threshold),
			},
		},
		SalesSummary: SalesSummary{
			OrderCount:   sales.OrderCount,
			VoidedCount:  sales.VoidedCount,
			TotalSales:   money.Format(totalSales),
			TotalRefunds: money.Format(totalRefunds),
			NetSales:     money.Format(totalSales.Sub(totalRefunds)),
			AverageOrder: money.Format(average),
		},
		PaymentBreakdown: PaymentBreakdown{
			Cash:    money.Format(payments.Cash),
			Card:    money.Format(payments.Card),
			Other:   money.Format(payments.Other),
			Methods: breakdown(sales.Payments),
			Refunds: breakdown(sales.Refunds),
		},
	}
	resp.Report = shiftReport(resp)
	return resp
}

func streamAmounts(s Streams) StreamAmounts {
	return StreamAmounts{
		Cash:  money.Format(s.Cash),
		Card:  money.Format(s.Card),
		Other: money.Format(s.Other),
		Total: money.Format(s.Total()),
	}
}

// shiftReport renders the narrative stored with the reconciled shift.
func shiftReport(r CloseShiftResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shift %s closed by %s after %s.\n", r.Shift.ID, r.Shift.ClosedByName, r.Shift.Duration)
	fmt.Fprintf(&b, "Orders: %d (voided %d), sales %s, refunds %s, net %s, average %s.\n",
		r.SalesSummary.OrderCount, r.SalesSummary.VoidedCount, r.SalesSummary.TotalSales,
		r.SalesSummary.TotalRefunds, r.SalesSummary.NetSales, r.SalesSummary.AverageOrder)
	fmt.Fprintf(&b, "Opening balance %s.\n", r.Financials.OpeningBalance)
	fmt.Fprintf(&b, "Cash: expected %s, counted %s, variance %s.\n",
		r.Financials.Expected.Cash, r.Financials.Actual.Cash, r.Financials.Variance.Cash)
	fmt.Fprintf(&b, "Card: expected %s, counted %s, variance %s.\n",
		r.Financials.Expected.Card, r.Financials.Actual.Card, r.Financials.Variance.Card)
	fmt.Fprintf(&b, "Other: expected %s, counted %s, variance %s.\n",
		r.Financials.Expected.Other, r.Financials.Actual.Other, r.Financials.Variance.Other)
	fmt.Fprintf(&b, "Total variance %s (threshold %s): %s", r.Financials.Variance.Total, r.Financials.Variance.Threshold, r.Financials.Variance.Status)
	if r.Financials.Variance.RequiresReview {
		b.WriteString(", manager review required")
	}
	b.WriteString(".")
	return b.String()
}
