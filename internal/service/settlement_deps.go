package service

import (
	"context"
	"errors"
	"time"

	"posbackend/internal/events"
	"posbackend/internal/model"
	"posbackend/internal/repository"

	"go.uber.org/zap"
)

// SettlementDeps wires the collaborators shared by the shift, refund and void services.
type SettlementDeps struct {
	TxManager    repository.TransactionManager
	Orders       repository.OrderRepository
	Shifts       repository.ShiftRepository
	Refunds      repository.RefundRepository
	Tables       repository.TableRepository
	Kitchen      repository.KitchenRepository
	CashSessions repository.CashSessionRepository
	Policies     *PolicyResolver
	Gate         ApprovalGate
	Audit        AuditWriter
	Limiter      RateLimiter
	Publisher    events.Publisher
	Capabilities model.SchemaCapabilities
	Logger       *zap.Logger
}

func (d SettlementDeps) withDefaults() SettlementDeps {
	if d.Limiter == nil {
		d.Limiter = NewNoopRateLimiter()
	}
	if d.Publisher == nil {
		d.Publisher = events.Nop()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

const publishTimeout = 5 * time.Second

// publish delivers a committed settlement event. Failures never reach the caller.
func (d SettlementDeps) publish(ctx context.Context, sc SettlementContext, eventType string, payload interface{}, at time.Time) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := events.Event{
		Type:       eventType,
		TenantID:   sc.TenantID,
		BranchID:   sc.BranchID,
		Payload:    payload,
		OccurredAt: at,
	}
	if err := d.Publisher.Publish(ctx, event); err != nil {
		d.Logger.Warn("failed to publish settlement event",
			zap.String("event", eventType),
			zap.String("tenant_id", sc.TenantID.String()),
			zap.Error(err),
		)
	}
}

// logFailure records unexpected settlement failures with their full chain.
func (d SettlementDeps) logFailure(operation string, sc SettlementContext, err error) {
	var se *SettlementError
	ok := errors.As(err, &se)
	if ok && se.Kind != KindInternal && se.Kind != KindContention {
		return
	}
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("tenant_id", sc.TenantID.String()),
		zap.String("user_id", sc.UserID.String()),
		zap.String("request_id", sc.RequestID),
		zap.Error(err),
	}
	if ok && se.Kind == KindContention {
		d.Logger.Warn("settlement contention", fields...)
		return
	}
	d.Logger.Error("settlement failed", append(fields, zap.Stack("stack"))...)
}
