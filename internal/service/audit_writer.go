package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"posbackend/internal/model"
	"posbackend/internal/repository"

	"go.uber.org/zap"
)

// AuditEntry is one settlement audit record before client metadata is attached.
type AuditEntry struct {
	Action     string
	EntityType string
	EntityID   string
	Details    map[string]interface{}
}

// AuditWriter appends settlement audit records inside the caller's transaction.
type AuditWriter interface {
	Write(ctx context.Context, sc SettlementContext, entry AuditEntry) error
}

type auditWriter struct {
	auditRepo repository.AuditRepository
	logger    *zap.Logger
	strict    bool
	now       func() time.Time
}

// NewAuditWriter returns a writer that logs and swallows insert failures unless
// strict is set, in which case the failure aborts the settlement.
func NewAuditWriter(auditRepo repository.AuditRepository, logger *zap.Logger, strict bool) AuditWriter {
	return &auditWriter{auditRepo: auditRepo, logger: logger, strict: strict, now: time.Now}
}

func (w *auditWriter) Write(ctx context.Context, sc SettlementContext, entry AuditEntry) error {
	details := make(map[string]interface{}, len(entry.Details)+4)
	for k, v := range entry.Details {
		details[k] = v
	}
	details["actor"] = map[string]interface{}{
		"id":       sc.UserID.String(),
		"username": sc.Username,
		"role":     sc.Role,
	}
	if sc.RequestID != "" {
		details["request_id"] = sc.RequestID
	}

	payload, err := json.Marshal(details)
	if err != nil {
		return w.fail(entry, fmt.Errorf("failed to encode audit details: %w", err))
	}

	userID := sc.UserID
	record := &model.AuditLog{
		TenantID:   sc.TenantID,
		BranchID:   sc.BranchID,
		UserID:     &userID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Details:    string(payload),
		IPAddress:  sc.ClientIP,
		UserAgent:  sc.UserAgent,
		CreatedAt:  w.now(),
	}
	if err := w.auditRepo.Log(ctx, record); err != nil {
		return w.fail(entry, err)
	}
	return nil
}

func (w *auditWriter) fail(entry AuditEntry, err error) error {
	if w.strict {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	w.logger.Warn("audit write failed, settlement continues",
		zap.String("action", entry.Action),
		zap.String("entity_id", entry.EntityID),
		zap.Error(err),
	)
	return nil
}
