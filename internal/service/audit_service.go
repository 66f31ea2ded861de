package service

import (
	"context"
	"fmt"

	"posbackend/internal/model"
	"posbackend/internal/repository"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Action     string `json:"action"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Details    string `json:"details"`
	IPAddress  string `json:"ip_address"`
	UserAgent  string `json:"user_agent"`
	CreatedAt  string `json:"created_at"`
}

type AuditFilter struct {
	Action string // shift_completed, refunded, voided or empty for all
	Page   int
	Limit  int
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, sc SettlementContext, filter AuditFilter) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// GetAuditLogs returns the branch's settlement audit trail, newest first
func (s *auditService) GetAuditLogs(ctx context.Context, sc SettlementContext, filter AuditFilter) ([]AuditLogResponse, int64, error) {
	switch filter.Action {
	case "", model.ActionShiftCompleted, model.ActionRefunded, model.ActionVoided:
	default:
		return nil, 0, validationError("unknown audit action %q", filter.Action)
	}

	logs, total, err := s.auditRepo.List(ctx, sc.Scope(), filter.Action, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, ErrInternal.Wrap(fmt.Errorf("failed to list audit logs: %w", err))
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		userID := ""
		if l.User != nil {
			username = l.User.Username
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Username:   username,
			Action:     l.Action,
			EntityType: l.EntityType,
			EntityID:   l.EntityID,
			Details:    l.Details,
			IPAddress:  l.IPAddress,
			UserAgent:  l.UserAgent,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}
