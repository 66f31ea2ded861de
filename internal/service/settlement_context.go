package service

import (
	"posbackend/internal/repository"

	"github.com/google/uuid"
)

// SettlementContext is the already-authenticated caller identity threaded through
// every settlement call. It is a value; services never mutate it.
type SettlementContext struct {
	TenantID  uuid.UUID
	BranchID  uuid.UUID
	UserID    uuid.UUID
	Username  string
	Role      string
	ShiftID   *uuid.UUID // shift-scoped session pointer, if the caller has one
	ClientIP  string
	UserAgent string
	RequestID string
}

func (sc SettlementContext) Scope() repository.Scope {
	return repository.Scope{TenantID: sc.TenantID, BranchID: sc.BranchID}
}

func (sc SettlementContext) validate() error {
	if sc.TenantID == uuid.Nil || sc.BranchID == uuid.Nil || sc.UserID == uuid.Nil {
		return validationError("tenant, branch and user must be resolved")
	}
	return nil
}
