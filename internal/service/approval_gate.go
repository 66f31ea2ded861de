package service

import (
	"context"
	"errors"
	"fmt"

	"posbackend/internal/model"
	"posbackend/internal/repository"
	"posbackend/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// ApprovalState is the approval gate state: NONE -> REQUIRED -> {GRANTED, DENIED}.
type ApprovalState string

const (
	ApprovalNone     ApprovalState = "NONE"
	ApprovalRequired ApprovalState = "REQUIRED"
	ApprovalGranted  ApprovalState = "GRANTED"
	ApprovalDenied   ApprovalState = "DENIED"
)

// Reasons a settlement needs manager approval
const (
	ReasonAmountOverThreshold = "amount_exceeds_threshold"
	ReasonRoleNotPrivileged   = "role_requires_approval"
	ReasonPaidOrderVoid       = "paid_order_void"
)

// ApprovalRequest describes one gate evaluation.
type ApprovalRequest struct {
	Operation  string
	Reasons    []string
	Amount     *decimal.Decimal
	Credential string
}

// ApprovalDecision records who authorised a settlement.
type ApprovalDecision struct {
	State        ApprovalState
	Reasons      []string
	ApprovedBy   uuid.UUID
	ApproverName string
}

// ApprovalGate decides whether manager authorisation is required and validates
// the supplied credential.
type ApprovalGate interface {
	Evaluate(ctx context.Context, sc SettlementContext, req ApprovalRequest) (ApprovalDecision, error)
}

type approvalGate struct {
	userRepo repository.UserRepository
}

func NewApprovalGate(userRepo repository.UserRepository) ApprovalGate {
	return &approvalGate{userRepo: userRepo}
}

func (g *approvalGate) Evaluate(ctx context.Context, sc SettlementContext, req ApprovalRequest) (ApprovalDecision, error) {
	if len(req.Reasons) == 0 {
		return ApprovalDecision{State: ApprovalNone, ApprovedBy: sc.UserID, ApproverName: sc.Username}, nil
	}

	decision := ApprovalDecision{State: ApprovalRequired, Reasons: req.Reasons}
	if req.Credential == "" {
		data := map[string]interface{}{
			"operation": req.Operation,
			"reasons":   req.Reasons,
		}
		if req.Amount != nil {
			data["amount"] = money.Format(*req.Amount)
		}
		return decision, ErrManagerApprovalNeeded.WithData(data)
	}

	approvers, err := g.userRepo.ListApprovers(ctx, sc.TenantID, model.PrivilegedRoles)
	if err != nil {
		return decision, fmt.Errorf("failed to load approvers: %w", err)
	}

	for _, u := range approvers {
		if u.ManagerPINHash == nil || !model.IsPrivilegedRole(u.Role) {
			continue
		}
		err := bcrypt.CompareHashAndPassword([]byte(*u.ManagerPINHash), []byte(req.Credential))
		if err == nil {
			decision.State = ApprovalGranted
			decision.ApprovedBy = u.ID
			decision.ApproverName = u.Username
			return decision, nil
		}
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return decision, fmt.Errorf("failed to verify approval pin: %w", err)
		}
	}

	decision.State = ApprovalDenied
	return decision, ErrInvalidApprovalPin
}

// HashPIN produces the stored form of a manager PIN.
func HashPIN(pin string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// refundApprovalReasons lists why a refund of amount needs approval.
func refundApprovalReasons(policy Policy, sc SettlementContext, amount decimal.Decimal) []string {
	var reasons []string
	if policy.RefundApprovalThreshold.IsPositive() && amount.GreaterThan(policy.RefundApprovalThreshold) {
		reasons = append(reasons, ReasonAmountOverThreshold)
	}
	if policy.RequireManagerRefund && !model.IsPrivilegedRole(sc.Role) {
		reasons = append(reasons, ReasonRoleNotPrivileged)
	}
	return reasons
}

// voidApprovalReasons lists why a void of order needs approval. Paid orders that
// policy allows voiding still need a manager when the actor is not privileged.
func voidApprovalReasons(policy Policy, sc SettlementContext, order model.Order) []string {
	var reasons []string
	privileged := model.IsPrivilegedRole(sc.Role)
	if policy.RequireManagerVoid && !privileged {
		reasons = append(reasons, ReasonRoleNotPrivileged)
	}
	if order.IsPaid() && !privileged {
		reasons = append(reasons, ReasonPaidOrderVoid)
	}
	return reasons
}
