package service

import (
	"errors"
	"fmt"

	"posbackend/internal/repository"
)

// ErrorKind classifies settlement failures for transport mapping.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindConflict
	KindApproval
	KindRateLimit
	KindContention
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindApproval:
		return "approval"
	case KindRateLimit:
		return "rate_limit"
	case KindContention:
		return "contention"
	default:
		return "internal"
	}
}

// SettlementError is a classified failure of a settlement operation.
type SettlementError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Data    map[string]interface{}
	Err     error
}

func (e *SettlementError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *SettlementError) Unwrap() error { return e.Err }

// Is matches any SettlementError carrying the same code.
func (e *SettlementError) Is(target error) bool {
	var t *SettlementError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithData returns a copy of e carrying contextual fields for the caller.
func (e *SettlementError) WithData(data map[string]interface{}) *SettlementError {
	cp := *e
	cp.Data = data
	return &cp
}

// WithMessage returns a copy of e with a more specific message.
func (e *SettlementError) WithMessage(format string, args ...interface{}) *SettlementError {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy of e wrapping cause.
func (e *SettlementError) Wrap(cause error) *SettlementError {
	cp := *e
	cp.Err = cause
	return &cp
}

func newError(kind ErrorKind, code, message string) *SettlementError {
	return &SettlementError{Kind: kind, Code: code, Message: message}
}

var (
	ErrValidation            = newError(KindValidation, "VALIDATION_ERROR", "invalid request")
	ErrDenominationMismatch  = newError(KindValidation, "DENOMINATION_MISMATCH", "actual_cash does not match the counted denominations")
	ErrInvalidItems          = newError(KindValidation, "INVALID_ITEMS", "one or more items do not belong to the order")
	ErrNoOpenShift           = newError(KindNotFound, "NO_OPEN_SHIFT", "no open shift found")
	ErrOrderNotFound         = newError(KindNotFound, "ORDER_NOT_FOUND", "order not found")
	ErrRefundPeriodExpired   = newError(KindConflict, "REFUND_PERIOD_EXPIRED", "refund period has expired")
	ErrOrderNotPaid          = newError(KindConflict, "ORDER_NOT_PAID", "order has not been paid")
	ErrOrderAlreadyRefunded  = newError(KindConflict, "ORDER_ALREADY_REFUNDED", "order has already been refunded")
	ErrNoRefundableAmount    = newError(KindConflict, "NO_REFUNDABLE_AMOUNT", "order has no refundable amount")
	ErrAmountExceedsAvail    = newError(KindConflict, "AMOUNT_EXCEEDS_AVAILABLE", "refund amount exceeds the refundable amount")
	ErrInvalidRefundAmount   = newError(KindValidation, "INVALID_REFUND_AMOUNT", "refund amount must be greater than zero")
	ErrOrderAlreadyVoided    = newError(KindConflict, "ORDER_ALREADY_VOIDED", "order has already been voided")
	ErrCannotVoidPaidOrder   = newError(KindConflict, "CANNOT_VOID_PAID_ORDER", "paid orders cannot be voided")
	ErrInvalidOrderStatus    = newError(KindConflict, "INVALID_ORDER_STATUS", "order status does not allow this operation")
	ErrManagerApprovalNeeded = newError(KindApproval, "MANAGER_APPROVAL_REQUIRED", "manager approval is required")
	ErrInvalidApprovalPin    = newError(KindApproval, "INVALID_APPROVAL_PIN", "approval PIN is invalid")
	ErrInvalidCredentials    = newError(KindApproval, "INVALID_CREDENTIALS", "current password is incorrect")
	ErrRateLimitExceeded     = newError(KindRateLimit, "RATE_LIMIT_EXCEEDED", "too many settlement attempts, try again later")
	ErrLockWaitTimeout       = newError(KindContention, "LOCK_TIMEOUT", "the record is busy, please retry")
	ErrDeadlock              = newError(KindContention, "DEADLOCK", "the operation conflicted with another request, please retry")
	ErrInternal              = newError(KindInternal, "INTERNAL_ERROR", "an unexpected error occurred")
)

// validationError builds a 400 with a field-specific message.
func validationError(format string, args ...interface{}) *SettlementError {
	return ErrValidation.WithMessage(format, args...)
}

// translateError maps store and unexpected failures onto the settlement taxonomy.
// Errors that are already classified pass through.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var se *SettlementError
	if errors.As(err, &se) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrLockTimeout):
		return ErrLockWaitTimeout.Wrap(err)
	case errors.Is(err, repository.ErrDeadlock):
		return ErrDeadlock.Wrap(err)
	}
	return ErrInternal.Wrap(err)
}
