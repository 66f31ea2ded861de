package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Settlement event types
const (
	TypeShiftReconciled = "shift.reconciled"
	TypeOrderRefunded   = "order.refunded"
	TypeOrderVoided     = "order.voided"
)

// Event is a committed settlement, fanned out to dashboards and other services.
type Event struct {
	Type       string      `json:"type"`
	TenantID   uuid.UUID   `json:"tenant_id"`
	BranchID   uuid.UUID   `json:"branch_id"`
	Payload    interface{} `json:"payload"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Publisher delivers events after the settlement transaction has committed.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type nop struct{}

func (nop) Publish(context.Context, Event) error { return nil }

// Nop discards every event.
func Nop() Publisher { return nop{} }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
