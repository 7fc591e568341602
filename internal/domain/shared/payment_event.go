package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidEventType = errors.New("invalid payment event type")
	ErrMissingBillID    = errors.New("bill id is required")
	ErrMissingPersonID  = errors.New("person id is required")
	ErrNegativeAmount   = errors.New("amounts must not be negative")
)

// PaymentEvent is an inbound payment lifecycle event, received over HTTP or Kafka.
// Amounts are stored in minor units.
type PaymentEvent struct {
	EventID             uuid.UUID        `json:"event_id"`
	Type                PaymentEventType `json:"type"`
	BillID              string           `json:"bill_id"`
	PersonID            string           `json:"person_id"`
	Amount              int64            `json:"amount"`
	TipAmount           int64            `json:"tip_amount"`
	SettlementReference string           `json:"settlement_reference,omitempty"`
	Reason              string           `json:"reason,omitempty"`
	CorrelationID       string           `json:"correlation_id,omitempty"`
	OccurredAt          time.Time        `json:"occurred_at"`
}

// Validate checks the event is well formed before it reaches the store
func (e *PaymentEvent) Validate() error {
	if !e.Type.Valid() {
		return ErrInvalidEventType
	}
	if e.BillID == "" {
		return ErrMissingBillID
	}
	if e.PersonID == "" {
		return ErrMissingPersonID
	}
	if e.Amount < 0 || e.TipAmount < 0 {
		return ErrNegativeAmount
	}
	return nil
}
