// Package journal is the append-only audit trail of split session changes.
package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/tabsplit/internal/domain/reconciliation"
	"github.com/tabsplit/internal/domain/shared"
)

// Entry records one committed change of a bill split state
type Entry struct {
	EventID           uuid.UUID            `json:"event_id" bson:"event_id"`
	BillID            string               `json:"bill_id" bson:"bill_id"`
	SplitID           uuid.UUID            `json:"split_id" bson:"split_id"`
	BusinessID        string               `json:"business_id,omitempty" bson:"business_id,omitempty"`
	TableCode         string               `json:"table_code,omitempty" bson:"table_code,omitempty"`
	Version           int64                `json:"version" bson:"version"`
	Kind              shared.ChangeKind    `json:"kind" bson:"kind"`
	PersonID          string               `json:"person_id,omitempty" bson:"person_id,omitempty"`
	PersonIDs         []string             `json:"person_ids,omitempty" bson:"person_ids,omitempty"`
	FromStatus        shared.PaymentStatus `json:"from_status,omitempty" bson:"from_status,omitempty"`
	ToStatus          shared.PaymentStatus `json:"to_status,omitempty" bson:"to_status,omitempty"`
	SessionStatus     shared.SessionStatus `json:"session_status" bson:"session_status"`
	AmountPaid        int64                `json:"amount_paid,omitempty" bson:"amount_paid,omitempty"` // Stored in cents/minor units
	Settlement        string               `json:"settlement_reference,omitempty" bson:"settlement_reference,omitempty"`
	Reason            string               `json:"reason,omitempty" bson:"reason,omitempty"`
	CompletedPayments int                  `json:"completed_payments" bson:"completed_payments"`
	TotalPeople       int                  `json:"total_people" bson:"total_people"`
	TotalPaid         int64                `json:"total_paid" bson:"total_paid"`
	TotalRemaining    int64                `json:"total_remaining" bson:"total_remaining"`
	CorrelationID     string               `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	OccurredAt        time.Time            `json:"occurred_at" bson:"occurred_at"`
}

// NewEntry describes change as applied to the post-commit state
func NewEntry(state *reconciliation.BillSplitState, change *reconciliation.Change, correlationID string) *Entry {
	progress := state.Progress()
	e := &Entry{
		EventID:           uuid.New(),
		BillID:            state.BillID,
		SplitID:           state.SplitID,
		BusinessID:        state.BusinessID,
		TableCode:         state.TableCode,
		Version:           state.Version,
		Kind:              change.Kind,
		PersonID:          change.PersonID,
		PersonIDs:         change.TimedOut,
		FromStatus:        change.From,
		ToStatus:          change.To,
		SessionStatus:     state.Status,
		CompletedPayments: progress.CompletedPayments,
		TotalPeople:       progress.TotalPeople,
		TotalPaid:         progress.TotalPaid,
		TotalRemaining:    progress.TotalRemaining,
		CorrelationID:     correlationID,
		OccurredAt:        state.UpdatedAt,
	}

	if r, ok := state.Records[change.PersonID]; ok {
		e.AmountPaid = r.AmountPaid
		e.Settlement = r.SettlementReference
		e.Reason = r.FailureReason
	}
	if change.Kind == shared.ChangePaymentTimedOut {
		e.Reason = string(shared.FailureReasonProcessingTimeout)
	}
	return e
}
