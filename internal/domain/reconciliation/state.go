// Package reconciliation models the authoritative payment state of one bill's
// split session and the transitions allowed on it.
package reconciliation

import (
	"time"

	"github.com/google/uuid"
	"github.com/tabsplit/internal/domain/shared"
	"github.com/tabsplit/internal/domain/split"
)

// PaymentRecord tracks one participant's payment against the bill
type PaymentRecord struct {
	PersonID            string               `json:"person_id"`
	DisplayName         string               `json:"display_name"`
	Status              shared.PaymentStatus `json:"status"`
	AmountDue           int64                `json:"amount_due"`  // base + tax + fee, minor units
	TipPortion          int64                `json:"tip_portion"` // suggested tip
	AmountPaid          int64                `json:"amount_paid"` // amount + tip actually paid
	TipPaid             int64                `json:"tip_paid"`
	SettlementReference string               `json:"settlement_reference,omitempty"`
	FailureReason       string               `json:"failure_reason,omitempty"`
	Attempts            int                  `json:"attempts"`
	StartedAt           *time.Time           `json:"started_at,omitempty"`
	LastUpdated         time.Time            `json:"last_updated"`
}

// Locked reports whether the record's amounts may no longer change
func (r PaymentRecord) Locked() bool {
	return r.Status == shared.PaymentStatusProcessing || r.Status == shared.PaymentStatusCompleted
}

// Progress is derived from a snapshot on every read
type Progress struct {
	TotalPeople       int   `json:"total_people"`
	CompletedPayments int   `json:"completed_payments"`
	TotalPaid         int64 `json:"total_paid"`
	TotalRemaining    int64 `json:"total_remaining"`
}

// BillSplitState is the unit of ownership of the reconciliation store. A
// published snapshot is never modified; writers mutate a Clone.
type BillSplitState struct {
	BillID       string                   `json:"bill_id"`
	SplitID      uuid.UUID                `json:"split_id"`
	BusinessID   string                   `json:"business_id,omitempty"`
	TableCode    string                   `json:"table_code,omitempty"`
	Participants []split.Participant      `json:"participants"`
	Strategy     split.Strategy           `json:"strategy"`
	Split        *split.Result            `json:"split"`
	Records      map[string]PaymentRecord `json:"records"`
	Version      int64                    `json:"version"`
	Status       shared.SessionStatus     `json:"status"`
	ReconciledAt *time.Time               `json:"reconciled_at,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

// NewState creates an empty active session for a bill
func NewState(billID string, splitID uuid.UUID, businessID, tableCode string, now time.Time) *BillSplitState {
	return &BillSplitState{
		BillID:     billID,
		SplitID:    splitID,
		BusinessID: businessID,
		TableCode:  tableCode,
		Records:    make(map[string]PaymentRecord),
		Status:     shared.SessionStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Clone returns a deep copy that can be mutated freely
func (s *BillSplitState) Clone() *BillSplitState {
	out := *s
	out.Participants = append([]split.Participant(nil), s.Participants...)
	out.Strategy = cloneStrategy(s.Strategy)
	out.Split = s.Split.Clone()
	out.Records = make(map[string]PaymentRecord, len(s.Records))
	for id, r := range s.Records {
		if r.StartedAt != nil {
			t := *r.StartedAt
			r.StartedAt = &t
		}
		out.Records[id] = r
	}
	if s.ReconciledAt != nil {
		t := *s.ReconciledAt
		out.ReconciledAt = &t
	}
	return &out
}

func cloneStrategy(st split.Strategy) split.Strategy {
	out := split.Strategy{Type: st.Type}
	if st.ParticipantIDs != nil {
		out.ParticipantIDs = append([]string(nil), st.ParticipantIDs...)
	}
	if st.Amounts != nil {
		out.Amounts = make(map[string]int64, len(st.Amounts))
		for k, v := range st.Amounts {
			out.Amounts[k] = v
		}
	}
	if st.Items != nil {
		out.Items = make(map[string][]string, len(st.Items))
		for k, v := range st.Items {
			out.Items[k] = append([]string(nil), v...)
		}
	}
	return out
}

// Progress derives the payment progress of the session
func (s *BillSplitState) Progress() Progress {
	p := Progress{TotalPeople: len(s.Records)}
	for _, r := range s.Records {
		if r.Status == shared.PaymentStatusCompleted {
			p.CompletedPayments++
			p.TotalPaid += r.AmountPaid
			continue
		}
		p.TotalRemaining += r.AmountDue + r.TipPortion
	}
	return p
}

// OrderedRecords returns the records in participant order
func (s *BillSplitState) OrderedRecords() []PaymentRecord {
	out := make([]PaymentRecord, 0, len(s.Records))
	for _, p := range s.Participants {
		if r, ok := s.Records[p.PersonID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Closed reports whether the session accepts no further payments
func (s *BillSplitState) Closed() bool {
	return s.Status != shared.SessionStatusActive
}

// touch marks a committed mutation
func (s *BillSplitState) touch(now time.Time) {
	s.Version++
	s.UpdatedAt = now
}

// settle marks the session reconciled when every record has completed
func (s *BillSplitState) settle(now time.Time) bool {
	if s.Status != shared.SessionStatusActive || len(s.Records) == 0 {
		return false
	}
	for _, r := range s.Records {
		if r.Status != shared.PaymentStatusCompleted {
			return false
		}
	}
	s.Status = shared.SessionStatusReconciled
	s.ReconciledAt = &now
	return true
}
