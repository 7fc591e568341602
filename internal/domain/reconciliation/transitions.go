package reconciliation

import (
	"time"

	"github.com/tabsplit/internal/domain/shared"
	"github.com/tabsplit/internal/domain/split"
)

// Change describes one committed mutation of a BillSplitState
type Change struct {
	Kind       shared.ChangeKind    `json:"kind"`
	PersonID   string               `json:"person_id,omitempty"`
	From       shared.PaymentStatus `json:"from,omitempty"`
	To         shared.PaymentStatus `json:"to,omitempty"`
	Reconciled bool                 `json:"reconciled"`
	TimedOut   []string             `json:"timed_out,omitempty"`
}

// CommitSplit installs a new split on the session. Records that are processing
// or completed must keep their amounts, and no record with payment history may
// be dropped. On error the state is left as it was.
func (s *BillSplitState) CommitSplit(participants []split.Participant, strategy split.Strategy, result *split.Result, now time.Time) (*Change, error) {
	switch s.Status {
	case shared.SessionStatusCancelled:
		return nil, ErrSessionClosed{BillID: s.BillID, Status: s.Status}
	case shared.SessionStatusReconciled:
		return nil, ErrSplitLocked{BillID: s.BillID, Reason: "bill is fully paid"}
	}

	incoming := make(map[string]split.PersonShare, len(result.Shares))
	for _, share := range result.Shares {
		incoming[share.PersonID] = share
	}

	for _, p := range s.Participants {
		r, ok := s.Records[p.PersonID]
		if !ok {
			continue
		}
		share, kept := incoming[r.PersonID]
		if !kept {
			if r.Locked() || r.Attempts > 0 {
				return nil, ErrSplitLocked{BillID: s.BillID, PersonID: r.PersonID, Reason: "participant has payment history"}
			}
			continue
		}
		if r.Locked() && (share.Owed() != r.AmountDue || share.TipAmount != r.TipPortion) {
			return nil, ErrSplitLocked{BillID: s.BillID, PersonID: r.PersonID, Reason: "payment " + string(r.Status) + " for a different amount"}
		}
	}

	records := make(map[string]PaymentRecord, len(result.Shares))
	for _, share := range result.Shares {
		r, ok := s.Records[share.PersonID]
		if !ok {
			r = PaymentRecord{PersonID: share.PersonID, Status: shared.PaymentStatusPending}
		}
		r.DisplayName = share.DisplayName
		if !r.Locked() {
			r.AmountDue = share.Owed()
			r.TipPortion = share.TipAmount
		}
		r.LastUpdated = now
		records[share.PersonID] = r
	}

	s.Participants = append([]split.Participant(nil), participants...)
	s.Strategy = cloneStrategy(strategy)
	s.Split = result.Clone()
	s.Records = records
	s.touch(now)

	return &Change{Kind: shared.ChangeSplitCommitted, Reconciled: s.settle(now)}, nil
}

// ApplyPayment applies a validated payment event. A nil change with a nil error
// means the event was a duplicate and nothing changed.
func (s *BillSplitState) ApplyPayment(ev *shared.PaymentEvent, now time.Time) (*Change, error) {
	if s.Status == shared.SessionStatusCancelled {
		return nil, ErrSessionClosed{BillID: s.BillID, Status: s.Status}
	}

	r, ok := s.Records[ev.PersonID]
	if !ok {
		return nil, split.ErrUnknownParticipant{PersonID: ev.PersonID}
	}
	from := r.Status
	invalid := ErrInvalidTransition{BillID: s.BillID, PersonID: r.PersonID, From: from, Event: ev.Type}

	var kind shared.ChangeKind
	switch ev.Type {
	case shared.PaymentEventStarted:
		switch from {
		case shared.PaymentStatusProcessing:
			return nil, nil
		case shared.PaymentStatusPending, shared.PaymentStatusFailed:
			if ev.Amount != r.AmountDue {
				return nil, split.ErrAmountMismatch{Expected: r.AmountDue, Calculated: ev.Amount}
			}
			r.Status = shared.PaymentStatusProcessing
			r.FailureReason = ""
			r.Attempts++
			started := now
			r.StartedAt = &started
			kind = shared.ChangePaymentStarted
		default:
			return nil, invalid
		}

	case shared.PaymentEventCompleted:
		switch from {
		case shared.PaymentStatusCompleted:
			return nil, nil
		case shared.PaymentStatusPending, shared.PaymentStatusProcessing:
			if ev.Amount != r.AmountDue {
				return nil, split.ErrAmountMismatch{Expected: r.AmountDue, Calculated: ev.Amount}
			}
			if from == shared.PaymentStatusPending {
				r.Attempts++
			}
			r.Status = shared.PaymentStatusCompleted
			r.AmountPaid = ev.Amount + ev.TipAmount
			r.TipPaid = ev.TipAmount
			r.SettlementReference = ev.SettlementReference
			r.FailureReason = ""
			kind = shared.ChangePaymentCompleted
		default:
			return nil, invalid
		}

	case shared.PaymentEventFailed:
		switch from {
		case shared.PaymentStatusFailed:
			return nil, nil
		case shared.PaymentStatusPending, shared.PaymentStatusProcessing:
			r.Status = shared.PaymentStatusFailed
			r.FailureReason = ev.Reason
			r.StartedAt = nil
			kind = shared.ChangePaymentFailed
		default:
			return nil, invalid
		}

	default:
		return nil, shared.ErrInvalidEventType
	}

	r.LastUpdated = now
	s.Records[r.PersonID] = r
	s.touch(now)

	change := &Change{Kind: kind, PersonID: r.PersonID, From: from, To: r.Status}
	if kind == shared.ChangePaymentCompleted {
		change.Reconciled = s.settle(now)
	}
	return change, nil
}

// ExpireProcessing returns processing records started before the deadline to
// pending. It reports nil when nothing timed out.
func (s *BillSplitState) ExpireProcessing(deadline, now time.Time) *Change {
	if s.Status != shared.SessionStatusActive {
		return nil
	}

	var expired []string
	for _, p := range s.Participants {
		r, ok := s.Records[p.PersonID]
		if !ok || r.Status != shared.PaymentStatusProcessing {
			continue
		}
		if r.StartedAt != nil && r.StartedAt.After(deadline) {
			continue
		}
		r.Status = shared.PaymentStatusPending
		r.FailureReason = string(shared.FailureReasonProcessingTimeout)
		r.StartedAt = nil
		r.LastUpdated = now
		s.Records[r.PersonID] = r
		expired = append(expired, r.PersonID)
	}
	if len(expired) == 0 {
		return nil
	}

	s.touch(now)
	return &Change{Kind: shared.ChangePaymentTimedOut, From: shared.PaymentStatusProcessing, To: shared.PaymentStatusPending, TimedOut: expired}
}

// Cancel closes the session on upstream cancellation. A nil change means it
// was already cancelled.
func (s *BillSplitState) Cancel(now time.Time) *Change {
	if s.Status == shared.SessionStatusCancelled {
		return nil
	}
	s.Status = shared.SessionStatusCancelled
	s.touch(now)
	return &Change{Kind: shared.ChangeSessionCancelled}
}
