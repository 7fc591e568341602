package notification

import (
	"time"

	"github.com/tabsplit/internal/domain/reconciliation"
	"github.com/tabsplit/internal/domain/shared"
)

// Event is one notification delivered to a room. Subscribers drop events whose
// version is not newer than the last one they applied.
type Event struct {
	Room          string                  `json:"room"`
	Type          shared.ChangeKind       `json:"type"`
	BillID        string                  `json:"bill_id"`
	SplitID       string                  `json:"split_id"`
	Version       int64                   `json:"version"`
	PersonID      string                  `json:"person_id,omitempty"`
	PersonIDs     []string                `json:"person_ids,omitempty"`
	Status        shared.PaymentStatus    `json:"status,omitempty"`
	SessionStatus shared.SessionStatus    `json:"session_status"`
	Progress      reconciliation.Progress `json:"progress"`
	OccurredAt    time.Time               `json:"occurred_at"`
}

// NewEvent describes change on the post-commit snapshot, without a room
func NewEvent(state *reconciliation.BillSplitState, change *reconciliation.Change) Event {
	return Event{
		Type:          change.Kind,
		BillID:        state.BillID,
		SplitID:       state.SplitID.String(),
		Version:       state.Version,
		PersonID:      change.PersonID,
		PersonIDs:     change.TimedOut,
		Status:        change.To,
		SessionStatus: state.Status,
		Progress:      state.Progress(),
		OccurredAt:    state.UpdatedAt,
	}
}
