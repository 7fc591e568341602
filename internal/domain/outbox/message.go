package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tabsplit/internal/domain/journal"
	"github.com/tabsplit/internal/domain/shared"
)

// Message is one journal entry waiting to leave the service. Rows are
// written in the same transaction as the split snapshot.
type Message struct {
	ID            int64               `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	BillID        string              `json:"bill_id"`
	Version       int64               `json:"version"`
	Kind          shared.ChangeKind   `json:"kind"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage queues entry as a pending message
func NewMessage(entry *journal.Entry) (*Message, error) {
	if entry == nil {
		return nil, fmt.Errorf("nil journal entry")
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode journal entry %s: %w", entry.EventID, err)
	}
	return &Message{
		EventID:   entry.EventID,
		BillID:    entry.BillID,
		Version:   entry.Version,
		Kind:      entry.Kind,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Entry decodes the queued journal entry
func (m *Message) Entry() (*journal.Entry, error) {
	var entry journal.Entry
	if err := json.Unmarshal(m.Payload, &entry); err != nil {
		return nil, fmt.Errorf("decode outbox %d payload: %w", m.ID, err)
	}
	return &entry, nil
}

// LogAttrs identifies the message in log lines
func (m *Message) LogAttrs() []any {
	return []any{
		"outbox_id", m.ID,
		"bill_id", m.BillID,
		"version", m.Version,
		"kind", m.Kind,
		"attempts", m.Attempts,
	}
}
