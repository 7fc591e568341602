package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tabsplit/internal/domain/shared"
)

// Attempt is the outcome of recording one failed delivery
type Attempt struct {
	Attempts int
	Status   shared.OutboxStatus
}

// GaveUp reports whether the message left the pending queue
func (a Attempt) GaveUp() bool {
	return a.Status == shared.OutboxStatusFailedToPublish
}

// Repository queues split changes next to the state snapshot that produced them
type Repository interface {
	Create(ctx context.Context, message *Message) error
	GetPending(ctx context.Context, limit int) ([]*Message, error)
	MarkProcessed(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64) error
	// RecordFailedAttempt bumps the attempt counter and parks the message as
	// FAILED_TO_PUBLISH once maxAttempts is reached.
	RecordFailedAttempt(ctx context.Context, id int64, maxAttempts int) (Attempt, error)
	WithTx(tx pgx.Tx) Repository
}

type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return fmt.Sprintf("outbox message %d not found", e.ID)
}

// Is matches any ErrMessageNotFound when the target carries no id
func (e ErrMessageNotFound) Is(target error) bool {
	t, ok := target.(ErrMessageNotFound)
	if !ok {
		return false
	}
	return t.ID == 0 || t.ID == e.ID
}

// ErrDuplicateMessage means the change was already queued
type ErrDuplicateMessage struct {
	EventID uuid.UUID
}

func (e ErrDuplicateMessage) Error() string {
	return fmt.Sprintf("split change %s already queued", e.EventID)
}

func (e ErrDuplicateMessage) Is(target error) bool {
	t, ok := target.(ErrDuplicateMessage)
	if !ok {
		return false
	}
	return t.EventID == uuid.Nil || t.EventID == e.EventID
}
