package reconciliation

import (
	"fmt"

	"github.com/tabsplit/internal/domain/shared"
)

// ErrSplitLocked indicates a re-split that would alter or drop a payment in flight or done
type ErrSplitLocked struct {
	BillID   string
	PersonID string
	Reason   string
}

func (e ErrSplitLocked) Error() string {
	if e.PersonID == "" {
		return fmt.Sprintf("split of bill %s is locked: %s", e.BillID, e.Reason)
	}
	return fmt.Sprintf("split of bill %s is locked for %s: %s", e.BillID, e.PersonID, e.Reason)
}

// Is implements the errors.Is interface for ErrSplitLocked
func (e ErrSplitLocked) Is(target error) bool {
	t, ok := target.(ErrSplitLocked)
	if !ok {
		return false
	}
	return t.BillID == "" || t.BillID == e.BillID
}

// ErrInvalidTransition indicates an event that the record's status does not allow
type ErrInvalidTransition struct {
	BillID   string
	PersonID string
	From     shared.PaymentStatus
	Event    shared.PaymentEventType
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid transition for %s on bill %s: %s in status %s", e.PersonID, e.BillID, e.Event, e.From)
}

// Is implements the errors.Is interface for ErrInvalidTransition
func (e ErrInvalidTransition) Is(target error) bool {
	t, ok := target.(ErrInvalidTransition)
	if !ok {
		return false
	}
	return t.BillID == "" || t.BillID == e.BillID
}

// ErrStateNotFound indicates no split session exists for the bill
type ErrStateNotFound struct {
	BillID string
}

func (e ErrStateNotFound) Error() string {
	return "no split session for bill: " + e.BillID
}

// Is implements the errors.Is interface for ErrStateNotFound
func (e ErrStateNotFound) Is(target error) bool {
	t, ok := target.(ErrStateNotFound)
	if !ok {
		return false
	}
	return t.BillID == "" || t.BillID == e.BillID
}

// ErrSessionClosed indicates a mutation against a cancelled session
type ErrSessionClosed struct {
	BillID string
	Status shared.SessionStatus
}

func (e ErrSessionClosed) Error() string {
	return fmt.Sprintf("split session for bill %s is %s", e.BillID, e.Status)
}

// Is implements the errors.Is interface for ErrSessionClosed
func (e ErrSessionClosed) Is(target error) bool {
	t, ok := target.(ErrSessionClosed)
	if !ok {
		return false
	}
	return t.BillID == "" || t.BillID == e.BillID
}
