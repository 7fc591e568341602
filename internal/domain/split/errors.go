package split

import (
	"fmt"
)

// ErrAmountMismatch indicates amounts that do not add up to what the bill requires
type ErrAmountMismatch struct {
	Expected   int64
	Calculated int64
}

func (e ErrAmountMismatch) Error() string {
	return fmt.Sprintf("amount mismatch: expected %d, calculated %d, difference %d", e.Expected, e.Calculated, e.Difference())
}

// Difference returns expected minus calculated
func (e ErrAmountMismatch) Difference() int64 {
	return e.Expected - e.Calculated
}

// Is implements the errors.Is interface for ErrAmountMismatch
func (e ErrAmountMismatch) Is(target error) bool {
	t, ok := target.(ErrAmountMismatch)
	if !ok {
		return false
	}
	if t == (ErrAmountMismatch{}) {
		return true
	}
	return e == t
}

// ErrUnassignedItem indicates a line item nobody was assigned
type ErrUnassignedItem struct {
	ItemID string
}

func (e ErrUnassignedItem) Error() string {
	return "line item has no assignees: " + e.ItemID
}

// Is implements the errors.Is interface for ErrUnassignedItem
func (e ErrUnassignedItem) Is(target error) bool {
	t, ok := target.(ErrUnassignedItem)
	if !ok {
		return false
	}
	return t.ItemID == "" || t.ItemID == e.ItemID
}

// ErrUnknownItem indicates a reference to a line item that is not on the bill
type ErrUnknownItem struct {
	ItemID string
}

func (e ErrUnknownItem) Error() string {
	return "unknown line item: " + e.ItemID
}

// Is implements the errors.Is interface for ErrUnknownItem
func (e ErrUnknownItem) Is(target error) bool {
	t, ok := target.(ErrUnknownItem)
	if !ok {
		return false
	}
	return t.ItemID == "" || t.ItemID == e.ItemID
}

// ErrUnknownParticipant indicates a reference to a person outside the split session
type ErrUnknownParticipant struct {
	PersonID string
}

func (e ErrUnknownParticipant) Error() string {
	return "unknown participant: " + e.PersonID
}

// Is implements the errors.Is interface for ErrUnknownParticipant
func (e ErrUnknownParticipant) Is(target error) bool {
	t, ok := target.(ErrUnknownParticipant)
	if !ok {
		return false
	}
	return t.PersonID == "" || t.PersonID == e.PersonID
}

// ErrInvalidSplit indicates a split that is malformed or fails validation.
// Validation is set when the rejection came from the split validator.
type ErrInvalidSplit struct {
	Reason     string
	Validation *ValidationResult
}

func (e ErrInvalidSplit) Error() string {
	return "invalid split: " + e.Reason
}

// Is implements the errors.Is interface for ErrInvalidSplit
func (e ErrInvalidSplit) Is(target error) bool {
	_, ok := target.(ErrInvalidSplit)
	return ok
}
