package bill

import (
	"context"
)

// Repository is the read-only bill source
type Repository interface {
	GetByID(ctx context.Context, id string) (*Bill, error)
}

// ErrBillNotFound indicates missing bill
type ErrBillNotFound struct {
	BillID string
}

func (e ErrBillNotFound) Error() string {
	return "bill not found: " + e.BillID
}

// Is implements the errors.Is interface for ErrBillNotFound
func (e ErrBillNotFound) Is(target error) bool {
	t, ok := target.(ErrBillNotFound)
	if !ok {
		return false
	}
	return t.BillID == "" || t.BillID == e.BillID
}
