package service

import (
	"context"

	"github.com/tabsplit/internal/domain/bill"
	"github.com/tabsplit/internal/domain/journal"
	"github.com/tabsplit/internal/domain/reconciliation"
	"github.com/tabsplit/internal/domain/shared"
	"github.com/tabsplit/internal/domain/split"
	"github.com/tabsplit/internal/split_engine"
)

// SplitService defines split calculation and split session operations
type SplitService interface {
	// Calculate loads the bill and derives a split, allocating tip when given.
	// Returns ErrBillNotFound if the bill is unknown.
	Calculate(ctx context.Context, billID string, participants []split.Participant, strategy split.Strategy, tip *split_engine.Tip) (*split.Result, error)

	// AllocateTip re-allocates a tip over an already computed split
	AllocateTip(ctx context.Context, result *split.Result, tip split_engine.Tip) (*split.Result, error)

	// Validate recomputes the split and diagnoses the proposed one. Only a
	// missing bill or an infrastructure failure is returned as an error.
	Validate(ctx context.Context, billID string, participants []split.Participant, strategy split.Strategy, proposed *split.Result) (split.ValidationResult, error)

	// Execute commits the split as the bill's session split
	Execute(ctx context.Context, billID string, participants []split.Participant, strategy split.Strategy, result *split.Result, correlationID string) (*reconciliation.BillSplitState, error)

	// GetSplit returns the committed session snapshot.
	// Returns ErrStateNotFound if no split was executed for the bill.
	GetSplit(ctx context.Context, billID string) (*reconciliation.BillSplitState, error)

	// GetProgress returns the bill's payment progress
	GetProgress(ctx context.Context, billID string) (*reconciliation.BillSplitState, reconciliation.Progress, error)

	// Cancel closes the session after an upstream cancellation
	Cancel(ctx context.Context, billID, correlationID string) (*reconciliation.BillSplitState, error)

	// GetHistory returns a page of the journal and the total entry count
	GetHistory(ctx context.Context, billID string, page, perPage int) ([]*journal.Entry, int64, error)
}

// PaymentService defines payment lifecycle submission over HTTP
type PaymentService interface {
	// Submit applies the event. duplicate is true when the event changed nothing.
	Submit(ctx context.Context, event *shared.PaymentEvent) (state *reconciliation.BillSplitState, duplicate bool, err error)
}

// SessionStore is the reconciliation store as seen by the HTTP layer
type SessionStore interface {
	CommitSplit(ctx context.Context, b *bill.Bill, participants []split.Participant, strategy split.Strategy, result *split.Result, correlationID string) (*reconciliation.BillSplitState, error)
	Cancel(ctx context.Context, billID, correlationID string) (*reconciliation.BillSplitState, error)
	Snapshot(ctx context.Context, billID string) (*reconciliation.BillSplitState, error)
}

// PaymentApplier applies payment events and reports the resulting change
type PaymentApplier interface {
	Apply(ctx context.Context, event *shared.PaymentEvent) (*reconciliation.BillSplitState, *reconciliation.Change, error)
}
