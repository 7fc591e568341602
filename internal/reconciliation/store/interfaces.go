package store

import (
	"context"

	"github.com/tabsplit/internal/domain/reconciliation"
)

// StateLoader reads persisted sessions on a cache miss
type StateLoader interface {
	Load(ctx context.Context, billID string) (*reconciliation.BillSplitState, error)
}

// Persister durably records a committed state together with its change
type Persister interface {
	Persist(ctx context.Context, state *reconciliation.BillSplitState, change *reconciliation.Change, correlationID string) error
}

// Notifier broadcasts a committed change. It must not block.
type Notifier interface {
	Notify(state *reconciliation.BillSplitState, change *reconciliation.Change)
}
