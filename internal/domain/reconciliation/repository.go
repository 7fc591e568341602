package reconciliation

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository persists split sessions so they survive restarts
type Repository interface {
	// Load returns ErrStateNotFound when the bill has no stored session.
	Load(ctx context.Context, billID string) (*BillSplitState, error)
	// Save upserts the state unless a version at least as new is already stored;
	// it reports whether a row was written.
	Save(ctx context.Context, state *BillSplitState) (bool, error)
	WithTx(tx pgx.Tx) Repository
}
