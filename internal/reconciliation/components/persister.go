package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/tabsplit/internal/domain/journal"
	"github.com/tabsplit/internal/domain/outbox"
	"github.com/tabsplit/internal/domain/reconciliation"
)

// TxRunner runs fn inside one database transaction
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// StatePersister saves a committed snapshot and queues its change for the
// outbox poller in the same transaction.
type StatePersister struct {
	db         TxRunner
	stateRepo  reconciliation.Repository
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewStatePersister(db TxRunner, stateRepo reconciliation.Repository, outboxRepo outbox.Repository, logger *slog.Logger) *StatePersister {
	return &StatePersister{
		db:         db,
		stateRepo:  stateRepo,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Persist implements store.Persister. A snapshot older than the stored one is
// skipped but its change is still queued, so the journal sees every version.
func (p *StatePersister) Persist(ctx context.Context, state *reconciliation.BillSplitState, change *reconciliation.Change, correlationID string) error {
	logger := p.logger
	if correlationID != "" {
		logger = p.logger.With("correlation_id", correlationID)
	}

	entry := journal.NewEntry(state, change, correlationID)
	message, err := outbox.NewMessage(entry)
	if err != nil {
		logger.Error("Failed to create outbox message (marshal payload)", "bill_id", state.BillID, "error", err)
		return fmt.Errorf("failed to create outbox message for bill %s: %w", state.BillID, err)
	}

	err = p.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		written, err := p.stateRepo.WithTx(tx).Save(ctx, state)
		if err != nil {
			return fmt.Errorf("failed to save split state for bill %s: %w", state.BillID, err)
		}
		if !written {
			logger.Debug("Stored split state is newer, snapshot skipped", "bill_id", state.BillID, "version", state.Version)
		}

		if err := p.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
			return fmt.Errorf("failed to create outbox message for bill %s: %w", state.BillID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Debug("Split state persisted",
		"bill_id", state.BillID,
		"version", state.Version,
		"kind", change.Kind,
		"event_id", entry.EventID.String(),
	)
	return nil
}
