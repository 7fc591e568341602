// Package postgres provides PostgreSQL implementations of the domain repositories.
// Split sessions are stored as versioned JSONB documents next to the
// transactional outbox they feed.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/tabsplit/internal/domain/reconciliation"
	"github.com/tabsplit/internal/platform/persistence"
)

// SplitStateRepository implements the reconciliation.Repository interface for PostgreSQL
type SplitStateRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewSplitStateRepository creates a new PostgreSQL split state repository
func NewSplitStateRepository(logger *slog.Logger, db *persistence.PostgresDB) reconciliation.Repository {
	return &SplitStateRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

// WithTx returns a repository that runs every statement in tx
func (r *SplitStateRepository) WithTx(tx pgx.Tx) reconciliation.Repository {
	return &SplitStateRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Load returns the stored session of the bill
func (r *SplitStateRepository) Load(ctx context.Context, billID string) (*reconciliation.BillSplitState, error) {
	query := `
		SELECT state
		FROM bill_split_states
		WHERE bill_id = $1
	`

	var payload []byte
	if err := r.querier.QueryRow(ctx, query, billID).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reconciliation.ErrStateNotFound{BillID: billID}
		}
		r.logger.Error("Failed to load split state", "bill_id", billID, "error", err)
		return nil, fmt.Errorf("failed to load split state: %w", err)
	}

	var state reconciliation.BillSplitState
	if err := json.Unmarshal(payload, &state); err != nil {
		r.logger.Error("Stored split state is not decodable", "bill_id", billID, "error", err)
		return nil, fmt.Errorf("failed to decode split state for bill %s: %w", billID, err)
	}
	if state.Records == nil {
		state.Records = make(map[string]reconciliation.PaymentRecord)
	}
	return &state, nil
}

// Save upserts the snapshot. Rows already holding the same or a newer version
// are left alone so out-of-order writers cannot roll a session back.
func (r *SplitStateRepository) Save(ctx context.Context, state *reconciliation.BillSplitState) (bool, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return false, fmt.Errorf("failed to encode split state for bill %s: %w", state.BillID, err)
	}

	query := `
		INSERT INTO bill_split_states (bill_id, split_id, version, status, state, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (bill_id) DO UPDATE
		SET split_id = EXCLUDED.split_id,
			version = EXCLUDED.version,
			status = EXCLUDED.status,
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at
		WHERE bill_split_states.version < EXCLUDED.version
	`

	result, err := r.querier.Exec(ctx, query,
		state.BillID,
		state.SplitID,
		state.Version,
		state.Status,
		payload,
		state.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save split state",
			"bill_id", state.BillID,
			"version", state.Version,
			"error", err,
		)
		return false, fmt.Errorf("failed to save split state: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

