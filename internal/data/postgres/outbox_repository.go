package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tabsplit/internal/domain/outbox"
	"github.com/tabsplit/internal/domain/shared"
	"github.com/tabsplit/internal/platform/persistence"
)

const uniqueViolation = "23505"

const outboxColumnList = `id, event_id, bill_id, version, kind, payload, status, attempts, created_at, last_attempt_at`

// OutboxRepository stores queued split changes in split_outbox
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
	now     func() time.Time
}

func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) outbox.Repository {
	return &OutboxRepository{
		querier: db.Querier(),
		logger:  logger,
		now:     time.Now,
	}
}

// WithTx binds the repository to tx so the message commits with the snapshot
func (r *OutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	bound := *r
	bound.querier = tx
	return &bound
}

func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	const query = `
		INSERT INTO split_outbox (event_id, bill_id, version, kind, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	row := r.querier.QueryRow(ctx, query,
		message.EventID, message.BillID, message.Version, message.Kind,
		message.Payload, message.Status, message.Attempts, message.CreatedAt,
	)
	if err := row.Scan(&message.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return outbox.ErrDuplicateMessage{EventID: message.EventID}
		}
		r.logger.Error("Failed to queue split change",
			"event_id", message.EventID.String(), "bill_id", message.BillID, "version", message.Version, "error", err)
		return fmt.Errorf("failed to create outbox message: %w", err)
	}
	return nil
}

// GetPending returns the oldest pending messages. Ordering by id keeps each
// bill's versions in commit order.
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	query := `SELECT ` + outboxColumnList + `
		FROM split_outbox
		WHERE status = $1
		ORDER BY id ASC
		LIMIT $2`

	rows, err := r.querier.Query(ctx, query, shared.OutboxStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to read pending split changes", "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*outbox.Message, 0, limit)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over outbox messages: %w", err)
	}
	return messages, nil
}

func (r *OutboxRepository) MarkProcessed(ctx context.Context, id int64) error {
	return r.setStatus(ctx, id, shared.OutboxStatusProcessed)
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64) error {
	return r.setStatus(ctx, id, shared.OutboxStatusFailedToPublish)
}

func (r *OutboxRepository) setStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	const query = `
		UPDATE split_outbox
		SET status = $1, last_attempt_at = $2
		WHERE id = $3`

	tag, err := r.querier.Exec(ctx, query, status, r.now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update outbox message status", "outbox_id", id, "status", status, "error", err)
		return fmt.Errorf("failed to set outbox message %d to %s: %w", id, status, err)
	}
	if tag.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}
	return nil
}

func (r *OutboxRepository) RecordFailedAttempt(ctx context.Context, id int64, maxAttempts int) (outbox.Attempt, error) {
	const query = `
		UPDATE split_outbox
		SET attempts = attempts + 1,
		    last_attempt_at = $1,
		    status = CASE WHEN $2 > 0 AND attempts + 1 >= $2 THEN $3 ELSE status END
		WHERE id = $4
		RETURNING attempts, status`

	var attempt outbox.Attempt
	err := r.querier.QueryRow(ctx, query, r.now().UTC(), maxAttempts, shared.OutboxStatusFailedToPublish, id).
		Scan(&attempt.Attempts, &attempt.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return attempt, outbox.ErrMessageNotFound{ID: id}
	}
	if err != nil {
		r.logger.Error("Failed to record outbox delivery attempt", "outbox_id", id, "error", err)
		return attempt, fmt.Errorf("failed to record attempt for outbox message %d: %w", id, err)
	}
	return attempt, nil
}

func scanMessage(row pgx.Row) (*outbox.Message, error) {
	var m outbox.Message
	if err := row.Scan(
		&m.ID, &m.EventID, &m.BillID, &m.Version, &m.Kind,
		&m.Payload, &m.Status, &m.Attempts, &m.CreatedAt, &m.LastAttemptAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}
