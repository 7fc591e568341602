package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabsplit/internal/domain/reconciliation"
	"github.com/tabsplit/internal/domain/shared"
	"github.com/tabsplit/internal/domain/split"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func sampleState() *reconciliation.BillSplitState {
	now := time.Date(2026, 2, 14, 20, 30, 0, 0, time.UTC)
	state := reconciliation.NewState("bill-42", uuid.New(), "biz-7", "T12", now)
	state.Version = 5
	state.Participants = []split.Participant{{PersonID: "ana", DisplayName: "Ana"}, {PersonID: "ben", DisplayName: "Ben"}}
	state.Strategy = split.Equal("ana", "ben")
	state.Records["ana"] = reconciliation.PaymentRecord{
		PersonID:            "ana",
		DisplayName:         "Ana",
		Status:              shared.PaymentStatusCompleted,
		AmountDue:           2750,
		TipPortion:          400,
		AmountPaid:          3150,
		TipPaid:             400,
		SettlementReference: "stl-ana",
		Attempts:            1,
		LastUpdated:         now,
	}
	state.Records["ben"] = reconciliation.PaymentRecord{
		PersonID:    "ben",
		DisplayName: "Ben",
		Status:      shared.PaymentStatusPending,
		AmountDue:   2750,
		TipPortion:  400,
		LastUpdated: now,
	}
	return state
}

const (
	loadStateQuery = `SELECT state\s+FROM bill_split_states\s+WHERE bill_id = \$1`
	saveStateQuery = `INSERT INTO bill_split_states .* ON CONFLICT \(bill_id\) DO UPDATE .* WHERE bill_split_states.version < EXCLUDED.version`
)

func TestSplitStateRepository_Load(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SplitStateRepository{querier: mock, logger: newTestLogger()}
	state := sampleState()
	payload, err := json.Marshal(state)
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(loadStateQuery).WithArgs("bill-42").
			WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow(payload))

		loaded, err := repo.Load(ctx, "bill-42")
		require.NoError(t, err)
		assert.Equal(t, state.SplitID, loaded.SplitID)
		assert.Equal(t, int64(5), loaded.Version)
		assert.Equal(t, state.Records, loaded.Records)
		assert.Equal(t, state.Strategy, loaded.Strategy)
		assert.Equal(t, reconciliation.Progress{TotalPeople: 2, CompletedPayments: 1, TotalPaid: 3150, TotalRemaining: 3150}, loaded.Progress())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(loadStateQuery).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

		loaded, err := repo.Load(ctx, "missing")
		assert.Nil(t, loaded)
		var notFound reconciliation.ErrStateNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "missing", notFound.BillID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt document", func(t *testing.T) {
		mock.ExpectQuery(loadStateQuery).WithArgs("bill-42").
			WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow([]byte(`{"bill_id":`)))

		_, err := repo.Load(ctx, "bill-42")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode split state")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(loadStateQuery).WithArgs("bill-42").WillReturnError(dbErr)

		_, err := repo.Load(ctx, "bill-42")
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to load split state")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSplitStateRepository_Save(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SplitStateRepository{querier: mock, logger: newTestLogger()}
	state := sampleState()

	t.Run("written", func(t *testing.T) {
		mock.ExpectExec(saveStateQuery).
			WithArgs(state.BillID, state.SplitID, state.Version, state.Status, pgxmock.AnyArg(), state.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		written, err := repo.Save(ctx, state)
		assert.NoError(t, err)
		assert.True(t, written)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version skipped", func(t *testing.T) {
		mock.ExpectExec(saveStateQuery).
			WithArgs(state.BillID, state.SplitID, state.Version, state.Status, pgxmock.AnyArg(), state.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		written, err := repo.Save(ctx, state)
		assert.NoError(t, err)
		assert.False(t, written)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectExec(saveStateQuery).
			WithArgs(state.BillID, state.SplitID, state.Version, state.Status, pgxmock.AnyArg(), state.UpdatedAt).
			WillReturnError(dbErr)

		written, err := repo.Save(ctx, state)
		assert.False(t, written)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSplitStateRepository_WithTx(t *testing.T) {
	repo := &SplitStateRepository{querier: nil, logger: newTestLogger()}

	mockTx := pgx.Tx(nil)
	txRepo := repo.WithTx(mockTx)

	stateRepo, ok := txRepo.(*SplitStateRepository)
	require.True(t, ok)
	assert.Equal(t, mockTx, stateRepo.querier)
}
