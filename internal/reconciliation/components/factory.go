// Package components assembles the reconciliation pipeline from its parts.
package components

import (
	"log/slog"

	"github.com/tabsplit/internal/config"
	"github.com/tabsplit/internal/domain/outbox"
	"github.com/tabsplit/internal/domain/reconciliation"
	"github.com/tabsplit/internal/metrics"
	"github.com/tabsplit/internal/reconciliation/processor"
	"github.com/tabsplit/internal/reconciliation/store"
)

// CreateStore creates the reconciliation store backed by Postgres. Sessions
// missing from memory are loaded from stateRepo.
func CreateStore(
	db TxRunner,
	stateRepo reconciliation.Repository,
	outboxRepo outbox.Repository,
	notifier store.Notifier,
	m *metrics.Metrics,
	cfg *config.Config,
	logger *slog.Logger,
) *store.Store {
	persister := NewStatePersister(db, stateRepo, outboxRepo, logger.With("component", "state_persister"))

	return store.New(
		stateRepo,
		persister,
		notifier,
		m,
		store.Config{
			ProcessingTimeout: cfg.Reconciler.ProcessingTimeout,
			QuiescencePeriod:  cfg.Reconciler.QuiescencePeriod,
		},
		logger.With("component", "reconciliation_store"),
	)
}

// CreateProcessingService creates the payment event processor, running on a
// worker pool when one can be created.
func CreateProcessingService(
	applier processor.EventApplier,
	logger *slog.Logger,
	cfg *config.Config,
) processor.ProcessingService {
	baseService := processor.NewProcessor(applier, logger.With("component", "payment_processor"))

	workerPoolService, err := processor.NewWorkerPoolProcessingService(
		baseService,
		processor.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
