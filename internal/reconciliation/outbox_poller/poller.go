// Package outbox_poller drains the transactional outbox into the journal and
// the integration topic.
package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tabsplit/internal/config"
	"github.com/tabsplit/internal/domain/outbox"
	"github.com/tabsplit/internal/metrics"
)

// Poller processes pending outbox messages
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        Publisher
	metrics          *metrics.Metrics
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		metrics:          m,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start polls until ctx is cancelled. A full batch is followed immediately
// by the next one so a backlog drains without waiting for the ticker.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Outbox poller started",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopped")
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

func (p *Poller) drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := p.processPendingMessages(ctx)
		if err != nil {
			p.logger.Error("Outbox batch failed", "error", err)
			return
		}
		if n < p.batchSize {
			return
		}
	}
}

// processPendingMessages returns how many messages were delivered
func (p *Poller) processPendingMessages(ctx context.Context) (int, error) {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	p.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	delivered := 0
	for _, msg := range messages {
		logger := p.logger
		if entry, err := msg.Entry(); err == nil && entry.CorrelationID != "" {
			logger = p.logger.With("correlation_id", entry.CorrelationID)
		}

		err := p.publisher.Publish(ctx, msg)
		if err == nil {
			p.metrics.OutboxPublished.WithLabelValues("published").Inc()
			logger.Debug("Outbox message published", msg.LogAttrs()...)
			delivered++
			continue
		}

		p.metrics.OutboxPublished.WithLabelValues("retry").Inc()
		logger.Error("Failed to publish outbox message", append(msg.LogAttrs(), "error", err)...)

		attempt, errRecord := p.outboxRepo.RecordFailedAttempt(ctx, msg.ID, p.maxRetryAttempts)
		if errRecord != nil {
			logger.Error("Failed to record outbox delivery attempt", "outbox_id", msg.ID, "error", errRecord)
			continue
		}
		if attempt.GaveUp() {
			p.metrics.OutboxPublished.WithLabelValues("failed").Inc()
			logger.Warn("Outbox message parked as FAILED_TO_PUBLISH",
				"outbox_id", msg.ID, "bill_id", msg.BillID, "attempts_made", attempt.Attempts,
			)
		}
	}
	return delivered, nil
}
