// Package processor turns inbound payment lifecycle events into reconciliation
// store updates.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tabsplit/internal/domain/reconciliation"
	"github.com/tabsplit/internal/domain/shared"
	"github.com/tabsplit/internal/domain/split"
)

type Processor struct {
	applier EventApplier
	logger  *slog.Logger
}

func NewProcessor(applier EventApplier, logger *slog.Logger) *Processor {
	return &Processor{
		applier: applier,
		logger:  logger,
	}
}

// Apply applies the event and returns the resulting snapshot. A duplicate
// event returns the current snapshot with a nil change.
func (p *Processor) Apply(ctx context.Context, event *shared.PaymentEvent) (*reconciliation.BillSplitState, *reconciliation.Change, error) {
	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Processing payment event",
		"event_id", event.EventID.String(),
		"event_type", event.Type,
		"bill_id", event.BillID,
		"person_id", event.PersonID,
	)

	state, change, err := p.applier.ApplyEvent(ctx, event)
	if err != nil {
		return state, nil, err
	}

	if change == nil {
		return state, nil, nil
	}

	progress := state.Progress()
	logger.Info("Payment event applied",
		"bill_id", event.BillID,
		"person_id", event.PersonID,
		"from", change.From,
		"to", change.To,
		"version", state.Version,
		"completed_payments", progress.CompletedPayments,
		"total_people", progress.TotalPeople,
	)
	return state, change, nil
}

// ProcessEvent implements ProcessingService
func (p *Processor) ProcessEvent(ctx context.Context, event *shared.PaymentEvent) error {
	_, _, err := p.Apply(ctx, event)
	if err == nil {
		return nil
	}

	if IsRejection(err) {
		// Already logged by the store; redelivery would be rejected again
		return nil
	}

	p.logger.Error("Failed to apply payment event",
		"event_id", event.EventID.String(),
		"bill_id", event.BillID,
		"error", err,
	)
	return fmt.Errorf("applying payment event %s failed: %w", event.EventID.String(), err)
}

// IsRejection reports whether err is a business rejection of the event rather
// than an infrastructure failure.
func IsRejection(err error) bool {
	switch {
	case errors.Is(err, reconciliation.ErrInvalidTransition{}),
		errors.Is(err, reconciliation.ErrStateNotFound{}),
		errors.Is(err, reconciliation.ErrSessionClosed{}),
		errors.Is(err, reconciliation.ErrSplitLocked{}),
		errors.Is(err, split.ErrAmountMismatch{}),
		errors.Is(err, split.ErrUnknownParticipant{}),
		errors.Is(err, shared.ErrInvalidEventType),
		errors.Is(err, shared.ErrMissingBillID),
		errors.Is(err, shared.ErrMissingPersonID),
		errors.Is(err, shared.ErrNegativeAmount):
		return true
	}
	return false
}
