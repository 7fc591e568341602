package processor

import (
	"context"

	"github.com/tabsplit/internal/domain/reconciliation"
	"github.com/tabsplit/internal/domain/shared"
)

// ProcessingService consumes payment lifecycle events from the message bus.
// Business rejections are acknowledged; only infrastructure failures return an error.
type ProcessingService interface {
	ProcessEvent(ctx context.Context, event *shared.PaymentEvent) error
}

// EventApplier applies one payment event to the owning bill's state
type EventApplier interface {
	ApplyEvent(ctx context.Context, event *shared.PaymentEvent) (*reconciliation.BillSplitState, *reconciliation.Change, error)
}
