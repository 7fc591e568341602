package service

import (
	"context"
	"log/slog"

	"github.com/tabsplit/internal/domain/reconciliation"
	"github.com/tabsplit/internal/domain/shared"
)

// PaymentServiceImpl implements the PaymentService interface
type PaymentServiceImpl struct {
	applier PaymentApplier
	logger  *slog.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(logger *slog.Logger, applier PaymentApplier) PaymentService {
	return &PaymentServiceImpl{
		applier: applier,
		logger:  logger,
	}
}

// Submit applies the event synchronously so rejections reach the caller
func (s *PaymentServiceImpl) Submit(ctx context.Context, event *shared.PaymentEvent) (*reconciliation.BillSplitState, bool, error) {
	state, change, err := s.applier.Apply(ctx, event)
	if err != nil {
		return nil, false, err
	}
	return state, change == nil, nil
}
