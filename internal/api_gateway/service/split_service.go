package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tabsplit/internal/domain/bill"
	"github.com/tabsplit/internal/domain/journal"
	"github.com/tabsplit/internal/domain/reconciliation"
	"github.com/tabsplit/internal/domain/split"
	"github.com/tabsplit/internal/split_engine"
)

// SplitServiceImpl implements the SplitService interface
type SplitServiceImpl struct {
	billRepo    bill.Repository
	journalRepo journal.Repository
	store       SessionStore
	logger      *slog.Logger
}

// NewSplitService creates a new split service
func NewSplitService(logger *slog.Logger, billRepo bill.Repository, journalRepo journal.Repository, store SessionStore) SplitService {
	return &SplitServiceImpl{
		billRepo:    billRepo,
		journalRepo: journalRepo,
		store:       store,
		logger:      logger,
	}
}

func (s *SplitServiceImpl) loadBill(ctx context.Context, billID string) (*bill.Bill, error) {
	b, err := s.billRepo.GetByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Calculate derives a split of the bill, with the tip allocated when given
func (s *SplitServiceImpl) Calculate(ctx context.Context, billID string, participants []split.Participant, strategy split.Strategy, tip *split_engine.Tip) (*split.Result, error) {
	b, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}

	result, err := split_engine.Compute(b, participants, strategy)
	if err != nil {
		s.logger.Info("Split calculation rejected",
			"bill_id", billID,
			"strategy", strategy.Type,
			"error", err,
		)
		return nil, err
	}

	if tip == nil {
		return result, nil
	}
	return split_engine.ApplyTip(result, *tip)
}

// AllocateTip spreads tip over result without touching the input
func (s *SplitServiceImpl) AllocateTip(_ context.Context, result *split.Result, tip split_engine.Tip) (*split.Result, error) {
	return split_engine.ApplyTip(result, tip)
}

// Validate diagnoses a proposed split against a fresh computation
func (s *SplitServiceImpl) Validate(ctx context.Context, billID string, participants []split.Participant, strategy split.Strategy, proposed *split.Result) (split.ValidationResult, error) {
	b, err := s.loadBill(ctx, billID)
	if err != nil {
		return split.ValidationResult{}, err
	}
	return split_engine.Validate(b, participants, strategy, proposed), nil
}

// Execute validates and commits the split to the reconciliation store
func (s *SplitServiceImpl) Execute(ctx context.Context, billID string, participants []split.Participant, strategy split.Strategy, result *split.Result, correlationID string) (*reconciliation.BillSplitState, error) {
	if result != nil && result.BillID != "" && result.BillID != billID {
		return nil, split.ErrInvalidSplit{Reason: fmt.Sprintf("split result belongs to bill %s", result.BillID)}
	}

	b, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}

	state, err := s.store.CommitSplit(ctx, b, participants, strategy, result, correlationID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Split executed",
		"bill_id", billID,
		"split_id", state.SplitID.String(),
		"strategy", strategy.Type,
		"participants", len(participants),
		"version", state.Version,
		"correlation_id", correlationID,
	)
	return state, nil
}

func (s *SplitServiceImpl) GetSplit(ctx context.Context, billID string) (*reconciliation.BillSplitState, error) {
	return s.store.Snapshot(ctx, billID)
}

func (s *SplitServiceImpl) GetProgress(ctx context.Context, billID string) (*reconciliation.BillSplitState, reconciliation.Progress, error) {
	state, err := s.store.Snapshot(ctx, billID)
	if err != nil {
		return nil, reconciliation.Progress{}, err
	}
	return state, state.Progress(), nil
}

// Cancel closes the bill's session
func (s *SplitServiceImpl) Cancel(ctx context.Context, billID, correlationID string) (*reconciliation.BillSplitState, error) {
	state, err := s.store.Cancel(ctx, billID, correlationID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Split session cancelled", "bill_id", billID, "version", state.Version, "correlation_id", correlationID)
	return state, nil
}

// GetHistory pages the bill's journal, oldest change first
func (s *SplitServiceImpl) GetHistory(ctx context.Context, billID string, page, perPage int) ([]*journal.Entry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.journalRepo.GetByBillID(ctx, billID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.journalRepo.CountByBillID(ctx, billID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
