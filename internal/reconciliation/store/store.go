// Package store is the reconciliation store: the single owner of every bill
// split session held in memory. Writes to one bill are serialized by that
// bill's lock and publish a new immutable snapshot; reads never lock. Bills
// are independent of each other.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tabsplit/internal/domain/bill"
	"github.com/tabsplit/internal/domain/reconciliation"
	"github.com/tabsplit/internal/domain/shared"
	"github.com/tabsplit/internal/domain/split"
	"github.com/tabsplit/internal/metrics"
	"github.com/tabsplit/internal/split_engine"
)

// Config controls session lifetimes
type Config struct {
	ProcessingTimeout time.Duration
	QuiescencePeriod  time.Duration
}

type Store struct {
	bills     sync.Map // bill id -> *billEntry
	loader    StateLoader
	persister Persister
	notifier  Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time
}

// Option customizes a Store
type Option func(*Store)

// WithClock replaces the wall clock, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(loader StateLoader, persister Persister, notifier Notifier, m *metrics.Metrics, cfg Config, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		loader:    loader,
		persister: persister,
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mutation changes a private clone of the current state. A nil change with a
// nil error means nothing changed.
type mutation func(state *reconciliation.BillSplitState, now time.Time) (*reconciliation.Change, error)

// lookup returns the bill's entry, loading persisted state on a miss. With
// create set, a missing bill gets an empty entry.
func (s *Store) lookup(ctx context.Context, billID string, create bool) (*billEntry, error) {
	if v, ok := s.bills.Load(billID); ok {
		return v.(*billEntry), nil
	}

	state, err := s.loader.Load(ctx, billID)
	if err != nil {
		if !errors.Is(err, reconciliation.ErrStateNotFound{}) {
			return nil, fmt.Errorf("failed to load split state for bill %s: %w", billID, err)
		}
		if !create {
			return nil, reconciliation.ErrStateNotFound{BillID: billID}
		}
		state = nil
	}

	v, loaded := s.bills.LoadOrStore(billID, newEntry(state, s.now()))
	if !loaded {
		s.metrics.ActiveSessions.Inc()
	}
	return v.(*billEntry), nil
}

// write runs fn under the bill lock, then persists and notifies outside it.
// Evicted entries are looked up again.
func (s *Store) write(ctx context.Context, billID string, init func(now time.Time) *reconciliation.BillSplitState, correlationID string, fn mutation) (*reconciliation.BillSplitState, *reconciliation.Change, error) {
	for {
		e, err := s.lookup(ctx, billID, init != nil)
		if err != nil {
			return nil, nil, err
		}

		state, change, retry, err := s.writeEntry(e, billID, init, fn)
		if retry {
			continue
		}
		if err != nil || change == nil {
			return state, nil, err
		}

		s.afterCommit(ctx, e, state, change, correlationID)
		return state, change, nil
	}
}

func (s *Store) writeEntry(e *billEntry, billID string, init func(now time.Time) *reconciliation.BillSplitState, fn mutation) (*reconciliation.BillSplitState, *reconciliation.Change, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.evicted {
		return nil, nil, true, nil
	}

	now := s.now()
	current := e.snapshot.Load()
	var next *reconciliation.BillSplitState
	switch {
	case current != nil:
		next = current.Clone()
	case init != nil:
		next = init(now)
	default:
		return nil, nil, false, reconciliation.ErrStateNotFound{BillID: billID}
	}

	change, err := fn(next, now)
	if err != nil || change == nil {
		return current, nil, false, err
	}

	e.snapshot.Store(next)
	e.lastActivity = now
	return next, change, false, nil
}

func (s *Store) afterCommit(ctx context.Context, e *billEntry, state *reconciliation.BillSplitState, change *reconciliation.Change, correlationID string) {
	if change.Reconciled {
		s.metrics.BillsReconciled.Inc()
		s.logger.Info("Bill fully reconciled", "bill_id", state.BillID, "version", state.Version)
	}

	if err := s.persister.Persist(ctx, state, change, correlationID); err != nil {
		s.metrics.PersistFailures.Inc()
		s.logger.Error("Failed to persist split state, will retry",
			"bill_id", state.BillID,
			"version", state.Version,
			"error", err,
		)
		e.persistMu.Lock()
		e.failed = append(e.failed, pendingWrite{state: state, change: change, correlationID: correlationID})
		e.persistMu.Unlock()
	}

	s.notifier.Notify(state, change)
}

// CommitSplit validates result against the bill and installs it as the
// session's split, creating the session on first use.
func (s *Store) CommitSplit(ctx context.Context, b *bill.Bill, participants []split.Participant, strategy split.Strategy, result *split.Result, correlationID string) (*reconciliation.BillSplitState, error) {
	if _, err := split_engine.Check(b, participants, strategy, result); err != nil {
		s.metrics.SplitsCommitted.WithLabelValues(string(strategy.Type), "invalid").Inc()
		return nil, err
	}

	init := func(now time.Time) *reconciliation.BillSplitState {
		return reconciliation.NewState(b.ID, uuid.New(), b.BusinessID, b.TableCode, now)
	}
	state, _, err := s.write(ctx, b.ID, init, correlationID, func(st *reconciliation.BillSplitState, now time.Time) (*reconciliation.Change, error) {
		return st.CommitSplit(participants, strategy, result, now)
	})
	if err != nil {
		s.metrics.SplitsCommitted.WithLabelValues(string(strategy.Type), "rejected").Inc()
		s.logger.Warn("Split commit rejected", "bill_id", b.ID, "correlation_id", correlationID, "error", err)
		return nil, err
	}

	s.metrics.SplitsCommitted.WithLabelValues(string(strategy.Type), "committed").Inc()
	return state, nil
}

// ApplyEvent applies one payment lifecycle event. Duplicates succeed with a
// nil change and the current snapshot.
func (s *Store) ApplyEvent(ctx context.Context, ev *shared.PaymentEvent) (*reconciliation.BillSplitState, *reconciliation.Change, error) {
	if err := ev.Validate(); err != nil {
		s.metrics.PaymentEvents.WithLabelValues(string(ev.Type), "invalid").Inc()
		return nil, nil, err
	}

	state, change, err := s.write(ctx, ev.BillID, nil, ev.CorrelationID, func(st *reconciliation.BillSplitState, now time.Time) (*reconciliation.Change, error) {
		return st.ApplyPayment(ev, now)
	})
	switch {
	case err != nil:
		s.metrics.PaymentEvents.WithLabelValues(string(ev.Type), "rejected").Inc()
		status := shared.PaymentStatus("")
		if state != nil {
			status = state.Records[ev.PersonID].Status
		}
		s.logger.Warn("Payment event rejected",
			"bill_id", ev.BillID,
			"person_id", ev.PersonID,
			"event_type", ev.Type,
			"current_status", status,
			"correlation_id", ev.CorrelationID,
			"error", err,
		)
	case change == nil:
		s.metrics.PaymentEvents.WithLabelValues(string(ev.Type), "duplicate").Inc()
		s.logger.Info("Duplicate payment event ignored", "bill_id", ev.BillID, "person_id", ev.PersonID, "event_type", ev.Type)
	default:
		s.metrics.PaymentEvents.WithLabelValues(string(ev.Type), "applied").Inc()
	}
	return state, change, err
}

// Cancel closes the session after an upstream cancellation
func (s *Store) Cancel(ctx context.Context, billID, correlationID string) (*reconciliation.BillSplitState, error) {
	state, _, err := s.write(ctx, billID, nil, correlationID, func(st *reconciliation.BillSplitState, now time.Time) (*reconciliation.Change, error) {
		return st.Cancel(now), nil
	})
	return state, err
}

// Snapshot returns the last committed state of the bill. The returned value is
// shared and must not be modified.
func (s *Store) Snapshot(ctx context.Context, billID string) (*reconciliation.BillSplitState, error) {
	e, err := s.lookup(ctx, billID, false)
	if err != nil {
		return nil, err
	}
	state := e.snapshot.Load()
	if state == nil {
		return nil, reconciliation.ErrStateNotFound{BillID: billID}
	}
	return state, nil
}

// Progress derives the bill's payment progress from its snapshot
func (s *Store) Progress(ctx context.Context, billID string) (reconciliation.Progress, error) {
	state, err := s.Snapshot(ctx, billID)
	if err != nil {
		return reconciliation.Progress{}, err
	}
	return state.Progress(), nil
}

// Len returns the number of sessions held in memory
func (s *Store) Len() int {
	n := 0
	s.bills.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
