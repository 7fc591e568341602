package store

import (
	"context"
	"time"

	"github.com/tabsplit/internal/domain/reconciliation"
)

// SweepReport summarizes one sweep
type SweepReport struct {
	TimedOut int
	Retried  int
	Evicted  int
}

// Sweep returns timed-out processing payments to pending, retries failed
// persistence and evicts closed sessions that have been quiet for the
// quiescence period. Every bill is handled under its own lock.
func (s *Store) Sweep(ctx context.Context) SweepReport {
	var report SweepReport

	s.bills.Range(func(key, value any) bool {
		if ctx.Err() != nil {
			return false
		}
		billID := key.(string)
		e := value.(*billEntry)

		report.Retried += s.retryFailed(ctx, e)
		report.TimedOut += s.expire(ctx, e, billID)
		if s.evict(e, billID) {
			report.Evicted++
		}
		return true
	})

	if report != (SweepReport{}) {
		s.logger.Info("Reconciler sweep finished",
			"timed_out", report.TimedOut,
			"retried", report.Retried,
			"evicted", report.Evicted,
		)
	}
	return report
}

func (s *Store) expire(ctx context.Context, e *billEntry, billID string) int {
	state, change, _, err := s.writeEntry(e, billID, nil, func(st *reconciliation.BillSplitState, now time.Time) (*reconciliation.Change, error) {
		return st.ExpireProcessing(now.Add(-s.cfg.ProcessingTimeout), now), nil
	})
	if err != nil || change == nil {
		return 0
	}

	s.metrics.PaymentTimeouts.Add(float64(len(change.TimedOut)))
	s.logger.Warn("Processing payments timed out",
		"bill_id", billID,
		"person_ids", change.TimedOut,
		"version", state.Version,
	)
	s.afterCommit(ctx, e, state, change, "")
	return len(change.TimedOut)
}

func (s *Store) retryFailed(ctx context.Context, e *billEntry) int {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	retried := 0
	for len(e.failed) > 0 {
		w := e.failed[0]
		if err := s.persister.Persist(ctx, w.state, w.change, w.correlationID); err != nil {
			s.metrics.PersistFailures.Inc()
			s.logger.Error("Retry of split state persistence failed",
				"bill_id", w.state.BillID,
				"version", w.state.Version,
				"pending_writes", len(e.failed),
				"error", err,
			)
			break
		}
		e.failed = e.failed[1:]
		retried++
	}
	return retried
}

func (s *Store) evict(e *billEntry, billID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.evicted || e.hasFailedWrites() {
		return false
	}

	state := e.snapshot.Load()
	quiet := s.now().Sub(e.lastActivity) >= s.cfg.QuiescencePeriod
	if state != nil && !(state.Closed() && quiet) {
		return false
	}

	e.evicted = true
	s.bills.Delete(billID)
	s.metrics.ActiveSessions.Dec()
	if state != nil {
		s.logger.Info("Evicted split session", "bill_id", billID, "status", state.Status, "version", state.Version)
	}
	return true
}
