package store

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tabsplit/internal/domain/reconciliation"
)

// pendingWrite is a committed change whose persistence failed
type pendingWrite struct {
	state         *reconciliation.BillSplitState
	change        *reconciliation.Change
	correlationID string
}

// billEntry owns one bill. mu is the bill's write lock; readers only load the
// snapshot pointer.
type billEntry struct {
	mu           sync.Mutex
	snapshot     atomic.Pointer[reconciliation.BillSplitState]
	lastActivity time.Time // guarded by mu
	evicted      bool      // guarded by mu

	persistMu sync.Mutex
	failed    []pendingWrite // guarded by persistMu
}

func newEntry(state *reconciliation.BillSplitState, now time.Time) *billEntry {
	e := &billEntry{lastActivity: now}
	if state != nil {
		e.snapshot.Store(state)
	}
	return e
}

func (e *billEntry) hasFailedWrites() bool {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()
	return len(e.failed) > 0
}
