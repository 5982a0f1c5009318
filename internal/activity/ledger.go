// Package activity tracks recent swap timestamps per pool over a sliding window.
package activity

import (
	"sync"
)

// Ledger counts swaps per pool inside a trailing time window.
//
// Entries are filtered by timestamp value, never by position, so swaps may
// arrive out of order. Each pool has its own lock; Sweep takes the map lock
// exclusively so no pool is dropped while a Record is in flight.
type Ledger struct {
	mu    sync.RWMutex
	pools map[string]*poolWindow
}

type poolWindow struct {
	mu         sync.Mutex
	timestamps []int64 // Unix ms, unordered
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{pools: make(map[string]*poolWindow)}
}

// Record appends timestampMs to the pool's history, drops entries older than
// timestampMs - windowSec, and returns how many remain (including this one).
func (l *Ledger) Record(poolID string, timestampMs, windowSec int64) int {
	for {
		l.mu.RLock()
		if w, ok := l.pools[poolID]; ok {
			w.mu.Lock()
			w.timestamps = append(w.timestamps, timestampMs)
			n := w.purge(timestampMs - windowSec*1000)
			w.mu.Unlock()
			l.mu.RUnlock()
			return n
		}
		l.mu.RUnlock()

		l.mu.Lock()
		if _, ok := l.pools[poolID]; !ok {
			l.pools[poolID] = &poolWindow{}
		}
		l.mu.Unlock()
	}
}

// Count returns the number of swaps on poolID within windowSec of nowMs.
// Expired entries are dropped as a side effect.
func (l *Ledger) Count(poolID string, nowMs, windowSec int64) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	w, ok := l.pools[poolID]
	if !ok {
		return 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.purge(nowMs - windowSec*1000)
}

// Sweep purges every pool against nowMs and forgets pools left empty.
// It returns the number of pools still tracked.
func (l *Ledger) Sweep(nowMs, windowSec int64) int {
	cutoff := nowMs - windowSec*1000

	l.mu.Lock()
	defer l.mu.Unlock()
	for id, w := range l.pools {
		w.mu.Lock()
		n := w.purge(cutoff)
		w.mu.Unlock()
		if n == 0 {
			delete(l.pools, id)
		}
	}
	return len(l.pools)
}

// Pools returns the number of pools currently tracked.
func (l *Ledger) Pools() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pools)
}

// purge keeps timestamps >= cutoff in place. Caller holds w.mu.
func (w *poolWindow) purge(cutoff int64) int {
	kept := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if ts >= cutoff {
			kept = append(kept, ts)
		}
	}
	w.timestamps = kept
	return len(kept)
}
