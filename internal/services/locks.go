package services

import "sync"

// MarketLocks serializes all state-changing operations per market id.
// Operations on different markets proceed concurrently; within one market
// every deposit, exit, resolution, cancellation and claim runs to completion
// before the next begins. Entries are never removed — markets are never
// deleted and the per-market footprint is one mutex.
type MarketLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

// NewMarketLocks creates an empty lock table.
func NewMarketLocks() *MarketLocks {
	return &MarketLocks{locks: make(map[uint]*sync.Mutex)}
}

// Lock acquires the mutex for marketID, creating it on first use.
func (ml *MarketLocks) Lock(marketID uint) {
	ml.mu.Lock()
	lock, ok := ml.locks[marketID]
	if !ok {
		lock = &sync.Mutex{}
		ml.locks[marketID] = lock
	}
	ml.mu.Unlock()

	lock.Lock()
}

// Unlock releases the mutex for marketID.
func (ml *MarketLocks) Unlock(marketID uint) {
	ml.mu.Lock()
	lock := ml.locks[marketID]
	ml.mu.Unlock()

	if lock != nil {
		lock.Unlock()
	}
}
