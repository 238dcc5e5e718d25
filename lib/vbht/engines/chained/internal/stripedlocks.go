package internal

import "sync"

// StripedLocks is a fixed-size array of mutexes; each hash bucket maps
// to exactly one of them via bucket mod len(locks).
type StripedLocks struct {
	locks []sync.Mutex
}

// NewStripedLocks creates a StripedLocks with the given number of
// stripes. n must be >= 1.
func NewStripedLocks(n int) *StripedLocks {
	if n < 1 {
		n = 1
	}
	return &StripedLocks{locks: make([]sync.Mutex, n)}
}

// Len returns the number of stripes.
func (s *StripedLocks) Len() int { return len(s.locks) }

// LockIndexFor returns the stripe index guarding bucket b.
func (s *StripedLocks) LockIndexFor(bucket int) int {
	return bucket % len(s.locks)
}

// Lock acquires the stripe guarding bucket b and returns the lock's own
// index, so callers can release precisely that stripe later.
func (s *StripedLocks) Lock(bucket int) (lockIdx int) {
	lockIdx = s.LockIndexFor(bucket)
	s.locks[lockIdx].Lock()
	return lockIdx
}

// Unlock releases the stripe at lockIdx.
func (s *StripedLocks) Unlock(lockIdx int) {
	s.locks[lockIdx].Unlock()
}

// LockAll acquires every stripe in fixed order 0..L-1, used by the
// table's Clear and Resize. This is the only nested multi-lock scenario
// in the table, and it is deadlock-free because it is the only caller
// that ever holds more than one stripe at a time.
func (s *StripedLocks) LockAll() {
	for i := range s.locks {
		s.locks[i].Lock()
	}
}

// UnlockAll releases every stripe in reverse order.
func (s *StripedLocks) UnlockAll() {
	for i := len(s.locks) - 1; i >= 0; i-- {
		s.locks[i].Unlock()
	}
}

// LockByIndex acquires one stripe directly by its own index, used by
// visitors that iterate outer-by-lock rather than by bucket.
func (s *StripedLocks) LockByIndex(lockIdx int) {
	s.locks[lockIdx].Lock()
}

// UnlockByIndex releases one stripe directly by its own index.
func (s *StripedLocks) UnlockByIndex(lockIdx int) {
	s.locks[lockIdx].Unlock()
}
