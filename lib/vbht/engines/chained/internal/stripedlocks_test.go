package internal

import (
	"sync"
	"testing"
)

func TestStripedLocksMapsBucketToStripe(t *testing.T) {
	sl := NewStripedLocks(4)
	if sl.Len() != 4 {
		t.Fatalf("expected 4 stripes, got %d", sl.Len())
	}
	if idx := sl.LockIndexFor(10); idx != 2 {
		t.Fatalf("expected bucket 10 to map to stripe 2, got %d", idx)
	}
}

func TestStripedLocksLockUnlock(t *testing.T) {
	sl := NewStripedLocks(2)
	idx := sl.Lock(5)
	sl.Unlock(idx)
}

func TestStripedLocksLockAllIsExclusive(t *testing.T) {
	sl := NewStripedLocks(4)

	var wg sync.WaitGroup
	gotLock := make(chan struct{})

	sl.LockAll()

	wg.Add(1)
	go func() {
		defer wg.Done()
		idx := sl.Lock(1) // should block until UnlockAll
		close(gotLock)
		sl.Unlock(idx)
	}()

	select {
	case <-gotLock:
		t.Fatalf("expected concurrent Lock to block while all stripes held")
	default:
	}

	sl.UnlockAll()
	wg.Wait()
}
