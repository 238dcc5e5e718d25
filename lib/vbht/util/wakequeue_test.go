package util

import (
	"sync"
	"testing"
	"time"
)

func TestWakeQueueSingleProducer(t *testing.T) {
	q := NewWakeQueue()
	defer q.Close()

	for i := uint64(0); i < 10; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d failed", i)
		}
	}

	seen := make(map[uint64]bool)
	for i := 0; i < 10; i++ {
		select {
		case v := <-q.Recv():
			seen[v] = true
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for item %d", i)
		}
	}

	if len(seen) != 10 {
		t.Fatalf("expected 10 distinct values, got %d", len(seen))
	}
}

func TestWakeQueueConcurrentProducers(t *testing.T) {
	q := NewWakeQueue()
	defer q.Close()

	const producers = 8
	const perProducer = 500
	total := producers * perProducer

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base uint64) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(base + uint64(i))
			}
		}(uint64(p * perProducer))
	}

	received := make(chan struct{})
	count := 0
	go func() {
		for range q.Recv() {
			count++
			if count == total {
				close(received)
				return
			}
		}
	}()

	wg.Wait()

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatalf("only received %d/%d items", count, total)
	}
}

func TestWakeQueueClosedRejectsPush(t *testing.T) {
	q := NewWakeQueue()
	q.Close()
	if q.Push(1) {
		t.Fatalf("expected push to fail on closed queue")
	}
	if !q.IsClosed() {
		t.Fatalf("expected IsClosed to be true")
	}
}
