package util

import "testing"

func TestEvictionHeapPopsLeastUsedFirst(t *testing.T) {
	h := NewEvictionHeap()
	h.Offer(1, 200)
	h.Offer(2, 5)
	h.Offer(3, 100)

	c, ok := h.PopLeastUsed()
	if !ok || c.KeyHash != 2 || c.Priority != 5 {
		t.Fatalf("expected key 2 with priority 5 first, got %+v ok=%v", c, ok)
	}

	c, ok = h.PopLeastUsed()
	if !ok || c.KeyHash != 3 {
		t.Fatalf("expected key 3 next, got %+v", c)
	}
}

func TestEvictionHeapOfferUpdatesPriority(t *testing.T) {
	h := NewEvictionHeap()
	h.Offer(1, 200)
	h.Offer(1, 1)

	if h.Len() != 1 {
		t.Fatalf("expected a single tracked candidate, got %d", h.Len())
	}

	c, ok := h.PopLeastUsed()
	if !ok || c.Priority != 1 {
		t.Fatalf("expected updated priority 1, got %+v", c)
	}
}

func TestEvictionHeapRemove(t *testing.T) {
	h := NewEvictionHeap()
	h.Offer(1, 10)
	h.Offer(2, 20)

	if !h.Remove(1) {
		t.Fatalf("expected remove to succeed")
	}
	if h.Contains(1) {
		t.Fatalf("expected key 1 to be gone")
	}
	if !h.Contains(2) {
		t.Fatalf("expected key 2 to remain")
	}
}
