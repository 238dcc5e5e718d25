// EvictionHeap combines a container/heap with a map for O(1) key lookup
// alongside O(log n) priority operations, ordering eviction candidates
// by frequency counter ascending, so the least-frequently-used entries
// pop first.
package util

import "container/heap"

// EvictionCandidate is one entry in an EvictionHeap: a sampled key plus
// the frequency-counter value it had when sampled.
type EvictionCandidate struct {
	KeyHash  uint64
	Priority uint8 // sampled ProbabilisticCounter value; lower pops first
	index    int
}

// EvictionHeap is a min-heap of EvictionCandidates ordered by Priority,
// with O(1) lookup by KeyHash so a caller can re-prioritize or drop a
// candidate without a linear scan.
type EvictionHeap struct {
	items   []*EvictionCandidate
	byHash  map[uint64]*EvictionCandidate
}

// NewEvictionHeap creates an empty heap.
func NewEvictionHeap() *EvictionHeap {
	return &EvictionHeap{
		items:  make([]*EvictionCandidate, 0),
		byHash: make(map[uint64]*EvictionCandidate),
	}
}

func (h *EvictionHeap) Len() int { return len(h.items) }

func (h *EvictionHeap) Less(i, j int) bool { return h.items[i].Priority < h.items[j].Priority }

func (h *EvictionHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *EvictionHeap) Push(x interface{}) {
	c := x.(*EvictionCandidate)
	c.index = len(h.items)
	h.items = append(h.items, c)
	h.byHash[c.KeyHash] = c
}

func (h *EvictionHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	c.index = -1
	h.items = old[:n-1]
	delete(h.byHash, c.KeyHash)
	return c
}

// Offer adds a sampled candidate, or updates its priority if already
// present.
func (h *EvictionHeap) Offer(keyHash uint64, priority uint8) {
	if c, exists := h.byHash[keyHash]; exists {
		c.Priority = priority
		heap.Fix(h, c.index)
		return
	}
	heap.Push(h, &EvictionCandidate{KeyHash: keyHash, Priority: priority})
}

// Remove drops a candidate by key hash, e.g. once it has actually been
// evicted or was found to no longer exist.
func (h *EvictionHeap) Remove(keyHash uint64) bool {
	c, exists := h.byHash[keyHash]
	if !exists {
		return false
	}
	heap.Remove(h, c.index)
	return true
}

// PopLeastUsed removes and returns the candidate with the lowest
// frequency counter, the natural next eviction target.
func (h *EvictionHeap) PopLeastUsed() (EvictionCandidate, bool) {
	if h.Len() == 0 {
		return EvictionCandidate{}, false
	}
	c := heap.Pop(h).(*EvictionCandidate)
	return *c, true
}

// Contains reports whether a key hash is currently tracked.
func (h *EvictionHeap) Contains(keyHash uint64) bool {
	_, exists := h.byHash[keyHash]
	return exists
}
