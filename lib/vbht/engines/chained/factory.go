package chained

import (
	"sync/atomic"

	"github.com/kvengine/vbht/lib/vbht"
)

// StoredValueFactory builds and copies StoredValues on behalf of a
// HashTable. Factoring construction out of HashTable lets a table
// choose an ordering discipline for its chains independently of the
// find/insert/delete algorithms. Both methods return the entry they
// just created (created) separately from the chain's new head (head):
// for an ordering-preserving factory the new entry need not become the
// head, so callers must not assume created == head.
type StoredValueFactory interface {
	// New builds a StoredValue for item and splices it into the chain
	// currently headed by next.
	New(item vbht.Item, keyHash uint64, next *StoredValue) (created, head *StoredValue)

	// Copy duplicates src's fields into a new StoredValue and splices
	// it into the chain headed by next. Used by unlockedReplaceByCopy,
	// which must not mutate a StoredValue a concurrent reader might be
	// holding a pointer to.
	Copy(src *StoredValue, next *StoredValue) (created, head *StoredValue)
}

// unorderedFactory links new entries at the chain head with no
// additional bookkeeping: O(1) insert, no ordering guarantee across
// concurrent inserts into the same bucket. This is the default factory.
type unorderedFactory struct{}

// NewUnorderedFactory returns the default StoredValueFactory.
func NewUnorderedFactory() StoredValueFactory { return unorderedFactory{} }

func (unorderedFactory) New(item vbht.Item, keyHash uint64, next *StoredValue) (created, head *StoredValue) {
	sv := newStoredValueFromItem(item, keyHash, next)
	return sv, sv
}

func (unorderedFactory) Copy(src *StoredValue, next *StoredValue) (created, head *StoredValue) {
	cp := copyStoredValue(src, next)
	return cp, cp
}

// orderedFactory stamps every StoredValue it builds with a strictly
// increasing sequence number and keeps chains sorted head-to-tail by
// that number, oldest first. It trades O(1) insert for O(chain depth)
// insert in exchange for a stable, reproducible visitation order within
// a bucket, useful for tests and for visitors that need deterministic
// ordering across runs. nextSeq is an atomic counter since concurrent
// inserts into different buckets (and thus under different stripe
// locks) can race on it.
type orderedFactory struct {
	nextSeq atomic.Uint64
}

// NewOrderedFactory returns a StoredValueFactory that preserves
// insertion order within each chain.
func NewOrderedFactory() StoredValueFactory { return &orderedFactory{} }

func (f *orderedFactory) New(item vbht.Item, keyHash uint64, next *StoredValue) (created, head *StoredValue) {
	sv := newStoredValueFromItem(item, keyHash, nil)
	sv.insertSeq = f.nextSeq.Add(1) - 1
	return sv, insertOrdered(sv, next)
}

func (f *orderedFactory) Copy(src *StoredValue, next *StoredValue) (created, head *StoredValue) {
	cp := copyStoredValue(src, nil)
	return cp, insertOrdered(cp, next)
}

// insertOrdered splices sv into the chain headed by head so that
// insertSeq order is preserved, returning the new chain head.
func insertOrdered(sv *StoredValue, head *StoredValue) *StoredValue {
	if head == nil || head.insertSeq >= sv.insertSeq {
		sv.next = head
		return sv
	}
	prev := head
	for prev.next != nil && prev.next.insertSeq < sv.insertSeq {
		prev = prev.next
	}
	sv.next = prev.next
	prev.next = sv
	return head
}
