package chained

import (
	"math/rand"

	"github.com/kvengine/vbht/lib/vbht"
)

// SetItem is the single-call convenience form of Set: it locks the
// item's bucket, applies the mutation, and unlocks before returning.
// Callers that need to inspect or chain further operations against the
// same held lock should use LockBucket + Set directly instead.
func (ht *HashTable) SetItem(item vbht.Item) (vbht.Item, error) {
	bl := ht.LockBucket(item.Key)
	defer bl.Unlock()
	sv, err := ht.Set(bl, item)
	if err != nil {
		return vbht.Item{}, err
	}
	return sv.ToItem(), nil
}

// GetItem looks up key and reports whether a live, non-deleted entry
// was found, bumping its frequency counter on a hit.
func (ht *HashTable) GetItem(key vbht.Key) (vbht.Item, bool) {
	bl := ht.LockBucket(key)
	defer bl.Unlock()
	sv := ht.FindForRead(bl, key, false)
	if sv == nil || sv.CommittedState.IsPending() {
		return vbht.Item{}, false
	}
	return sv.ToItem(), true
}

// DeleteItem soft-deletes key, returning KindNotFound if it is absent.
func (ht *HashTable) DeleteItem(key vbht.Key) error {
	bl := ht.LockBucket(key)
	defer bl.Unlock()
	sv := ht.FindOnlyCommitted(bl, key)
	if sv == nil {
		return vbht.New("DeleteItem", vbht.KindNotFound)
	}
	return ht.UnlockedSoftDelete(bl, sv, false, vbht.DeleteSourceExplicit)
}

// PurgeItem hard-removes key from its chain, the way a checkpoint purge
// or tombstone-compaction collaborator would: unlike DeleteItem, this
// leaves no tombstone behind and immediately lowers num_items, rather
// than just marking the entry deleted. Returns KindNotFound if absent.
func (ht *HashTable) PurgeItem(key vbht.Key) error {
	bl := ht.LockBucket(key)
	defer bl.Unlock()
	sv := ht.FindOnlyCommitted(bl, key)
	if sv == nil {
		return vbht.New("PurgeItem", vbht.KindNotFound)
	}
	ht.UnlockedDel(bl, key, sv)
	return nil
}

// EvictItem ejects key's value (or whole entry, per policy), reporting
// whether the eject actually happened.
func (ht *HashTable) EvictItem(key vbht.Key, policy vbht.EvictionPolicy) bool {
	bl := ht.LockBucket(key)
	defer bl.Unlock()
	sv := ht.FindOnlyCommitted(bl, key)
	if sv == nil {
		return false
	}
	return ht.Eject(bl, sv, policy)
}

// SampleKey is the Item-returning convenience form of GetRandomKey.
func (ht *HashTable) SampleKey(rng *rand.Rand) (vbht.Item, bool) {
	return ht.GetRandomKey(rng)
}
