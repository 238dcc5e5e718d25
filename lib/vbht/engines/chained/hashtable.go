// Package chained implements the chained (bucket + singly-linked list)
// hash table engine: a concurrent, stripe-locked, dynamically-resizable
// index of StoredValues supporting pause-resumable visitation, online
// resize, pluggable eviction, and the dual-entry Prepare/Commit protocol
// for synchronous writes.
package chained

import (
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/kvengine/vbht/lib/vbht"
	"github.com/kvengine/vbht/lib/vbht/engines/chained/internal"
	"github.com/kvengine/vbht/lib/vbht/util"
)

// primeSizeTable is the fixed bucket-count growth table (sans the -1
// sentinel, replaced by a Go slice length check).
var primeSizeTable = []int{
	3, 7, 13, 23, 47, 97, 193, 383, 769, 1531, 3079, 6143, 12289, 24571, 49157,
	98299, 196613, 393209, 786433, 1572869, 3145721, 6291449, 12582917,
	25165813, 50331653, 100663291, 201326611, 402653189, 805306357,
	1610612741,
}

// freqCounterIncFactor is the measured constant tuning
// ProbabilisticCounter so an 8-bit counter mimics a 16-bit counter's
// dynamic range, saturating in roughly 65000 increments.
const freqCounterIncFactor = 0.012

// maxHashTableSize is the "can't fit anything larger than an int" cap;
// resize() silently no-ops past it.
const maxHashTableSize = math.MaxInt32

// HashTable is C5: the chained index itself.
type HashTable struct {
	initialSize int
	size        atomic.Int64

	locks *internal.StripedLocks

	buckets []*StoredValue

	factory StoredValueFactory
	stats   *internal.Stats

	active atomic.Bool

	visitorsInFlight atomic.Int64

	// seed salts HashKey so that two tables (e.g. across process
	// restarts) don't share hash-flooding-prone bucket assignments.
	seed uint64

	// onFrequencySaturated is called synchronously, on the goroutine that
	// made the increment, whenever a StoredValue's frequency counter
	// saturates at 255. Wired to
	// util.WakeQueue.Push by callers that want a decayer task.
	onFrequencySaturated func(keyHash uint64)
}

// Option configures a HashTable at construction.
type Option func(*HashTable)

// WithFactory overrides the default unordered StoredValueFactory.
func WithFactory(f StoredValueFactory) Option {
	return func(ht *HashTable) { ht.factory = f }
}

// WithSeed pins the hash seed instead of drawing one from
// util.GenerateSeed.
func WithSeed(seed uint64) Option {
	return func(ht *HashTable) { ht.seed = seed }
}

// WithSaturationCallback registers a callback invoked (from whichever
// goroutine triggered the saturating increment) when a frequency
// counter saturates.
func WithSaturationCallback(cb func(keyHash uint64)) Option {
	return func(ht *HashTable) { ht.onFrequencySaturated = cb }
}

// New builds an active HashTable with bucket-vector length initialSize
// and numLocks stripe mutexes.
func New(initialSize, numLocks int, opts ...Option) *HashTable {
	if initialSize < 1 {
		initialSize = 1
	}
	ht := &HashTable{
		initialSize: initialSize,
		locks:       internal.NewStripedLocks(numLocks),
		buckets:     make([]*StoredValue, initialSize),
		factory:     NewUnorderedFactory(),
		stats:       internal.NewStats(),
		seed:        util.GenerateSeed(),
	}
	ht.size.Store(int64(initialSize))
	ht.active.Store(true)
	for _, opt := range opts {
		opt(ht)
	}
	return ht
}

// Stats returns a point-in-time snapshot of the eleven-dimension stats
// vector, translated from the internal package's Snapshot into the
// exported vbht.Snapshot so callers outside this package's tree (the
// CLI, htesting) never need to import chained/internal.
func (ht *HashTable) Stats() vbht.Snapshot {
	snap := ht.stats.Snapshot()
	return vbht.Snapshot{
		NumItems:             snap.NumItems,
		NumDeletedItems:      snap.NumDeletedItems,
		NumNonResidentItems:  snap.NumNonResidentItems,
		NumTempItems:         snap.NumTempItems,
		NumSystemItems:       snap.NumSystemItems,
		NumPreparedSyncWrite: snap.NumPreparedSyncWrite,
		CacheSize:            snap.CacheSize,
		MemSize:              snap.MemSize,
		UncompressedMem:      snap.UncompressedMem,
		MetadataMemory:       snap.MetadataMemory,
		NumResizes:           snap.NumResizes,
		NumEjects:            snap.NumEjects,
		NumValueEjects:       snap.NumValueEjects,
		NumFailedEjects:      snap.NumFailedEjects,
		DatatypeCounts:       snap.DatatypeCounts,
		MaxDeletedRevSeqno:   snap.MaxDeletedRevSeqno,
	}
}

// Size returns the current bucket-vector length.
func (ht *HashTable) Size() int { return int(ht.size.Load()) }

// NumLocks returns the stripe count.
func (ht *HashTable) NumLocks() int { return ht.locks.Len() }

// IsActive reports whether the table accepts mutations.
func (ht *HashTable) IsActive() bool { return ht.active.Load() }

func (ht *HashTable) requireActive(op string) {
	if !ht.active.Load() {
		panic(vbht.New(op, vbht.KindNotFound))
	}
}

// BucketLock bundles the acquired stripe guard with the bucket index
// and table size observed at acquisition time, so a caller never
// recomputes either under a stale size.
type BucketLock struct {
	ht       *HashTable
	lockIdx  int
	bucket   int
	sizeSeen int
}

// Unlock releases the stripe this BucketLock holds. Safe to call
// exactly once.
func (bl BucketLock) Unlock() { bl.ht.locks.Unlock(bl.lockIdx) }

// Bucket returns the bucket index this lock was acquired for.
func (bl BucketLock) Bucket() int { return bl.bucket }

func (ht *HashTable) hashKey(key vbht.Key) uint64 {
	return util.HashKey(key.Bytes, key.CollectionID, ht.seed)
}

// LockBucket computes h = hash(key), b = h mod size, acquires
// mutexes[b mod L], and returns a handle bundling the guard, b, and the
// size value observed.
func (ht *HashTable) LockBucket(key vbht.Key) BucketLock {
	size := ht.Size()
	h := ht.hashKey(key)
	bucket := int(h % uint64(size))
	lockIdx := ht.locks.Lock(bucket)
	return BucketLock{ht: ht, lockIdx: lockIdx, bucket: bucket, sizeSeen: size}
}

// LockBucketIdx acquires stripe lockIdx directly, for visitors that
// iterate by stripe rather than by key.
func (ht *HashTable) LockBucketIdx(lockIdx int) {
	ht.locks.LockByIndex(lockIdx)
}

// UnlockBucketIdx releases stripe lockIdx directly.
func (ht *HashTable) UnlockBucketIdx(lockIdx int) {
	ht.locks.UnlockByIndex(lockIdx)
}

// ---- find primitives (§4.2) ----

// findInner scans the bucket chain for key under an already-held lock
// and returns the committed and pending matches. It panics (logic
// error) if more than one of either category is found, mirroring the
// source's debug assertion.
func (ht *HashTable) findInner(bl BucketLock, key vbht.Key) (committed, pending *StoredValue) {
	for sv := ht.buckets[bl.bucket]; sv != nil; sv = sv.next {
		if !sv.Key.Equal(key) {
			continue
		}
		if sv.CommittedState.IsPending() {
			if pending != nil {
				panic(vbht.New("findInner", vbht.KindNotFound))
			}
			pending = sv
		} else {
			if committed != nil {
				panic(vbht.New("findInner", vbht.KindNotFound))
			}
			committed = sv
		}
	}
	return committed, pending
}

// FindForRead returns the committed entry unless a PreparedMaybeVisible
// pending entry shadows it, in which case that pending entry is
// returned as a read-blocked signal. Deleted items are hidden unless
// wantsDeleted. A successful non-deleted read bumps the frequency
// counter.
func (ht *HashTable) FindForRead(bl BucketLock, key vbht.Key, wantsDeleted bool) *StoredValue {
	committed, pending := ht.findInner(bl, key)
	if pending != nil && pending.CommittedState == vbht.PreparedMaybeVisible {
		return pending
	}
	if committed == nil {
		return nil
	}
	if committed.Deleted && !wantsDeleted {
		return nil
	}
	if !committed.Deleted {
		ht.bumpFrequency(committed)
	}
	return committed
}

// FindForWrite prefers the pending entry if one exists, else the
// committed entry. A found prepare is always returned regardless of
// deletion/wantsDeleted.
func (ht *HashTable) FindForWrite(bl BucketLock, key vbht.Key, wantsDeleted bool) *StoredValue {
	committed, pending := ht.findInner(bl, key)
	if pending != nil {
		return pending
	}
	if committed == nil {
		return nil
	}
	if committed.Deleted && !wantsDeleted {
		return nil
	}
	return committed
}

// FindForCommit returns both halves of a sync write's dual entry: the
// prepare (assumed present) and the currently-committed entry (may be
// nil for a brand-new key).
func (ht *HashTable) FindForCommit(bl BucketLock, key vbht.Key) (prepare, committed *StoredValue) {
	committed, pending := ht.findInner(bl, key)
	return pending, committed
}

// FindOnlyCommitted returns just the committed half, ignoring any
// pending entry.
func (ht *HashTable) FindOnlyCommitted(bl BucketLock, key vbht.Key) *StoredValue {
	committed, _ := ht.findInner(bl, key)
	return committed
}

// FindOnlyPrepared returns just the pending half, ignoring any
// committed entry.
func (ht *HashTable) FindOnlyPrepared(bl BucketLock, key vbht.Key) *StoredValue {
	_, pending := ht.findInner(bl, key)
	return pending
}

func (ht *HashTable) bumpFrequency(sv *StoredValue) {
	next, justSaturated := internal.UpdateFreqCounter(sv.FreqCounter)
	sv.FreqCounter = next
	if justSaturated && ht.onFrequencySaturated != nil {
		ht.onFrequencySaturated(sv.keyHash)
	}
}

// ---- stats prologue/epilogue (§4.3) ----

// withStats runs mutate with a prologue snapshot of pre taken first,
// applying the bracketed delta to ht.stats against an epilogue snapshot
// of whatever mutate returns. pre and mutate's result may be nil to
// denote "no such value". mutate must return the post-mutation
// pointer itself — returning it from mutate (rather than taking it as
// a separate argument evaluated before mutate runs) is what lets a
// value allocated inside mutate still be snapshotted correctly.
func (ht *HashTable) withStats(pre *StoredValue, mutate func() *StoredValue) *StoredValue {
	preSnap := nullProperties()
	if pre != nil {
		preSnap = pre.properties()
	}
	post := mutate()
	postSnap := nullProperties()
	if post != nil {
		postSnap = post.properties()
	}
	ht.stats.Apply(preSnap, postSnap)
	return post
}

// ---- insert / update / replace (§4.4) ----

// Set finds the write target for item.Key; if present, updates it in
// place, otherwise inserts a new head at the bucket.
func (ht *HashTable) Set(bl BucketLock, item vbht.Item) (*StoredValue, error) {
	ht.requireActive("Set")
	sv := ht.FindForWrite(bl, item.Key, true)
	if sv != nil {
		return ht.unlockedUpdateStoredValue(bl, sv, item)
	}
	return ht.unlockedAddNewStoredValue(bl, item), nil
}

// unlockedUpdateStoredValue updates sv in place for item, or — if item
// itself describes a pending write — allocates a new prepare entry
// linked ahead of sv so the two coexist.
func (ht *HashTable) unlockedUpdateStoredValue(bl BucketLock, sv *StoredValue, item vbht.Item) (*StoredValue, error) {
	if sv.CommittedState.IsPending() {
		return nil, vbht.New("unlockedUpdateStoredValue", vbht.KindIsPendingSyncWrite)
	}
	if item.SyncWrite {
		prepare, head := ht.factory.New(item, sv.keyHash, ht.buckets[bl.bucket])
		return ht.withStats(nil, func() *StoredValue {
			ht.buckets[bl.bucket] = head
			return prepare
		}), nil
	}
	result := ht.withStats(sv, func() *StoredValue {
		sv.Cas = item.Cas
		sv.RevSeqno = item.RevSeqno
		sv.BySeqno = item.BySeqno
		sv.Flags = item.Flags
		sv.ExpTime = item.ExpTime
		sv.SetValue(item.Value, item.Datatype)
		ht.bumpFrequency(sv)
		return sv
	})
	return result, nil
}

// unlockedAddNewStoredValue factory-allocates a StoredValue for item
// and links it at the bucket head.
func (ht *HashTable) unlockedAddNewStoredValue(bl BucketLock, item vbht.Item) *StoredValue {
	var created *StoredValue
	ht.withStats(nil, func() *StoredValue {
		h := ht.hashKey(item.Key)
		var head *StoredValue
		created, head = ht.factory.New(item, h, ht.buckets[bl.bucket])
		ht.buckets[bl.bucket] = head
		return created
	})
	return created
}

// unlockedReplaceByCopy releases the entry matching src.Key and inserts
// a factory-produced copy in its place, returning the released entry
// and the new pointer. Used when in-place mutation of src would be
// unsafe for a concurrent reader holding a reference to it.
func (ht *HashTable) unlockedReplaceByCopy(bl BucketLock, src *StoredValue) (released, replacement *StoredValue) {
	released = ht.unlockedUnlink(bl, src)
	var cp *StoredValue
	ht.withStats(nil, func() *StoredValue {
		var head *StoredValue
		cp, head = ht.factory.Copy(src, ht.buckets[bl.bucket])
		ht.buckets[bl.bucket] = head
		return cp
	})
	return released, cp
}

// InsertFromWarmup loads item from persistence at startup. See the
// Open Questions decision in DESIGN.md for why the insert-new path
// returns a NotFound error rather than nil: the original system's
// historical sentinel is preserved verbatim rather than "fixed".
func (ht *HashTable) InsertFromWarmup(bl BucketLock, item vbht.Item, eject, metaOnly bool, policy vbht.EvictionPolicy) error {
	ht.requireActive("InsertFromWarmup")
	existing := ht.FindOnlyCommitted(bl, item.Key)
	if existing == nil {
		sv := ht.unlockedAddNewStoredValue(bl, item)
		if metaOnly {
			sv.Resident = false
			sv.value = nil
		}
		return vbht.New("InsertFromWarmup", vbht.KindNotFound)
	}

	if existing.Cas != 0 && existing.Cas != item.Cas {
		return vbht.New("InsertFromWarmup", vbht.KindInvalidCas)
	}
	if existing.Cas == 0 {
		existing.Cas = item.Cas
		existing.Flags = item.Flags
		existing.ExpTime = item.ExpTime
		existing.RevSeqno = item.RevSeqno
	}

	if !existing.Resident && len(item.Value) > 0 {
		ht.unlockedRestoreValue(bl, item, existing)
	}
	existing.Dirty = false

	if eject && !metaOnly {
		ht.unlockedEjectItem(bl, existing, policy)
	}
	return nil
}

// ---- delete (§4.5) ----

// UnlockedSoftDelete tombstones sv. Rejects prepares. If onlyMark, the
// value buffer is kept (a tombstone with body); otherwise it is
// cleared.
func (ht *HashTable) UnlockedSoftDelete(bl BucketLock, sv *StoredValue, onlyMark bool, source vbht.DeleteSource) error {
	if sv.CommittedState.IsPending() {
		return vbht.New("UnlockedSoftDelete", vbht.KindIsPendingSyncWrite)
	}
	ht.withStats(sv, func() *StoredValue { sv.Del(source, onlyMark); return sv })
	return nil
}

// UnlockedCreateSyncDeletePrepare builds a new StoredValue as a pending
// delete by copying v, marking it Pending, and tombstoning it; the
// caller links the returned entry into the chain.
func (ht *HashTable) UnlockedCreateSyncDeletePrepare(bl BucketLock, v *StoredValue, source vbht.DeleteSource) *StoredValue {
	prepare := copyStoredValue(v, ht.buckets[bl.bucket])
	prepare.CommittedState = vbht.Pending
	prepare.Del(source, true)
	ht.withStats(nil, func() *StoredValue {
		ht.buckets[bl.bucket] = prepare
		return prepare
	})
	return prepare
}

// unlockedUnlink splices target out of the chain at bl.bucket without
// any stats accounting, returning it. Panics if target is not found
// (logic error — the caller must already hold a valid reference).
func (ht *HashTable) unlockedUnlink(bl BucketLock, target *StoredValue) *StoredValue {
	head := ht.buckets[bl.bucket]
	if head == target {
		ht.buckets[bl.bucket] = head.next
		head.next = nil
		return head
	}
	for prev := head; prev != nil; prev = prev.next {
		if prev.next == target {
			prev.next = target.next
			target.next = nil
			return target
		}
	}
	panic(vbht.New("unlockedUnlink", vbht.KindNotFound))
}

// UnlockedDel hard-removes the entry matching key (or, if sv is
// non-nil, that exact entry) from the chain. Panics if not found.
func (ht *HashTable) UnlockedDel(bl BucketLock, key vbht.Key, sv *StoredValue) {
	if sv == nil {
		sv, _ = ht.findInner(bl, key)
	}
	ht.withStats(sv, func() *StoredValue { ht.unlockedUnlink(bl, sv); return nil })
}

// AbortSyncWrite removes a pending prepare without ever exposing its
// value, the supplemental counterpart to the Prepare/Commit pair this
// package otherwise implements via unlockedUpdateStoredValue and
// FindForCommit + caller-driven merge.
func (ht *HashTable) AbortSyncWrite(bl BucketLock, key vbht.Key) (vbht.Item, error) {
	_, pending := ht.findInner(bl, key)
	if pending == nil {
		return vbht.Item{}, vbht.New("AbortSyncWrite", vbht.KindNotFound)
	}
	item := pending.ToItemAbort()
	ht.withStats(pending, func() *StoredValue { ht.unlockedUnlink(bl, pending); return nil })
	return item, nil
}

// ---- resize (§4.6) ----

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func nearest(n, a, b int) int {
	if distance(n, a) < distance(b, n) {
		return a
	}
	return b
}

// computeResizeTarget chooses a new bucket-vector size from the prime
// table based on the current item count, applying the original
// source's hysteresis rule verbatim.
func (ht *HashTable) computeResizeTarget() int {
	numItems := int(ht.stats.NumItems.Value())
	i := 0
	for i < len(primeSizeTable) && primeSizeTable[i] < numItems {
		i++
	}
	current := ht.Size()
	switch {
	case i == len(primeSizeTable):
		return primeSizeTable[len(primeSizeTable)-1]
	case primeSizeTable[i] < ht.initialSize:
		return ht.initialSize
	case i == 0:
		return primeSizeTable[0]
	case current == primeSizeTable[i-1] || current == primeSizeTable[i]:
		return current
	default:
		return nearest(numItems, primeSizeTable[i-1], primeSizeTable[i])
	}
}

// Resize recomputes the target size from the current item count and
// resizes to it. A no-op if the computed target equals the current
// size.
func (ht *HashTable) Resize() {
	ht.ResizeTo(ht.computeResizeTarget())
}

// ResizeTo grows or shrinks the bucket vector to newSize. Refuses if
// newSize exceeds the platform cap or equals the current size; aborts
// (no-op, to be retried later by the caller) if any visitor is
// currently in flight.
func (ht *HashTable) ResizeTo(newSize int) {
	ht.requireActive("ResizeTo")
	if newSize > maxHashTableSize {
		return
	}
	if newSize == ht.Size() {
		return
	}

	ht.locks.LockAll()
	defer ht.locks.UnlockAll()

	if ht.visitorsInFlight.Load() > 0 {
		return
	}

	oldBuckets := ht.buckets
	newBuckets := make([]*StoredValue, newSize)

	for _, head := range oldBuckets {
		for sv := head; sv != nil; {
			next := sv.next
			newBucket := int(sv.keyHash % uint64(newSize))
			sv.next = newBuckets[newBucket]
			newBuckets[newBucket] = sv
			sv = next
		}
	}

	ht.buckets = newBuckets
	ht.size.Store(int64(newSize))
	ht.stats.NumResizes.Add(1)
}

// ---- eviction (§4.8) ----

// unlockedEjectItem attempts to evict sv under policy. Returns false
// (incrementing num_failed_ejects) if sv is not eligible.
func (ht *HashTable) unlockedEjectItem(bl BucketLock, sv *StoredValue, policy vbht.EvictionPolicy) bool {
	if !sv.EligibleForEviction(policy) {
		ht.stats.NumFailedEjects.Add(1)
		return false
	}

	wasResident := sv.Resident

	switch policy {
	case vbht.EvictionPolicyValue:
		ht.withStats(sv, func() *StoredValue { sv.EjectValue(); return sv })
	case vbht.EvictionPolicyFull:
		if sv.RevSeqno > ht.stats.MaxDeletedRevSeqno.Load() {
			ht.stats.MaxDeletedRevSeqno.Store(sv.RevSeqno)
		}
		ht.withStats(sv, func() *StoredValue { ht.unlockedUnlink(bl, sv); return nil })
	}

	if wasResident {
		ht.stats.NumValueEjects.Add(1)
	}
	ht.stats.NumEjects.Add(1)
	return true
}

// Eject is the exported wrapper around unlockedEjectItem, for callers
// (eviction and expiry sweeps) driving eviction from outside this
// package.
func (ht *HashTable) Eject(bl BucketLock, sv *StoredValue, policy vbht.EvictionPolicy) bool {
	return ht.unlockedEjectItem(bl, sv, policy)
}

// ---- restore (§4.10) ----

func (ht *HashTable) unlockedRestoreValue(bl BucketLock, item vbht.Item, sv *StoredValue) bool {
	if !ht.active.Load() || sv.Resident {
		return false
	}
	ht.withStats(sv, func() *StoredValue {
		sv.TempItem = false
		sv.NewCacheItem = false
		sv.RestoreValue(item)
		return sv
	})
	return true
}

// RestoreValue re-hydrates a non-resident sv from a backfilled item.
// Fails if the table is inactive or sv is already resident.
func (ht *HashTable) RestoreValue(bl BucketLock, item vbht.Item, sv *StoredValue) bool {
	return ht.unlockedRestoreValue(bl, item, sv)
}

// RestoreMeta copies metadata from item into sv without touching value
// residency.
func (ht *HashTable) RestoreMeta(bl BucketLock, item vbht.Item, sv *StoredValue) {
	sv.RestoreMeta(item)
}

// ---- random sampling (§4.11) ----

// GetRandomKey scans forward with wrap-around from a random start
// bucket until it finds a bucket whose first eligible (non-temp,
// non-deleted, resident, committed) entry yields an Item.
func (ht *HashTable) GetRandomKey(rng *rand.Rand) (vbht.Item, bool) {
	size := ht.Size()
	if size == 0 {
		return vbht.Item{}, false
	}
	start := rng.Intn(size)
	for i := 0; i < size; i++ {
		bucket := (start + i) % size
		lockIdx := ht.locks.Lock(bucket)
		sv := ht.firstEligible(bucket)
		var item vbht.Item
		var ok bool
		if sv != nil {
			item, ok = sv.ToItem(), true
		}
		ht.locks.Unlock(lockIdx)
		if ok {
			return item, true
		}
	}
	return vbht.Item{}, false
}

func (ht *HashTable) firstEligible(bucket int) *StoredValue {
	for sv := ht.buckets[bucket]; sv != nil; sv = sv.next {
		if sv.TempItem || sv.Deleted || !sv.Resident || !sv.CommittedState.IsCommitted() {
			continue
		}
		return sv
	}
	return nil
}

// ---- lifecycle ----

// Clear empties every chain. If deactivate, the table stops accepting
// mutations afterward; otherwise it must already be active.
func (ht *HashTable) Clear(deactivate bool) {
	if !deactivate && !ht.active.Load() {
		panic(vbht.New("Clear", vbht.KindNotFound))
	}
	ht.locks.LockAll()
	defer ht.locks.UnlockAll()

	if deactivate {
		ht.active.Store(false)
	}
	for i := range ht.buckets {
		ht.buckets[i] = nil
	}
	ht.stats.Reset()
}

// CleanupIfTemporary removes v if it is a temp placeholder left over
// from a bgfetch that reported not-found.
func (ht *HashTable) CleanupIfTemporary(bl BucketLock, v *StoredValue) {
	if v.TempItem {
		ht.UnlockedDel(bl, v.Key, v)
	}
}
