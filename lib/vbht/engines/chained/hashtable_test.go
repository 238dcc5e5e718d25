package chained

import (
	"math/rand"
	"testing"

	"github.com/kvengine/vbht/lib/vbht"
)

func key(s string) vbht.Key { return vbht.Key{Bytes: []byte(s)} }

func setItem(t *testing.T, ht *HashTable, k string, value string, cas uint64) *StoredValue {
	t.Helper()
	bl := ht.LockBucket(key(k))
	defer bl.Unlock()
	sv, err := ht.Set(bl, vbht.Item{Key: key(k), Value: []byte(value), Cas: cas})
	if err != nil {
		t.Fatalf("Set(%q): %v", k, err)
	}
	return sv
}

func TestSetAndFindForRead(t *testing.T) {
	ht := New(47, 4)
	setItem(t, ht, "a", "1", 10)

	bl := ht.LockBucket(key("a"))
	sv := ht.FindForRead(bl, key("a"), false)
	bl.Unlock()

	if sv == nil || string(sv.ValueBytes()) != "1" {
		t.Fatalf("expected to find value 1, got %+v", sv)
	}
	if ht.Stats().NumItems != 1 {
		t.Fatalf("expected NumItems=1, got %d", ht.Stats().NumItems)
	}
}

func TestBucketInvariantHoldsAfterInsert(t *testing.T) {
	ht := New(47, 4)
	for i := 0; i < 200; i++ {
		setItem(t, ht, string(rune('a'+i%26))+string(rune(i)), "v", uint64(i))
	}

	size := ht.Size()
	for bucketIdx, head := range ht.buckets {
		for sv := head; sv != nil; sv = sv.next {
			expected := int(sv.keyHash % uint64(size))
			if expected != bucketIdx {
				t.Fatalf("entry hashed to bucket %d but stored at %d", expected, bucketIdx)
			}
		}
	}
}

func TestPrepareCommitCoexistence(t *testing.T) {
	ht := New(47, 4)
	setItem(t, ht, "a", "1", 10)

	bl := ht.LockBucket(key("a"))
	_, err := ht.Set(bl, vbht.Item{Key: key("a"), Value: []byte("2"), Cas: 11, SyncWrite: true})
	if err != nil {
		t.Fatalf("prepare Set: %v", err)
	}
	bl.Unlock()

	bl = ht.LockBucket(key("a"))
	read := ht.FindForRead(bl, key("a"), false)
	if read == nil || string(read.ValueBytes()) != "1" {
		t.Fatalf("expected FindForRead to return committed v=1, got %+v", read)
	}
	write := ht.FindForWrite(bl, key("a"), false)
	if write == nil || !write.CommittedState.IsPending() {
		t.Fatalf("expected FindForWrite to return the pending entry")
	}

	prepare, committed := ht.FindForCommit(bl, key("a"))
	if prepare == nil || committed == nil {
		t.Fatalf("expected both halves present at commit time")
	}
	// caller-driven merge: promote prepare, drop committed, drop prepare's chain slot.
	committed.Cas = prepare.Cas
	committed.SetValue(prepare.ValueBytes(), prepare.Datatype)
	committed.CommittedState = vbht.CommittedViaMutation
	ht.UnlockedDel(bl, key("a"), prepare)
	bl.Unlock()

	bl = ht.LockBucket(key("a"))
	final := ht.FindOnlyCommitted(bl, key("a"))
	pendingAfter := ht.FindOnlyPrepared(bl, key("a"))
	bl.Unlock()

	if final == nil || string(final.ValueBytes()) != "2" || final.Cas != 11 {
		t.Fatalf("expected merged committed v=2 cas=11, got %+v", final)
	}
	if pendingAfter != nil {
		t.Fatalf("expected no pending entry left after commit merge")
	}
}

func TestPreparedMaybeVisibleBlocksReads(t *testing.T) {
	ht := New(47, 4)
	setItem(t, ht, "a", "1", 10)

	bl := ht.LockBucket(key("a"))
	sv, err := ht.Set(bl, vbht.Item{Key: key("a"), Value: []byte("2"), Cas: 11, SyncWrite: true, PreparedMaybeVisible: true})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if sv.CommittedState != vbht.PreparedMaybeVisible {
		t.Fatalf("expected PreparedMaybeVisible state, got %v", sv.CommittedState)
	}
	read := ht.FindForRead(bl, key("a"), false)
	bl.Unlock()

	if read != sv {
		t.Fatalf("expected FindForRead to return the pending entry as a blocked-read signal")
	}
}

func TestValueEvictionRoundTrip(t *testing.T) {
	ht := New(47, 4)
	setItem(t, ht, "a", "1234567890", 10)

	bl := ht.LockBucket(key("a"))
	sv := ht.FindOnlyCommitted(bl, key("a"))
	ok := ht.Eject(bl, sv, vbht.EvictionPolicyValue)
	bl.Unlock()
	if !ok {
		t.Fatalf("expected eviction to succeed")
	}

	bl = ht.LockBucket(key("a"))
	read := ht.FindForRead(bl, key("a"), false)
	bl.Unlock()
	if read == nil || read.Resident {
		t.Fatalf("expected a non-resident entry, got %+v", read)
	}
	if ht.Stats().NumNonResidentItems != 1 {
		t.Fatalf("expected NumNonResidentItems=1, got %d", ht.Stats().NumNonResidentItems)
	}

	bl = ht.LockBucket(key("a"))
	restored := ht.RestoreValue(bl, vbht.Item{Key: key("a"), Value: []byte("1234567890"), Cas: 10}, read)
	bl.Unlock()
	if !restored {
		t.Fatalf("expected RestoreValue to succeed")
	}
	if ht.Stats().NumNonResidentItems != 0 {
		t.Fatalf("expected NumNonResidentItems to revert to 0, got %d", ht.Stats().NumNonResidentItems)
	}
}

func TestResizeUnderVisitorIsDeferred(t *testing.T) {
	ht := New(47, 4)
	for i := 0; i < 100; i++ {
		setItem(t, ht, string(rune(i)), "v", uint64(i))
	}

	ht.visitorTrackerRegister()
	before := ht.Size()
	ht.ResizeTo(193)
	ht.visitorTrackerRelease()

	if ht.Size() != before {
		t.Fatalf("expected resize to no-op while a visitor is in flight")
	}

	ht.ResizeTo(193)
	if ht.Size() != 193 {
		t.Fatalf("expected resize to succeed once visitors drained, got size=%d", ht.Size())
	}
}

func TestResizePreservesAllEntries(t *testing.T) {
	ht := New(47, 4)
	for i := 0; i < 300; i++ {
		setItem(t, ht, string(rune(i)), "v", uint64(i))
	}
	ht.Resize()

	count := 0
	for _, head := range ht.buckets {
		for sv := head; sv != nil; sv = sv.next {
			count++
		}
	}
	if count != 300 {
		t.Fatalf("expected 300 entries to survive resize, got %d", count)
	}
}

func TestSoftDeleteRejectsPrepare(t *testing.T) {
	ht := New(47, 4)
	setItem(t, ht, "a", "1", 10)
	bl := ht.LockBucket(key("a"))
	prepare, err := ht.Set(bl, vbht.Item{Key: key("a"), Value: []byte("2"), Cas: 11, SyncWrite: true})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	err = ht.UnlockedSoftDelete(bl, prepare, true, vbht.DeleteSourceExplicit)
	bl.Unlock()
	if !vbht.Is(err, vbht.KindIsPendingSyncWrite) {
		t.Fatalf("expected IsPendingSyncWrite, got %v", err)
	}
}

func TestGetRandomKeyFindsEligibleEntry(t *testing.T) {
	ht := New(47, 4)
	setItem(t, ht, "only", "v", 1)

	item, ok := ht.GetRandomKey(rand.New(rand.NewSource(1)))
	if !ok || string(item.Key.Bytes) != "only" {
		t.Fatalf("expected to find the only key, got %+v ok=%v", item, ok)
	}
}

func TestClearEmptiesTableAndKeepsActive(t *testing.T) {
	ht := New(47, 4)
	for i := 0; i < 10; i++ {
		setItem(t, ht, string(rune(i)), "v", uint64(i))
	}
	ht.Clear(false)

	if !ht.IsActive() {
		t.Fatalf("expected table to remain active")
	}
	if ht.Stats().NumItems != 0 {
		t.Fatalf("expected NumItems=0 after clear")
	}
	for _, head := range ht.buckets {
		if head != nil {
			t.Fatalf("expected all chains empty after clear")
		}
	}
}
