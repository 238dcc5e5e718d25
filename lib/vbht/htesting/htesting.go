// Package htesting is a shared, engine-agnostic test battery for any
// vbht.Engine implementation: a factory closure builds a fresh engine
// per subtest, and a fixed set of named t.Run subtests exercises it.
// Dropping in a future alternate HashTable implementation means writing
// a Factory for it and calling RunHashTableTests once.
package htesting

import (
	"fmt"
	"testing"

	"github.com/kvengine/vbht/lib/vbht"
)

// Factory builds a fresh, empty Engine for a single subtest.
type Factory func() vbht.Engine

// RunHashTableTests runs the full battery against factory under a
// top-level t.Run(name, ...) group.
func RunHashTableTests(t *testing.T, name string, factory Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("SetAndGet", func(t *testing.T) {
			testSetAndGet(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Overwrite", func(t *testing.T) {
			testOverwrite(t, factory())
		})

		t.Run("EvictionRoundTrip", func(t *testing.T) {
			testEvictionRoundTrip(t, factory())
		})

		t.Run("SoftDeleteLeavesTombstoneUntilPurged", func(t *testing.T) {
			testSoftDeleteLeavesTombstoneUntilPurged(t, factory())
		})

		t.Run("GrowThenShrink", func(t *testing.T) {
			testGrowThenShrink(t, factory())
		})

		t.Run("StatsTrackItemCount", func(t *testing.T) {
			testStatsTrackItemCount(t, factory())
		})

		t.Run("DeleteMissingKeyFails", func(t *testing.T) {
			testDeleteMissingKeyFails(t, factory())
		})

		t.Run("EvictMissingKeyIsNoop", func(t *testing.T) {
			testEvictMissingKeyIsNoop(t, factory())
		})
	})
}

func key(s string) vbht.Key { return vbht.Key{Bytes: []byte(s)} }

func testSetAndGet(t *testing.T, e vbht.Engine) {
	k := key("alpha")
	if _, err := e.SetItem(vbht.Item{Key: k, Value: []byte("one")}); err != nil {
		t.Fatalf("SetItem: %v", err)
	}

	got, ok := e.GetItem(k)
	if !ok {
		t.Fatalf("expected key to be found after SetItem")
	}
	if string(got.Value) != "one" {
		t.Fatalf("expected value %q, got %q", "one", got.Value)
	}
}

func testDelete(t *testing.T, e vbht.Engine) {
	k := key("beta")
	if _, err := e.SetItem(vbht.Item{Key: k, Value: []byte("v")}); err != nil {
		t.Fatalf("SetItem: %v", err)
	}

	if err := e.DeleteItem(k); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	if _, ok := e.GetItem(k); ok {
		t.Fatalf("expected key to be gone after DeleteItem")
	}
}

func testOverwrite(t *testing.T, e vbht.Engine) {
	k := key("gamma")
	if _, err := e.SetItem(vbht.Item{Key: k, Value: []byte("first")}); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	if _, err := e.SetItem(vbht.Item{Key: k, Value: []byte("second")}); err != nil {
		t.Fatalf("SetItem (overwrite): %v", err)
	}

	got, ok := e.GetItem(k)
	if !ok {
		t.Fatalf("expected key to still be found after overwrite")
	}
	if string(got.Value) != "second" {
		t.Fatalf("expected overwritten value %q, got %q", "second", got.Value)
	}
}

func testEvictionRoundTrip(t *testing.T, e vbht.Engine) {
	k := key("delta")
	if _, err := e.SetItem(vbht.Item{Key: k, Value: []byte("payload")}); err != nil {
		t.Fatalf("SetItem: %v", err)
	}

	if !e.EvictItem(k, vbht.EvictionPolicyValue) {
		t.Fatalf("expected EvictItem to succeed on a resident key")
	}

	if got := e.Stats().NumNonResidentItems; got != 1 {
		t.Fatalf("expected NumNonResidentItems=1 after eviction, got %d", got)
	}
}

func testGrowThenShrink(t *testing.T, e vbht.Engine) {
	const n = 2000
	for i := 0; i < n; i++ {
		k := key(fmt.Sprintf("k-%d", i))
		if _, err := e.SetItem(vbht.Item{Key: k, Value: []byte("v")}); err != nil {
			t.Fatalf("SetItem(%d): %v", i, err)
		}
	}

	before := e.Size()
	e.Resize()
	if e.Size() <= before {
		t.Fatalf("expected table to grow past %d items with size %d, got size %d", n, before, e.Size())
	}

	for i := 0; i < n-5; i++ {
		k := key(fmt.Sprintf("k-%d", i))
		if err := e.PurgeItem(k); err != nil {
			t.Fatalf("PurgeItem(%d): %v", i, err)
		}
	}

	grown := e.Size()
	e.Resize()
	if e.Size() >= grown {
		t.Fatalf("expected table to shrink back down from %d after deleting most entries, got %d", grown, e.Size())
	}

	for i := n - 5; i < n; i++ {
		k := key(fmt.Sprintf("k-%d", i))
		if _, ok := e.GetItem(k); !ok {
			t.Fatalf("expected surviving key k-%d to still be present after resize", i)
		}
	}
}

func testSoftDeleteLeavesTombstoneUntilPurged(t *testing.T, e vbht.Engine) {
	k := key("epsilon")
	if _, err := e.SetItem(vbht.Item{Key: k, Value: []byte("v")}); err != nil {
		t.Fatalf("SetItem: %v", err)
	}

	if err := e.DeleteItem(k); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if got := e.Stats().NumItems; got != 1 {
		t.Fatalf("expected a soft delete to leave the tombstone counted in NumItems, got %d", got)
	}
	if got := e.Stats().NumDeletedItems; got != 1 {
		t.Fatalf("expected NumDeletedItems=1 after soft delete, got %d", got)
	}

	if err := e.PurgeItem(k); err != nil {
		t.Fatalf("PurgeItem: %v", err)
	}
	if got := e.Stats().NumItems; got != 0 {
		t.Fatalf("expected PurgeItem to actually lower NumItems, got %d", got)
	}
}

func testStatsTrackItemCount(t *testing.T, e vbht.Engine) {
	for i := 0; i < 10; i++ {
		k := key(fmt.Sprintf("stat-%d", i))
		if _, err := e.SetItem(vbht.Item{Key: k, Value: []byte("v")}); err != nil {
			t.Fatalf("SetItem(%d): %v", i, err)
		}
	}

	if got := e.Stats().NumItems; got != 10 {
		t.Fatalf("expected NumItems=10, got %d", got)
	}

	if err := e.DeleteItem(key("stat-0")); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	if got := e.Stats().NumDeletedItems; got != 1 {
		t.Fatalf("expected NumDeletedItems=1 after one delete, got %d", got)
	}
}

func testDeleteMissingKeyFails(t *testing.T, e vbht.Engine) {
	if err := e.DeleteItem(key("never-set")); err == nil {
		t.Fatalf("expected DeleteItem on a missing key to return an error")
	} else if !vbht.Is(err, vbht.KindNotFound) {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}

func testEvictMissingKeyIsNoop(t *testing.T, e vbht.Engine) {
	if e.EvictItem(key("never-set"), vbht.EvictionPolicyValue) {
		t.Fatalf("expected EvictItem on a missing key to report false")
	}
}
