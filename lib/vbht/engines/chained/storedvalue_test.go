package chained

import (
	"testing"

	"github.com/kvengine/vbht/lib/vbht"
)

func TestStoreCompressedBufferRoundTrips(t *testing.T) {
	sv := newStoredValueFromItem(vbht.Item{Key: key("a")}, 1, nil)
	raw := []byte("hello hello hello hello hello")

	sv.StoreCompressedBuffer(raw, vbht.DatatypeJSON)

	if !sv.Datatype.IsSnappy() {
		t.Fatalf("expected Snappy bit set")
	}
	if sv.UncompressedValueLen() != len(raw) {
		t.Fatalf("expected uncompressed len %d, got %d", len(raw), sv.UncompressedValueLen())
	}
	inflated, err := sv.Inflate()
	if err != nil {
		t.Fatalf("Inflate: %v", err)
	}
	if string(inflated) != string(raw) {
		t.Fatalf("expected inflated bytes to round-trip, got %q", inflated)
	}
}

func TestEjectAndRestorePreservesFreqCounter(t *testing.T) {
	sv := newStoredValueFromItem(vbht.Item{Key: key("a"), Value: []byte("v")}, 1, nil)
	sv.FreqCounter = 42

	sv.EjectValue()
	if sv.Resident {
		t.Fatalf("expected non-resident after eject")
	}
	if sv.FreqCounter != 42 {
		t.Fatalf("expected frequency counter untouched by eject, got %d", sv.FreqCounter)
	}

	sv.RestoreValue(vbht.Item{Value: []byte("v")})
	if !sv.Resident {
		t.Fatalf("expected resident after restore")
	}
	if sv.FreqCounter != 42 {
		t.Fatalf("expected frequency counter preserved across restore, got %d", sv.FreqCounter)
	}
}

func TestDelOnlyMarkKeepsBuffer(t *testing.T) {
	sv := newStoredValueFromItem(vbht.Item{Key: key("a"), Value: []byte("v")}, 1, nil)
	sv.Del(vbht.DeleteSourceExplicit, true)

	if !sv.Deleted {
		t.Fatalf("expected Deleted=true")
	}
	if sv.ValueBytes() == nil {
		t.Fatalf("expected value buffer preserved for onlyMark delete")
	}
}

func TestDelHardClearsBuffer(t *testing.T) {
	sv := newStoredValueFromItem(vbht.Item{Key: key("a"), Value: []byte("v")}, 1, nil)
	sv.Del(vbht.DeleteSourceTTL, false)

	if sv.ValueBytes() != nil {
		t.Fatalf("expected value buffer cleared for hard delete")
	}
}

func TestEligibleForEvictionRejectsPendingAndTemp(t *testing.T) {
	sv := newStoredValueFromItem(vbht.Item{Key: key("a"), Value: []byte("v")}, 1, nil)

	sv.CommittedState = vbht.Pending
	if sv.EligibleForEviction(vbht.EvictionPolicyFull) {
		t.Fatalf("expected pending entries to never be eviction-eligible")
	}

	sv.CommittedState = vbht.CommittedViaMutation
	sv.TempItem = true
	if sv.EligibleForEviction(vbht.EvictionPolicyFull) {
		t.Fatalf("expected temp entries to never be eviction-eligible")
	}

	sv.TempItem = false
	sv.Resident = false
	if !sv.EligibleForEviction(vbht.EvictionPolicyFull) {
		t.Fatalf("expected Full policy to accept a non-resident committed entry")
	}
	if sv.EligibleForEviction(vbht.EvictionPolicyValue) {
		t.Fatalf("expected Value policy to reject an already non-resident entry")
	}
}

func TestToItemAbortNeverExposesValue(t *testing.T) {
	sv := newStoredValueFromItem(vbht.Item{Key: key("a"), Value: []byte("secret"), SyncWrite: true}, 1, nil)
	item := sv.ToItemAbort()
	if item.Value != nil {
		t.Fatalf("expected aborted prepare to never surface its value, got %q", item.Value)
	}
}
