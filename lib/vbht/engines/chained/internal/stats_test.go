package internal

import "testing"

func TestStatsInsertAndDelete(t *testing.T) {
	s := NewStats()

	insert := Properties{
		Valid: true, Size: 100, MetadataSize: 20, UncompressedSize: 100,
		Resident: true, Committed: true, DatatypeIdx: 0,
	}
	s.Apply(Properties{}, insert)

	snap := s.Snapshot()
	if snap.NumItems != 1 {
		t.Fatalf("expected NumItems=1, got %d", snap.NumItems)
	}
	if snap.CacheSize != 100 || snap.MemSize != 100 {
		t.Fatalf("expected size=100, got cache=%d mem=%d", snap.CacheSize, snap.MemSize)
	}
	if snap.DatatypeCounts[0] != 1 {
		t.Fatalf("expected datatype slot 0 to be 1, got %d", snap.DatatypeCounts[0])
	}

	// Delete: epilogue is a null snapshot.
	s.Apply(insert, Properties{})
	snap = s.Snapshot()
	if snap.NumItems != 0 {
		t.Fatalf("expected NumItems=0 after delete, got %d", snap.NumItems)
	}
	if snap.CacheSize != 0 {
		t.Fatalf("expected CacheSize=0 after delete, got %d", snap.CacheSize)
	}
	if snap.DatatypeCounts[0] != 0 {
		t.Fatalf("expected datatype slot 0 back to 0, got %d", snap.DatatypeCounts[0])
	}
}

func TestStatsEvictionTracksNonResident(t *testing.T) {
	s := NewStats()

	resident := Properties{Valid: true, Size: 50, Resident: true, Committed: true}
	s.Apply(Properties{}, resident)

	nonResident := resident
	nonResident.Resident = false
	nonResident.Size = 0 // value bytes dropped

	s.Apply(resident, nonResident)

	snap := s.Snapshot()
	if snap.NumNonResidentItems != 1 {
		t.Fatalf("expected NumNonResidentItems=1, got %d", snap.NumNonResidentItems)
	}
	if snap.NumItems != 1 {
		t.Fatalf("expected item to still be counted as present, got %d", snap.NumItems)
	}
	if snap.CacheSize != 0 {
		t.Fatalf("expected cache size to drop to 0, got %d", snap.CacheSize)
	}
}

func TestStatsDeletedExcludesSystemAndPrepared(t *testing.T) {
	s := NewStats()

	systemDeleted := Properties{Valid: true, Deleted: true, System: true}
	s.Apply(Properties{}, systemDeleted)
	if s.Snapshot().NumDeletedItems != 0 {
		t.Fatalf("expected system deletes to be excluded from NumDeletedItems")
	}

	userDeleted := Properties{Valid: true, Deleted: true}
	s.Apply(Properties{}, userDeleted)
	if s.Snapshot().NumDeletedItems != 1 {
		t.Fatalf("expected user delete to count")
	}
}

func TestStatsResetReplacesCounters(t *testing.T) {
	s := NewStats()
	s.Apply(Properties{}, Properties{Valid: true, Size: 10, Committed: true})
	s.Reset()
	snap := s.Snapshot()
	if snap.NumItems != 0 || snap.CacheSize != 0 {
		t.Fatalf("expected reset stats to be zero, got %+v", snap)
	}
}
