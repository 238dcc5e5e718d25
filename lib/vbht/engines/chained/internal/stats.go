package internal

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// Properties is a point-in-time snapshot of the handful of a stored
// value's properties that Stats cares about. A null ("no such value")
// snapshot is the zero value with Valid left false — used as the
// prologue for an insert or the epilogue for a removal.
type Properties struct {
	Valid             bool
	Size              int64 // value bytes + fixed overhead
	MetadataSize      int64
	UncompressedSize  int64
	DatatypeIdx       int // index into a 8-slot datatype_counts array
	Resident          bool
	Deleted           bool
	Temp              bool
	System            bool
	Prepared          bool
	Committed         bool // CommittedViaMutation or CommittedViaPrepare
}

// Stats is the eleven-dimension per-table stats vector, updated via the
// Prologue/Epilogue protocol described in the component this package
// backs (chained.HashTable). Every field except DatatypeCounts and
// MaxDeletedRevSeqno is an xsync.Counter: a sharded atomic counter,
// since these fields are written on every single mutation and read only
// for occasional diagnostic snapshots — exactly the access pattern a
// sharded counter is for.
type Stats struct {
	NumItems             *xsync.Counter
	NumDeletedItems      *xsync.Counter
	NumNonResidentItems  *xsync.Counter
	NumTempItems         *xsync.Counter
	NumSystemItems       *xsync.Counter
	NumPreparedSyncWrite *xsync.Counter

	CacheSize          *xsync.Counter
	MemSize            *xsync.Counter
	UncompressedMem    *xsync.Counter
	MetadataMemory     *xsync.Counter

	NumResizes      *xsync.Counter
	NumEjects       *xsync.Counter
	NumValueEjects  *xsync.Counter
	NumFailedEjects *xsync.Counter

	// DatatypeCounts is a fixed 8-slot array indexed by datatype bit
	// combination. Kept as plain atomics rather than xsync.Counters: it
	// is small and fixed-size, and Reset and Snapshot walk all eight
	// slots, which a sharded counter would only complicate (see
	// DESIGN.md).
	DatatypeCounts [8]atomic.Int64

	// MaxDeletedRevSeqno is a watermark, not a delta-tracked counter:
	// eviction under the Full policy advances it, never decrements it.
	MaxDeletedRevSeqno atomic.Uint64
}

// NewStats allocates a zeroed Stats vector.
func NewStats() *Stats {
	return &Stats{
		NumItems:             xsync.NewCounter(),
		NumDeletedItems:      xsync.NewCounter(),
		NumNonResidentItems:  xsync.NewCounter(),
		NumTempItems:         xsync.NewCounter(),
		NumSystemItems:       xsync.NewCounter(),
		NumPreparedSyncWrite: xsync.NewCounter(),
		CacheSize:            xsync.NewCounter(),
		MemSize:              xsync.NewCounter(),
		UncompressedMem:      xsync.NewCounter(),
		MetadataMemory:       xsync.NewCounter(),
		NumResizes:           xsync.NewCounter(),
		NumEjects:            xsync.NewCounter(),
		NumValueEjects:       xsync.NewCounter(),
		NumFailedEjects:      xsync.NewCounter(),
	}
}

func boolDelta(pre, post bool) int64 {
	var d int64
	if post {
		d++
	}
	if pre {
		d--
	}
	return d
}

// Apply runs the epilogue half of the prologue/epilogue protocol: given
// the pre-mutation and post-mutation snapshots, it applies the signed
// delta of each tracked category exactly once. A null pre snapshot
// (Valid == false) models an insert; a null post snapshot models a
// removal.
func (s *Stats) Apply(pre, post Properties) {
	s.CacheSize.Add(post.sizeOrZero() - pre.sizeOrZero())
	s.MemSize.Add(post.sizeOrZero() - pre.sizeOrZero())
	s.MetadataMemory.Add(post.metaOrZero() - pre.metaOrZero())
	s.UncompressedMem.Add(post.uncompressedOrZero() - pre.uncompressedOrZero())

	s.NumNonResidentItems.Add(boolDelta(pre.isNonResident(), post.isNonResident()))
	s.NumTempItems.Add(boolDelta(pre.Temp, post.Temp))
	s.NumItems.Add(boolDelta(pre.Valid && !pre.Temp, post.Valid && !post.Temp))
	s.NumSystemItems.Add(boolDelta(pre.System, post.System))
	s.NumPreparedSyncWrite.Add(boolDelta(pre.Valid && pre.Prepared, post.Valid && post.Prepared))
	s.NumDeletedItems.Add(boolDelta(pre.isTrackedDeleted(), post.isTrackedDeleted()))

	// datatype_counts: unconditional apply under a guard, not a net
	// delta — the old slot is decremented if the pre snapshot qualified,
	// the new slot incremented if the post snapshot qualifies, even if
	// old == new.
	if pre.qualifiesForDatatypeCount() {
		s.DatatypeCounts[pre.DatatypeIdx].Add(-1)
	}
	if post.qualifiesForDatatypeCount() {
		s.DatatypeCounts[post.DatatypeIdx].Add(1)
	}
}

func (p Properties) sizeOrZero() int64 {
	if !p.Valid {
		return 0
	}
	return p.Size
}

func (p Properties) metaOrZero() int64 {
	if !p.Valid {
		return 0
	}
	return p.MetadataSize
}

func (p Properties) uncompressedOrZero() int64 {
	if !p.Valid {
		return 0
	}
	return p.UncompressedSize
}

func (p Properties) isNonResident() bool {
	return p.Valid && !p.Resident && !p.Deleted && !p.Temp
}

func (p Properties) isTrackedDeleted() bool {
	return p.Deleted && !p.System && !p.Prepared
}

func (p Properties) qualifiesForDatatypeCount() bool {
	return p.Valid && !p.Temp && !p.Deleted && p.Committed
}

// Reset zeroes the item-count, size and datatype counters and the
// MaxDeletedRevSeqno watermark, used by HashTable.Clear. The event
// counters NumResizes, NumEjects, NumValueEjects and NumFailedEjects are
// not reset and keep accumulating across a Clear. xsync.Counter has no
// in-place reset, so the reset sharded counters are simply replaced with
// fresh ones rather than accumulating a compensating delta.
func (s *Stats) Reset() {
	s.NumItems = xsync.NewCounter()
	s.NumDeletedItems = xsync.NewCounter()
	s.NumNonResidentItems = xsync.NewCounter()
	s.NumTempItems = xsync.NewCounter()
	s.NumSystemItems = xsync.NewCounter()
	s.NumPreparedSyncWrite = xsync.NewCounter()
	s.CacheSize = xsync.NewCounter()
	s.MemSize = xsync.NewCounter()
	s.UncompressedMem = xsync.NewCounter()
	s.MetadataMemory = xsync.NewCounter()
	for i := range s.DatatypeCounts {
		s.DatatypeCounts[i].Store(0)
	}
	s.MaxDeletedRevSeqno.Store(0)
}

// Snapshot captures a read of every counter. Individual fields may be
// briefly inconsistent with each other — stats counters are deliberately
// relaxed atomics, not a locked aggregate (spec: "do not promote them to
// locked fields").
type Snapshot struct {
	NumItems, NumDeletedItems, NumNonResidentItems           int64
	NumTempItems, NumSystemItems, NumPreparedSyncWrite       int64
	CacheSize, MemSize, UncompressedMem, MetadataMemory      int64
	NumResizes, NumEjects, NumValueEjects, NumFailedEjects   int64
	DatatypeCounts                                           [8]int64
	MaxDeletedRevSeqno                                       uint64
}

func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		NumItems:             s.NumItems.Value(),
		NumDeletedItems:      s.NumDeletedItems.Value(),
		NumNonResidentItems:  s.NumNonResidentItems.Value(),
		NumTempItems:         s.NumTempItems.Value(),
		NumSystemItems:       s.NumSystemItems.Value(),
		NumPreparedSyncWrite: s.NumPreparedSyncWrite.Value(),
		CacheSize:            s.CacheSize.Value(),
		MemSize:              s.MemSize.Value(),
		UncompressedMem:      s.UncompressedMem.Value(),
		MetadataMemory:       s.MetadataMemory.Value(),
		NumResizes:           s.NumResizes.Value(),
		NumEjects:            s.NumEjects.Value(),
		NumValueEjects:       s.NumValueEjects.Value(),
		NumFailedEjects:      s.NumFailedEjects.Value(),
		MaxDeletedRevSeqno:   s.MaxDeletedRevSeqno.Load(),
	}
	for i := range s.DatatypeCounts {
		snap.DatatypeCounts[i] = s.DatatypeCounts[i].Load()
	}
	return snap
}
