package chained

import (
	"github.com/golang/snappy"

	"github.com/kvengine/vbht/lib/vbht"
	"github.com/kvengine/vbht/lib/vbht/engines/chained/internal"
)

// fixedOverheadBytes approximates the metadata footprint of a
// StoredValue independent of its value bytes, used for metadata_memory
// accounting. It is a constant estimate rather than a reflect-based
// sizeof, matching the spirit (not the letter) of the source system's
// own fixed per-entry overhead constant.
const fixedOverheadBytes = 64

// StoredValue is C1: the owned record representing one logical
// key-version entry, field-for-field per the document this engine
// implements. The chain pointer (next) gives each bucket slot exclusive
// ownership of the head of a singly-linked chain; dropping the head
// transitively drops the chain, a plain Go pointer with no back-pointer.
type StoredValue struct {
	Key     vbht.Key
	keyHash uint64

	value []byte // possibly snappy-compressed; nil when non-resident
	// uncompressedLen caches the decompressed length so callers don't
	// have to decompress just to answer "how big is this logically".
	uncompressedLen uint32

	Cas      uint64
	RevSeqno uint64
	BySeqno  uint64
	Flags    uint32
	ExpTime  uint32
	LockTime uint32
	Datatype vbht.Datatype

	CommittedState vbht.CommittedState
	Deleted        bool
	DeleteSource   vbht.DeleteSource

	Resident     bool
	Dirty        bool
	TempItem     bool
	NewCacheItem bool

	FreqCounter uint8

	// insertSeq is only ever set by orderedFactory; unorderedFactory
	// leaves it at zero for every entry.
	insertSeq uint64

	next *StoredValue
}

// newStoredValueFromItem builds a StoredValue from an Item, the shape
// every StoredValueFactory variant shares.
func newStoredValueFromItem(item vbht.Item, keyHash uint64, next *StoredValue) *StoredValue {
	state := vbht.CommittedViaMutation
	if item.SyncWrite {
		if item.PreparedMaybeVisible {
			state = vbht.PreparedMaybeVisible
		} else {
			state = vbht.Pending
		}
	}

	sv := &StoredValue{
		Key:            item.Key,
		keyHash:        keyHash,
		Cas:            item.Cas,
		RevSeqno:       item.RevSeqno,
		BySeqno:        item.BySeqno,
		Flags:          item.Flags,
		ExpTime:        item.ExpTime,
		LockTime:       item.LockTime,
		Datatype:       item.Datatype,
		CommittedState: state,
		Deleted:        item.Deleted,
		DeleteSource:   item.DeleteSource,
		Resident:       true,
		next:           next,
	}
	sv.setValueBytes(item.Value)
	return sv
}

// copyStoredValue implements the factory's Copy operation, used by
// unlockedReplaceByCopy and by prepare-entry creation.
func copyStoredValue(src *StoredValue, next *StoredValue) *StoredValue {
	cp := *src
	cp.next = next
	if src.value != nil {
		cp.value = append([]byte(nil), src.value...)
	}
	return &cp
}

func (sv *StoredValue) setValueBytes(value []byte) {
	sv.value = value
	sv.uncompressedLen = uint32(len(value))
	if sv.Datatype.IsSnappy() && len(value) > 0 {
		if n, err := snappy.DecodedLen(value); err == nil {
			sv.uncompressedLen = uint32(n)
		}
	}
}

// SetValue replaces the value buffer in place, clears Deleted (a write
// over a tombstone resurrects the key), and marks the entry resident.
func (sv *StoredValue) SetValue(value []byte, datatype vbht.Datatype) {
	sv.Datatype = datatype
	sv.setValueBytes(value)
	sv.Resident = true
	sv.Deleted = false
}

// StoreCompressedBuffer snappy-compresses raw and stores the compressed
// bytes, setting the Snappy datatype bit.
func (sv *StoredValue) StoreCompressedBuffer(raw []byte, baseDatatype vbht.Datatype) {
	compressed := snappy.Encode(nil, raw)
	sv.Datatype = baseDatatype | vbht.DatatypeSnappy
	sv.value = compressed
	sv.uncompressedLen = uint32(len(raw))
	sv.Resident = true
	sv.Deleted = false
}

// UncompressedValueLen returns the logical (decompressed) value length
// without decompressing.
func (sv *StoredValue) UncompressedValueLen() int {
	return int(sv.uncompressedLen)
}

// ValueBytes returns the raw (possibly compressed) value bytes as
// stored. Inflate decompresses it if needed.
func (sv *StoredValue) ValueBytes() []byte { return sv.value }

// Inflate returns the logical value bytes, decompressing via snappy if
// the datatype's Snappy bit is set.
func (sv *StoredValue) Inflate() ([]byte, error) {
	if !sv.Datatype.IsSnappy() || len(sv.value) == 0 {
		return sv.value, nil
	}
	return snappy.Decode(nil, sv.value)
}

// EjectValue drops the value buffer while keeping key and metadata,
// used by unlockedEjectItem under the Value eviction policy.
func (sv *StoredValue) EjectValue() {
	sv.value = nil
	sv.Resident = false
}

// RestoreValue re-hydrates a non-resident entry from a backfilled Item.
// The frequency counter survives the eviction/restore round trip
// unchanged — it reflects the entry's access history, not its
// residency.
func (sv *StoredValue) RestoreValue(item vbht.Item) {
	sv.Datatype = item.Datatype
	sv.setValueBytes(item.Value)
	sv.Resident = true
	sv.TempItem = false
	sv.NewCacheItem = false
}

// RestoreMeta copies metadata from item into sv without touching value
// residency — used when only CAS/seqno/flags need reconciling against a
// warmed-up record.
func (sv *StoredValue) RestoreMeta(item vbht.Item) {
	sv.Cas = item.Cas
	sv.RevSeqno = item.RevSeqno
	sv.BySeqno = item.BySeqno
	sv.Flags = item.Flags
	sv.ExpTime = item.ExpTime
	sv.Datatype = item.Datatype
	sv.Deleted = item.Deleted
}

// Del applies a soft or hard delete. onlyMark keeps the value buffer (a
// tombstone with body); otherwise the buffer is cleared.
func (sv *StoredValue) Del(source vbht.DeleteSource, onlyMark bool) {
	sv.Deleted = true
	sv.DeleteSource = source
	if !onlyMark {
		sv.value = nil
		sv.uncompressedLen = 0
	}
}

// EligibleForEviction reports whether unlockedEjectItem may act on sv
// under the given policy. A prepare in flight, a dirty (not yet
// persisted) entry, or a temp placeholder are never eviction targets;
// the Value policy additionally requires the entry still be resident
// (nothing to drop otherwise).
func (sv *StoredValue) EligibleForEviction(policy vbht.EvictionPolicy) bool {
	if sv.TempItem || sv.CommittedState.IsPending() || sv.Dirty {
		return false
	}
	if policy == vbht.EvictionPolicyValue {
		return sv.Resident
	}
	return true
}

// ToItem converts sv into an Item boundary record for handing back to a
// caller. SyncWrite/PreparedMaybeVisible are derived from
// CommittedState so callers can't observe an inconsistent pair.
func (sv *StoredValue) ToItem() vbht.Item {
	item := vbht.Item{
		Key:          sv.Key,
		Value:        sv.value,
		Cas:          sv.Cas,
		RevSeqno:     sv.RevSeqno,
		BySeqno:      sv.BySeqno,
		Flags:        sv.Flags,
		ExpTime:      sv.ExpTime,
		LockTime:     sv.LockTime,
		Datatype:     sv.Datatype,
		Deleted:      sv.Deleted,
		DeleteSource: sv.DeleteSource,
	}
	if sv.CommittedState.IsPending() {
		item.SyncWrite = true
		item.PreparedMaybeVisible = sv.CommittedState == vbht.PreparedMaybeVisible
	}
	return item
}

// ToItemAbort converts a pending sv into the Item a caller hands to its
// sync-write abort path: same fields as ToItem but with Value always
// nil, since an aborted prepare's body is never meant to become
// visible.
func (sv *StoredValue) ToItemAbort() vbht.Item {
	item := sv.ToItem()
	item.Value = nil
	return item
}

// properties snapshots the fields Stats.Apply needs, for the
// prologue/epilogue bracket around a mutation.
func (sv *StoredValue) properties() internal.Properties {
	return internal.Properties{
		Valid:            true,
		Size:             int64(len(sv.value)) + fixedOverheadBytes,
		MetadataSize:     fixedOverheadBytes,
		UncompressedSize: int64(sv.uncompressedLen),
		DatatypeIdx:      int(sv.Datatype),
		Resident:         sv.Resident,
		Deleted:          sv.Deleted,
		Temp:             sv.TempItem,
		System:           sv.Key.IsSystem(),
		Prepared:         sv.CommittedState.IsPending(),
		Committed:        sv.CommittedState.IsCommitted(),
	}
}

// nullProperties is the "no such value" snapshot used as the prologue
// for an insert or the epilogue for a removal.
func nullProperties() internal.Properties { return internal.Properties{} }
