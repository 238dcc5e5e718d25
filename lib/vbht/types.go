package vbht

// --------------------------------------------------------------------------
// Key
// --------------------------------------------------------------------------

// Key identifies a document within a single vbucket. Equality is
// byte-equality of Bytes plus CollectionID (spec: "equality is
// byte-equality of key + collection").
type Key struct {
	Bytes        []byte
	CollectionID uint32
}

// Equal reports whether two keys refer to the same document.
func (k Key) Equal(other Key) bool {
	if k.CollectionID != other.CollectionID || len(k.Bytes) != len(other.Bytes) {
		return false
	}
	for i := range k.Bytes {
		if k.Bytes[i] != other.Bytes[i] {
			return false
		}
	}
	return true
}

// IsSystem reports whether the key falls in the reserved system
// collection namespace. Collection id 0 is the default collection;
// ids in [1, 7] are reserved for system collections, mirroring the
// ep-engine convention that system collections occupy a small reserved
// id range below user collection ids.
func (k Key) IsSystem() bool {
	return k.CollectionID >= 1 && k.CollectionID <= 7
}

// --------------------------------------------------------------------------
// Datatype
// --------------------------------------------------------------------------

// Datatype is a bitset describing a value's payload encoding.
type Datatype uint8

const (
	DatatypeRaw    Datatype = 0
	DatatypeJSON   Datatype = 1 << 0
	DatatypeSnappy Datatype = 1 << 1
	DatatypeXattr  Datatype = 1 << 2
)

func (d Datatype) IsSnappy() bool { return d&DatatypeSnappy != 0 }

// --------------------------------------------------------------------------
// CommittedState
// --------------------------------------------------------------------------

// CommittedState classifies a stored value along the two-phase
// sync-write (Prepare/Commit) axis.
type CommittedState uint8

const (
	CommittedViaMutation CommittedState = iota
	CommittedViaPrepare
	Pending
	PreparedMaybeVisible
)

func (s CommittedState) IsCommitted() bool {
	return s == CommittedViaMutation || s == CommittedViaPrepare
}

func (s CommittedState) IsPending() bool {
	return s == Pending || s == PreparedMaybeVisible
}

func (s CommittedState) String() string {
	switch s {
	case CommittedViaMutation:
		return "CommittedViaMutation"
	case CommittedViaPrepare:
		return "CommittedViaPrepare"
	case Pending:
		return "Pending"
	case PreparedMaybeVisible:
		return "PreparedMaybeVisible"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// DeleteSource
// --------------------------------------------------------------------------

type DeleteSource uint8

const (
	DeleteSourceExplicit DeleteSource = iota
	DeleteSourceTTL
)

// --------------------------------------------------------------------------
// EvictionPolicy
// --------------------------------------------------------------------------

// EvictionPolicy selects what unlockedEjectItem drops: just the value
// buffer (Value) or the whole entry (Full).
type EvictionPolicy uint8

const (
	EvictionPolicyValue EvictionPolicy = iota
	EvictionPolicyFull
)

// --------------------------------------------------------------------------
// Item
// --------------------------------------------------------------------------

// Item is the input/output record exchanged across the hash table's
// boundary: front-end mutations build an Item to pass to Set/Delete,
// and reads hand one back.
type Item struct {
	Key      Key
	Value    []byte
	Cas      uint64
	RevSeqno uint64
	BySeqno  uint64
	Flags    uint32
	ExpTime  uint32
	LockTime uint32
	Datatype Datatype

	Deleted      bool
	DeleteSource DeleteSource

	// SyncWrite marks this Item as a prepare: a mutation that must
	// coexist with (not replace) any already-committed entry for the
	// same key, per spec invariant 2.
	SyncWrite bool

	// PreparedMaybeVisible, when SyncWrite is also set, selects the
	// PreparedMaybeVisible committed-state over plain Pending: the
	// resulting entry shadows reads of the committed value instead of
	// being invisible to them (spec scenario 3).
	PreparedMaybeVisible bool
}

// --------------------------------------------------------------------------
// Snapshot
// --------------------------------------------------------------------------

// Snapshot is the engine-agnostic read of an Engine's §4.3 stats
// vector: a copy of every internal.Stats.Snapshot field, exposed across
// package boundaries, since the internal package cannot be imported
// outside its own tree.
type Snapshot struct {
	NumItems, NumDeletedItems, NumNonResidentItems         int64
	NumTempItems, NumSystemItems, NumPreparedSyncWrite     int64
	CacheSize, MemSize, UncompressedMem, MetadataMemory    int64
	NumResizes, NumEjects, NumValueEjects, NumFailedEjects int64
	DatatypeCounts                                         [8]int64
	MaxDeletedRevSeqno                                     uint64
}

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

// Engine is the surface any HashTable implementation must expose to be
// driven by the shared htesting battery. chained.HashTable satisfies
// this today; a future alternate engine (e.g. a sharded variant) would
// too, with no change to the tests that exercise it.
type Engine interface {
	SetItem(item Item) (Item, error)
	GetItem(key Key) (Item, bool)
	DeleteItem(key Key) error
	PurgeItem(key Key) error
	EvictItem(key Key, policy EvictionPolicy) bool

	Size() int
	Resize()
	ResizeTo(newSize int)

	Stats() Snapshot
}
