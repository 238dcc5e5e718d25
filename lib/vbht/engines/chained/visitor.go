package chained

// VisitAction is returned by a ContentVisitor after each StoredValue it
// sees, telling PauseResumeVisit whether to keep going or stop early.
type VisitAction int

const (
	// VisitContinue advances to the next StoredValue/bucket.
	VisitContinue VisitAction = iota
	// VisitPause stops the scan; PauseResumeVisit returns a Position
	// the caller can resume from later.
	VisitPause
)

// ContentVisitor receives one (bucket index, StoredValue) pair at a
// time. Used for eviction scans, expiry, checkpoint GC, and backfill
// feeding.
type ContentVisitor interface {
	// SetUpHashBucketVisit is called once per bucket, before any of its
	// chain's entries are visited, with that bucket's lock already
	// held.
	SetUpHashBucketVisit()
	// Visit is called once per StoredValue in the current bucket's
	// chain.
	Visit(bucket int, sv *StoredValue) VisitAction
	// TearDownHashBucketVisit is called once per bucket, after its
	// chain has been visited (or the visitor paused partway through
	// it), with the bucket's lock still held.
	TearDownHashBucketVisit()
}

// DepthVisitor receives (bucketIdx, chainDepth, bytes) once per bucket,
// after that bucket's entire chain has been walked. Used for
// diagnostic sizing rather than per-item processing.
type DepthVisitor interface {
	VisitDepth(bucketIdx, depth int, bytes int64)
}

// Position identifies where a pause-resumable visit left off:
// (ht_size_observed, lock_idx, hash_bucket_idx). EndPosition(ht) is the
// sentinel meaning "scan complete".
type Position struct {
	Size       int
	Lock       int
	HashBucket int
}

// EndPosition returns the sentinel position signaling scan completion
// for a table of the given size/lock count.
func EndPosition(size, numLocks int) Position {
	return Position{Size: size, Lock: numLocks, HashBucket: size}
}

// IsEnd reports whether pos is the end sentinel for a table of the
// given size/lock count.
func (pos Position) IsEnd(size, numLocks int) bool {
	return pos == EndPosition(size, numLocks)
}

// visitorTracker registers this visit with the table's visitors-in-flight
// gate by acquiring any one stripe lock, incrementing the counter, then
// releasing — the same interlock resize() checks before proceeding.
func (ht *HashTable) visitorTrackerRegister() {
	ht.locks.LockByIndex(0)
	ht.visitorsInFlight.Add(1)
	ht.locks.UnlockByIndex(0)
}

func (ht *HashTable) visitorTrackerRelease() {
	ht.visitorsInFlight.Add(-1)
}

// PauseResumeVisit walks the table outer-by-lock, inner-by-bucket
// (bucket = lock + k*numLocks), acquiring and releasing each bucket's
// stripe lock individually so writers see bounded latency rather than
// one long-held lock. If visitor.Visit returns VisitPause, the scan
// stops and the returned Position resumes at the *next* bucket — chain
// position within a bucket is never preserved across a pause.
func (ht *HashTable) PauseResumeVisit(visitor ContentVisitor, startPos Position) Position {
	ht.visitorTrackerRegister()
	defer ht.visitorTrackerRelease()

	size := ht.Size()
	numLocks := ht.NumLocks()

	startLock := 0
	if startPos.Size == size && startPos.Lock >= 0 && startPos.Lock < numLocks {
		startLock = startPos.Lock
	}

	for lock := startLock; lock < numLocks; lock++ {
		startBucket := lock
		if lock == startLock && startPos.Size == size && startPos.HashBucket < size && startPos.HashBucket >= lock {
			startBucket = startPos.HashBucket
		}

		for bucket := startBucket; bucket < size; bucket += numLocks {
			ht.locks.LockByIndex(lock)
			paused := ht.visitBucketChain(visitor, bucket)
			ht.locks.UnlockByIndex(lock)

			if paused {
				next := bucket + numLocks
				if next >= size {
					// This lock's buckets are done; HashBucket == size makes
					// the next call start lock+1 from its first bucket, and
					// after the last lock this equals EndPosition.
					return Position{Size: size, Lock: lock + 1, HashBucket: size}
				}
				return Position{Size: size, Lock: lock, HashBucket: next}
			}
		}
	}

	return EndPosition(size, numLocks)
}

// visitBucketChain walks bucket's chain under its already-held stripe
// lock, returning true if the visitor paused partway through.
func (ht *HashTable) visitBucketChain(visitor ContentVisitor, bucket int) bool {
	visitor.SetUpHashBucketVisit()
	defer visitor.TearDownHashBucketVisit()

	for sv := ht.buckets[bucket]; sv != nil; {
		next := sv.next
		if visitor.Visit(bucket, sv) == VisitPause {
			return true
		}
		sv = next
	}
	return false
}

// VisitAllDepth walks every bucket once, under its stripe lock,
// reporting (bucketIdx, chainDepth, totalBytes) to visitor. Unlike
// PauseResumeVisit this is not pause-resumable — it is meant for
// one-shot diagnostic sizing passes.
func (ht *HashTable) VisitAllDepth(visitor DepthVisitor) {
	ht.visitorTrackerRegister()
	defer ht.visitorTrackerRelease()

	size := ht.Size()
	numLocks := ht.NumLocks()

	for lock := 0; lock < numLocks; lock++ {
		for bucket := lock; bucket < size; bucket += numLocks {
			ht.locks.LockByIndex(lock)
			depth := 0
			var bytes int64
			for sv := ht.buckets[bucket]; sv != nil; sv = sv.next {
				depth++
				bytes += int64(len(sv.value)) + fixedOverheadBytes
			}
			ht.locks.UnlockByIndex(lock)
			visitor.VisitDepth(bucket, depth, bytes)
		}
	}
}
