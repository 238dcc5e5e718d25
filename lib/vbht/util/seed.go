// Package util collects small pieces used by the hash-table engine but
// not specific to it: seed generation, key hashing, a chain-depth
// histogram, an eviction-candidate priority queue, and a lock-free wake
// queue. None of these are hash-table internals, so they live in a
// sibling package rather than folding into the engine itself.
package util

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// GenerateSeed produces a non-cryptographic seed suitable for hash
// distribution and for HashTable.GetRandomKey's starting bucket choice
// (spec Open Question (b): no uniformity guarantee across skewed
// chains, seed supplied by the caller rather than a package global so
// tests can pin it).
func GenerateSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}
