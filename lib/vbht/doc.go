// Package vbht defines the boundary types shared between a hash-table
// engine and its collaborators: the document record (Item), the key
// type, the small closed set of datatype/committed-state/delete-source
// enums carried on every stored value, and the error kinds an engine
// surfaces back to a caller.
//
// This package holds no hash-table implementation of its own. The
// concrete engine lives in lib/vbht/engines/chained; this package exists
// so that engine package, the shared test harness in lib/vbht/htesting,
// and any future alternate engine can agree on one vocabulary without
// importing each other.
//
// Related Packages:
//   - lib/vbht/engines/chained: the chaining hash-table engine itself.
//   - lib/vbht/htesting: an engine-agnostic test battery driven against
//     any constructor that produces a *chained.HashTable-shaped engine.
//   - lib/vbht/util: small adapted utilities (hashing, histograms, the
//     eviction-candidate heap, the lock-free wake queue) used by the
//     engine but useful standalone.
package vbht
