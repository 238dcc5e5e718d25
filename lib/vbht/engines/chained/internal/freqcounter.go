// Package internal holds the hash-table's low-level engine guts: the
// probabilistic frequency counter, the prologue/epilogue stats vector,
// and the striped mutex array. None of these are part of the table's
// public contract (lib/vbht/engines/chained exports StoredValue,
// HashTable, Factory and the visitor types instead).
package internal

import "math/rand"

// IncFactor tunes how quickly the counter approaches saturation. At
// 0.012 an 8-bit counter saturates in roughly 65,000 increments,
// mimicking a 16-bit counter's dynamic range in a single byte. This is
// a measured constant from the system this engine's frequency counter
// is modeled on; changing it changes eviction behavior and must be
// re-tuned empirically, not adjusted casually.
const IncFactor = 0.012

// MaxFreqCounterValue is the saturation point. Reaching it fires the
// saturation callback exactly once per transition into saturation.
const MaxFreqCounterValue uint8 = 255

// GenerateFreqValue returns the next counter value given the current
// one: with probability 1/(1 + IncFactor*current) it returns current+1,
// otherwise it returns current unchanged. A counter already at
// MaxFreqCounterValue never increments further.
func GenerateFreqValue(current uint8) uint8 {
	if current >= MaxFreqCounterValue {
		return MaxFreqCounterValue
	}
	probability := 1.0 / (1.0 + IncFactor*float64(current))
	if rand.Float64() < probability {
		return current + 1
	}
	return current
}

// UpdateFreqCounter advances sv's counter by one probabilistic step and
// reports whether this call caused the counter to transition into
// saturation (current < max, next == max) — the caller uses that signal
// to fire the saturation callback exactly once.
func UpdateFreqCounter(current uint8) (next uint8, justSaturated bool) {
	next = GenerateFreqValue(current)
	justSaturated = next == MaxFreqCounterValue && current != MaxFreqCounterValue
	return next, justSaturated
}
