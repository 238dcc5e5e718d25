package util

import "testing"

func TestDepthHistogramBasics(t *testing.T) {
	h := NewDepthHistogram()
	for _, depth := range []int{0, 1, 1, 3, 9, 500} {
		h.AddSample(depth)
	}

	if h.Count() != 6 {
		t.Fatalf("expected 6 samples, got %d", h.Count())
	}

	avg := h.AverageDepth()
	want := (0.0 + 1 + 1 + 3 + 9 + 500) / 6.0
	if avg != want {
		t.Fatalf("expected average %v, got %v", want, avg)
	}

	ratio := h.MaxBoundaryExceededRatio()
	if ratio <= 0 {
		t.Fatalf("expected overflow bucket to have the 500-depth sample, got ratio %v", ratio)
	}
}

func TestDepthHistogramReset(t *testing.T) {
	h := NewDepthHistogram()
	h.AddSample(5)
	h.Reset()
	if h.Count() != 0 {
		t.Fatalf("expected reset to clear count")
	}
	if h.AverageDepth() != 0 {
		t.Fatalf("expected reset to clear average")
	}
}

func TestHashKeyDeterministic(t *testing.T) {
	a := HashKey([]byte("hello"), 0, 42)
	b := HashKey([]byte("hello"), 0, 42)
	if a != b {
		t.Fatalf("expected deterministic hash for identical inputs")
	}

	c := HashKey([]byte("hello"), 1, 42)
	if a == c {
		t.Fatalf("expected different collection ids to change the hash")
	}
}
