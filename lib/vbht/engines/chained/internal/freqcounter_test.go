package internal

import "testing"

func TestGenerateFreqValueNeverExceedsSaturation(t *testing.T) {
	c := uint8(0)
	for i := 0; i < 1_000_000; i++ {
		c = GenerateFreqValue(c)
		if c > MaxFreqCounterValue {
			t.Fatalf("counter exceeded saturation: %d", c)
		}
	}
	if c != MaxFreqCounterValue {
		t.Fatalf("expected counter to saturate after a million increments, got %d", c)
	}
}

func TestGenerateFreqValueMonotonic(t *testing.T) {
	c := uint8(10)
	next := GenerateFreqValue(c)
	if next != c && next != c+1 {
		t.Fatalf("expected next to be current or current+1, got %d from %d", next, c)
	}
}

func TestUpdateFreqCounterReportsSaturationOnce(t *testing.T) {
	next, saturated := UpdateFreqCounter(MaxFreqCounterValue - 1)
	if next == MaxFreqCounterValue && !saturated {
		t.Fatalf("expected justSaturated=true on transition into saturation")
	}

	next, saturated = UpdateFreqCounter(MaxFreqCounterValue)
	if next != MaxFreqCounterValue || saturated {
		t.Fatalf("expected already-saturated counter to report no new saturation, got next=%d saturated=%v", next, saturated)
	}
}
