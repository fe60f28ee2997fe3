package hrv

import (
	"math"
	"testing"
)

func TestRMSSDFewSamples(t *testing.T) {
	if RMSSD(nil) != 0 {
		t.Fatalf("expected 0 for empty sequence")
	}
	if RMSSD([]float64{800}) != 0 {
		t.Fatalf("expected 0 for single sample")
	}
}

func TestRMSSDKnownValue(t *testing.T) {
	// sqrt(((820-800)^2 + (810-820)^2) / 2) = sqrt(250)
	got := RMSSD([]float64{800, 820, 810})
	want := math.Sqrt(250)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("rmssd = %v, want %v", got, want)
	}
	if math.Abs(got-15.81) > 0.01 {
		t.Fatalf("rmssd = %v, expected about 15.81", got)
	}
}

func TestFilterDropsOutOfRange(t *testing.T) {
	opts := DefaultFilterOptions()
	got := FilterIBIs([]float64{100, 800, 2500, 820}, opts)
	want := []float64{800, 820}
	if len(got) != len(want) {
		t.Fatalf("filtered = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("filtered = %v, want %v", got, want)
		}
	}
}

func TestFilterBelowMinimumAlwaysDropped(t *testing.T) {
	got := FilterIBIs([]float64{100}, DefaultFilterOptions())
	if len(got) != 0 {
		t.Fatalf("expected 100ms IBI dropped regardless of context, got %v", got)
	}
}

func TestFilterDeltaAgainstRetained(t *testing.T) {
	opts := DefaultFilterOptions()
	// 1900 jumps 1100 from retained 800 and is dropped; 820 is then compared
	// against 800, not 1900, and kept.
	got := FilterIBIs([]float64{800, 1900, 820}, opts)
	want := []float64{800, 820}
	if len(got) != len(want) || got[0] != 800 || got[1] != 820 {
		t.Fatalf("filtered = %v, want %v", got, want)
	}
}

func TestFilterIdempotent(t *testing.T) {
	opts := DefaultFilterOptions()
	in := []float64{100, 800, 1900, 820, 810, 2500, 790}
	once := FilterIBIs(in, opts)
	twice := FilterIBIs(once, opts)
	if len(once) != len(twice) {
		t.Fatalf("filter not idempotent: %v vs %v", once, twice)
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("filter not idempotent: %v vs %v", once, twice)
		}
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	got := FilterIBIs([]float64{900, 850, 800}, DefaultFilterOptions())
	if len(got) != 3 || got[0] != 900 || got[1] != 850 || got[2] != 800 {
		t.Fatalf("expected order preserved, got %v", got)
	}
}
