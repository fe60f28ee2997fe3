package hrv

import "math"

// FilterOptions bound what counts as a usable inter-beat interval.
type FilterOptions struct {
	MinIBI   float64
	MaxIBI   float64
	MaxDelta float64
}

// DefaultFilterOptions models a plausible human range of roughly 30-200 BPM.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{MinIBI: 300, MaxIBI: 2000, MaxDelta: 500}
}

// FilterIBIs drops implausible intervals from a time-ordered sequence.
// Rule 1 rejects values outside [MinIBI, MaxIBI]. Rule 2 rejects values
// whose jump from the previously *retained* value exceeds MaxDelta, which
// discards sudden artifacts while tolerating gradual drift. The function is
// deterministic, order-preserving and idempotent; callers sort by timestamp
// first.
func FilterIBIs(ibis []float64, opts FilterOptions) []float64 {
	filtered := make([]float64, 0, len(ibis))
	for _, ibi := range ibis {
		if ibi < opts.MinIBI || ibi > opts.MaxIBI {
			continue
		}
		if n := len(filtered); n > 0 && math.Abs(ibi-filtered[n-1]) > opts.MaxDelta {
			continue
		}
		filtered = append(filtered, ibi)
	}
	return filtered
}

// RMSSD computes the root mean square of successive differences over a
// filtered, time-ordered IBI sequence. Fewer than two samples yield 0.
func RMSSD(ibis []float64) float64 {
	if len(ibis) < 2 {
		return 0
	}

	var sum float64
	for i := 1; i < len(ibis); i++ {
		d := ibis[i] - ibis[i-1]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(ibis)-1))
}
