package stats

import "math"

// RunLength counts consecutive samples whose |z| stays at or above a
// threshold. It catches sustained moderate drift that individually never
// crosses the stricter alert magnitude.
type RunLength struct {
	threshold float64
	count     int
}

// NewRunLength creates a counter with the given magnitude threshold,
// normally the warn-level z threshold.
func NewRunLength(threshold float64) *RunLength {
	return &RunLength{threshold: threshold}
}

// Update feeds one z-score and returns the running count: incremented when
// |z| >= threshold, reset to zero otherwise.
func (r *RunLength) Update(z float64) int {
	if math.Abs(z) >= r.threshold {
		r.count++
	} else {
		r.count = 0
	}
	return r.count
}

// Count returns the current run length.
func (r *RunLength) Count() int { return r.count }
