// Package stats provides the adaptive per-signal statistics used by the
// anomaly engine: exponentially weighted mean/variance, z-score
// normalization, run-length counting and a bounded recent-value window.
package stats

import "math"

// EWMA tracks an exponentially weighted moving mean and variance.
// Until the first observation both estimates are unset; the first sample
// seeds the mean and a zero variance.
type EWMA struct {
	alpha    float64
	mean     float64
	variance float64
	seeded   bool
}

// NewEWMA creates a tracker with the given adaptation rate. Alpha must be
// in (0,1); callers are expected to validate it via the config layer.
func NewEWMA(alpha float64) *EWMA {
	return &EWMA{alpha: alpha}
}

// Update feeds one observation and returns the updated mean and variance.
// The variance residual is computed against the pre-update mean: it measures
// surprise relative to the prediction in force when the sample arrived.
func (e *EWMA) Update(value float64) (mean, variance float64) {
	if !e.seeded {
		e.mean = value
		e.variance = 0
		e.seeded = true
		return e.mean, e.variance
	}
	prev := e.mean
	e.mean = e.alpha*value + (1-e.alpha)*e.mean
	resid := value - prev
	e.variance = e.alpha*(resid*resid) + (1-e.alpha)*e.variance
	return e.mean, e.variance
}

// Seeded reports whether at least one observation has been recorded.
func (e *EWMA) Seeded() bool { return e.seeded }

// Mean returns the current mean estimate (zero before the first sample).
func (e *EWMA) Mean() float64 { return e.mean }

// Variance returns the current variance estimate (zero before the first sample).
func (e *EWMA) Variance() float64 { return e.variance }

// ZScore normalizes value against the supplied mean and variance. Epsilon
// keeps the denominator positive at stream start when the variance is
// still zero, so the score is defined from the very first sample.
func ZScore(value, mean, variance, epsilon float64) float64 {
	return (value - mean) / math.Sqrt(variance+epsilon)
}
