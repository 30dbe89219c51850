package anomaly

import (
	"time"

	"printwatch/internal/telemetry"
)

// dedupKey identifies a stream of equivalent emissions. Severity is part of
// the key, so a WARN escalating to ALERT is reported even inside the WARN
// cooldown.
type dedupKey struct {
	severity  telemetry.Severity
	signal    string
	direction Direction
}

// emissionGate rate-limits repeats of the same anomaly. It tracks only
// emission times; suppression has no effect on detection state.
type emissionGate struct {
	cooldown time.Duration
	lastEmit map[dedupKey]time.Time
}

func newEmissionGate(cooldown time.Duration) *emissionGate {
	return &emissionGate{
		cooldown: cooldown,
		lastEmit: make(map[dedupKey]time.Time),
	}
}

// shouldEmit reports whether the key is outside its cooldown and, if so,
// stamps it with now. The first emission for a key always passes. An
// elapsed time exactly equal to the cooldown passes.
func (g *emissionGate) shouldEmit(key dedupKey, now time.Time) bool {
	if last, seen := g.lastEmit[key]; seen && now.Sub(last) < g.cooldown {
		return false
	}
	g.lastEmit[key] = now
	return true
}
