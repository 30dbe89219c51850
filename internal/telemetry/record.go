// Package telemetry defines the line-oriented wire formats flowing through
// the pipeline: input records from the data source and the anomaly events
// and control advisories produced by the watch engine.
package telemetry

import "encoding/json"

// Record is one telemetry sample as produced by the data source: a
// wall-clock timestamp, elapsed seconds since stream start, and a map of
// signal readings. Sources may attach provenance fields (layer index,
// active fault tags); the engine ignores anything it does not monitor.
//
// Signal values are decoded leniently: a record carrying a non-numeric
// value for one signal must still be usable for every other signal, so the
// map holds raw decoded JSON and Value performs per-signal coercion.
type Record struct {
	Timestamp  string         `json:"ts"`
	ElapsedSec float64        `json:"t_sec"`
	Signals    map[string]any `json:"signals"`
}

// Value returns the named signal as a float64. The second result is false
// when the signal is absent or its value is not numeric; callers skip that
// signal and continue with the rest of the record.
func (r *Record) Value(name string) (float64, bool) {
	raw, ok := r.Signals[name]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Severity is the discrete anomaly tier attached to an event.
type Severity string

const (
	// SeverityWarn marks a soft anomaly: magnitude beyond the warn
	// threshold but below the alert threshold.
	SeverityWarn Severity = "WARN"
	// SeverityAlert marks a strong anomaly: magnitude beyond the alert
	// threshold or a sustained run of warn-level deviation.
	SeverityAlert Severity = "ALERT"
)

// Event is one emitted anomaly, serialized as a single JSON line.
// Timestamp fields are copied verbatim from the triggering record.
type Event struct {
	Timestamp   string   `json:"ts"`
	ElapsedSec  float64  `json:"t_sec"`
	Severity    Severity `json:"severity"`
	Signal      string   `json:"signal"`
	Value       float64  `json:"value"`
	ZScore      float64  `json:"zscore"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
}

// PausePrint is the only control action the engine issues. It is advisory:
// downstream tooling decides whether to act on it.
const PausePrint = "PAUSE_PRINT"

// ControlAction is a secondary advisory emitted immediately after select
// severe events, as its own JSON line.
type ControlAction struct {
	Timestamp  string  `json:"ts"`
	ElapsedSec float64 `json:"t_sec"`
	Action     string  `json:"control_action"`
	Reason     string  `json:"reason"`
}
