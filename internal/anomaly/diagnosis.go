package anomaly

import "fmt"

// Oscillation heuristic: with at least this many recent samples, the bed
// diagnosis checks whether adjacent first differences keep flipping sign.
const (
	oscillationMinSamples = 20
	oscillationFraction   = 0.35
)

// Diagnosis is a human-actionable reading of one anomalous sample: a short
// message and a fixed, ordered list of suggested interventions.
type Diagnosis struct {
	Message     string
	Suggestions []string
}

// diagnose produces the diagnosis for a signal of the given class. recent
// holds the trailing window of raw values, oldest first; only the bed class
// consults it.
func diagnose(class SignalClass, signal string, z float64, recent []float64) Diagnosis {
	switch class {
	case ClassFlow:
		if z < 0 {
			return Diagnosis{
				Message: "Possible under-extrusion (flow low).",
				Suggestions: []string{
					"Increase nozzle temp +5 °C",
					"Reduce print speed −10%",
					"Check for partial clog / filament path",
				},
			}
		}
		return Diagnosis{
			Message: "Possible over-extrusion (flow high).",
			Suggestions: []string{
				"Reduce extrusion multiplier −5–10%",
				"Lower nozzle temp −5 °C if over-melting",
			},
		}

	case ClassHotendTemp:
		if z < 0 {
			return Diagnosis{
				Message: "Nozzle temp below trend (heater lag / draft).",
				Suggestions: []string{
					"Raise nozzle temp +3–5 °C",
					"Reduce fan / shield from drafts",
					"Check heater PID / power",
				},
			}
		}
		return Diagnosis{
			Message: "Nozzle temp above trend.",
			Suggestions: []string{
				"Lower nozzle temp −3–5 °C",
				"Verify fan RPM / PID gains",
			},
		}

	case ClassBedTemp:
		if oscillating(recent) {
			return Diagnosis{
				Message: "Bed temp oscillating (PID/drafts).",
				Suggestions: []string{
					"Tune bed PID",
					"Cover enclosure / reduce drafts",
					"Allow more warm-up time",
				},
			}
		}
		return Diagnosis{
			Message: fmt.Sprintf("Bed temp %s vs trend.", highLow(z)),
			Suggestions: []string{
				"Adjust bed temp ±3 °C",
				"Check enclosure / drafts / PID",
			},
		}

	case ClassSpeed:
		if z > 0 {
			return Diagnosis{
				Message: "Print speed above trend (could trigger flow/adhesion issues).",
				Suggestions: []string{
					"Consider −10% speed",
					"Verify extrusion keeps up",
				},
			}
		}
		return Diagnosis{
			Message: "Print speed below trend.",
			Suggestions: []string{
				"Check if speed reductions are intentional",
				"Re-balance temp vs. speed",
			},
		}

	default:
		return Diagnosis{
			Message:     fmt.Sprintf("%s %s vs expected.", signal, highLow(z)),
			Suggestions: []string{"Inspect recent changes"},
		}
	}
}

// oscillating reports whether the window's first differences change sign in
// more than oscillationFraction of adjacent pairs. Distinguishes a bed that
// is hunting around its setpoint from one drifting steadily away.
func oscillating(recent []float64) bool {
	if len(recent) < oscillationMinSamples {
		return false
	}
	diffs := make([]float64, len(recent)-1)
	for i := 1; i < len(recent); i++ {
		diffs[i-1] = recent[i] - recent[i-1]
	}
	signChanges := 0
	for i := 1; i < len(diffs); i++ {
		if diffs[i-1]*diffs[i] < 0 {
			signChanges++
		}
	}
	return float64(signChanges) > float64(len(diffs))*oscillationFraction
}

func highLow(z float64) string {
	if z > 0 {
		return "high"
	}
	return "low"
}
