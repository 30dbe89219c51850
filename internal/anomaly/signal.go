// Package anomaly implements the per-signal detection engine: adaptive
// statistics, severity classification, diagnosis generation, and emission
// de-duplication over a stream of telemetry records.
package anomaly

import "fmt"

// SignalClass selects the diagnosis family for a monitored signal. The set
// is closed: configuration maps signal names to classes up front, and an
// unrecognized class name is a construction error, not a runtime fallback.
type SignalClass int

const (
	ClassGeneric SignalClass = iota
	ClassFlow
	ClassHotendTemp
	ClassBedTemp
	ClassSpeed
)

var classNames = map[string]SignalClass{
	"generic":     ClassGeneric,
	"flow":        ClassFlow,
	"hotend_temp": ClassHotendTemp,
	"bed_temp":    ClassBedTemp,
	"speed":       ClassSpeed,
}

// ParseSignalClass maps a configuration class name to its SignalClass.
func ParseSignalClass(name string) (SignalClass, error) {
	c, ok := classNames[name]
	if !ok {
		return ClassGeneric, fmt.Errorf("unknown signal class %q", name)
	}
	return c, nil
}

func (c SignalClass) String() string {
	switch c {
	case ClassFlow:
		return "flow"
	case ClassHotendTemp:
		return "hotend_temp"
	case ClassBedTemp:
		return "bed_temp"
	case ClassSpeed:
		return "speed"
	default:
		return "generic"
	}
}

// Direction splits anomalies on the same signal by the sign of the z-score,
// so a swing from too-low to too-high is never suppressed as a repeat.
type Direction string

const (
	DirectionHigh Direction = "HIGH"
	DirectionLow  Direction = "LOW"
)

func directionOf(z float64) Direction {
	if z > 0 {
		return DirectionHigh
	}
	return DirectionLow
}
