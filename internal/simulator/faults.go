package simulator

import (
	"fmt"
	"math"
	"sort"
)

// Fault is a scripted printer malfunction. Faults are additive: several may
// be active at once and each perturbs the state independently.
type Fault string

const (
	FaultUnderExtrusion      Fault = "UNDER_EXTRUSION"
	FaultOverExtrusion       Fault = "OVER_EXTRUSION"
	FaultNozzleTempDriftDown Fault = "NOZZLE_TEMP_DRIFT_DOWN"
	FaultBedTempOscillate    Fault = "BED_TEMP_OSCILLATE"
	FaultYAxisStickSlip      Fault = "Y_AXIS_STICK_SLIP"
	FaultAmbientBreeze       Fault = "AMBIENT_BREEZE"
)

var knownFaults = map[Fault]bool{
	FaultUnderExtrusion:      true,
	FaultOverExtrusion:       true,
	FaultNozzleTempDriftDown: true,
	FaultBedTempOscillate:    true,
	FaultYAxisStickSlip:      true,
	FaultAmbientBreeze:       true,
}

// ParseFault validates a fault name from configuration.
func ParseFault(name string) (Fault, error) {
	f := Fault(name)
	if !knownFaults[f] {
		return "", fmt.Errorf("unknown fault %q", name)
	}
	return f, nil
}

// Window activates a set of faults over [Start, End] seconds, both ends
// inclusive.
type Window struct {
	Start  float64
	End    float64
	Faults []Fault
}

// Schedule is the scripted fault timeline for a run.
type Schedule []Window

// DefaultSchedule reproduces the reference demo run: an under-extrusion
// episode, a bed oscillation, a stick-slip phase with a draft, and a slow
// nozzle cool-down.
func DefaultSchedule() Schedule {
	return Schedule{
		{Start: 15, End: 30, Faults: []Fault{FaultUnderExtrusion}},
		{Start: 45, End: 65, Faults: []Fault{FaultBedTempOscillate}},
		{Start: 75, End: 95, Faults: []Fault{FaultYAxisStickSlip, FaultAmbientBreeze}},
		{Start: 110, End: 130, Faults: []Fault{FaultNozzleTempDriftDown}},
	}
}

// Active returns the faults in effect at time t, sorted and unique.
func (s Schedule) Active(t float64) []Fault {
	set := make(map[Fault]bool)
	for _, w := range s {
		if t >= w.Start && t <= w.End {
			for _, f := range w.Faults {
				set[f] = true
			}
		}
	}
	if len(set) == 0 {
		return nil
	}
	active := make([]Fault, 0, len(set))
	for f := range set {
		active = append(active, f)
	}
	sort.Slice(active, func(i, j int) bool { return active[i] < active[j] })
	return active
}

// applyFaults perturbs the freshly sampled state in place.
func applyFaults(t float64, state map[string]float64, active []Fault) {
	for _, f := range active {
		switch f {
		case FaultUnderExtrusion:
			// Partial clog: flow sags, X motor works harder, vibration up.
			state["extruder_flow_mm3_s"] *= 0.7 + 0.05*math.Sin(1.7*t)
			state["motor_current_x_a"] *= 1.06
			state["vibration_rms_g"] *= 1.3

		case FaultOverExtrusion:
			state["extruder_flow_mm3_s"] *= 1.25
			state["motor_current_x_a"] *= 1.04

		case FaultNozzleTempDriftDown:
			// Heater can't keep up.
			state["nozzle_temp_c"] -= 0.05

		case FaultBedTempOscillate:
			// Bad PID: the bed hunts at ~0.1 Hz.
			state["bed_temp_c"] += 1.5 * math.Sin(2*math.Pi*0.1*t)

		case FaultYAxisStickSlip:
			// Friction spikes quasi-periodically.
			state["motor_current_y_a"] *= 1.0 + 0.25*math.Max(0, math.Sin(4.0*t))
			state["vibration_rms_g"] *= 1.0 + 0.6*math.Max(0, math.Sin(4.0*t-0.8))

		case FaultAmbientBreeze:
			// A draft cools everything a little.
			state["ambient_temp_c"] -= 0.02
			state["nozzle_temp_c"] -= 0.05
			state["bed_temp_c"] -= 0.03
		}
	}
}
