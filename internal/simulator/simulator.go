// Package simulator produces synthetic 3D-printer telemetry: plausible
// baseline behavior with gentle noise and periodic wobble, plus scripted
// fault episodes for exercising the detection pipeline.
package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// errOutputClosed marks a write failure on the output stream, the normal
// way a pipeline shuts down from the downstream end.
var errOutputClosed = errors.New("output closed")

// Healthy operating points, roughly a PLA print.
var baseline = map[string]float64{
	"nozzle_temp_c":       205.0,
	"bed_temp_c":          60.0,
	"extruder_flow_mm3_s": 6.0,
	"motor_current_x_a":   0.8,
	"motor_current_y_a":   0.8,
	"motor_current_z_a":   0.9,
	"vibration_rms_g":     0.02,
	"print_speed_mm_s":    50.0,
	"layer_height_mm":     0.2,
	"ambient_temp_c":      24.0,
}

// Per-signal Gaussian noise scales. Layer height stays constant within a
// layer.
var noiseScale = map[string]float64{
	"nozzle_temp_c":       0.4,
	"bed_temp_c":          0.2,
	"extruder_flow_mm3_s": 0.15,
	"motor_current_x_a":   0.03,
	"motor_current_y_a":   0.03,
	"motor_current_z_a":   0.04,
	"vibration_rms_g":     0.004,
	"print_speed_mm_s":    0.8,
	"layer_height_mm":     0.0,
	"ambient_temp_c":      0.05,
}

// signalOrder fixes the iteration order so a seeded run draws random values
// identically every time.
var signalOrder = []string{
	"nozzle_temp_c",
	"bed_temp_c",
	"extruder_flow_mm3_s",
	"motor_current_x_a",
	"motor_current_y_a",
	"motor_current_z_a",
	"vibration_rms_g",
	"print_speed_mm_s",
	"layer_height_mm",
	"ambient_temp_c",
}

// secondsPerLayer drives the synthetic layer counter.
const secondsPerLayer = 12.0

// Record is one emitted telemetry sample. The engine consumes ts, t_sec,
// and signals; layer_index and faults_active are provenance for humans and
// test tooling.
type Record struct {
	Timestamp    string             `json:"ts"`
	ElapsedSec   float64            `json:"t_sec"`
	LayerIndex   int                `json:"layer_index"`
	FaultsActive []string           `json:"faults_active"`
	Signals      map[string]float64 `json:"signals"`
}

// Simulator generates records at a fixed tick rate. A non-zero seed makes
// the stream reproducible.
type Simulator struct {
	tickHz   float64
	schedule Schedule
	rng      *rand.Rand
	out      io.Writer
	log      logrus.FieldLogger
	now      func() time.Time
}

// Option adjusts a Simulator at construction.
type Option func(*Simulator)

// WithClock substitutes the wall-clock source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// New builds a simulator writing JSON lines to out. Seed 0 seeds from the
// clock.
func New(tickHz float64, schedule Schedule, seed int64, out io.Writer, log logrus.FieldLogger, opts ...Option) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Simulator{
		tickHz:   tickHz,
		schedule: schedule,
		rng:      rand.New(rand.NewSource(seed)),
		out:      out,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate produces the record for elapsed time t.
func (s *Simulator) Generate(t float64) *Record {
	state := s.sample(t)
	active := s.schedule.Active(t)
	applyFaults(t, state, active)

	faults := make([]string, len(active))
	for i, f := range active {
		faults[i] = string(f)
	}
	signals := make(map[string]float64, len(state))
	for k, v := range state {
		signals[k] = roundTo(v, 5)
	}

	return &Record{
		Timestamp:    s.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		ElapsedSec:   roundTo(t, 3),
		LayerIndex:   int(t / secondsPerLayer),
		FaultsActive: faults,
		Signals:      signals,
	}
}

// sample draws the healthy-state signals for time t: baseline plus noise,
// wobble on flow and vibration, speed coupling into currents and vibration,
// and non-negativity clamps.
func (s *Simulator) sample(t float64) map[string]float64 {
	state := make(map[string]float64, len(signalOrder))
	for _, k := range signalOrder {
		wobble := 0.0
		switch k {
		case "extruder_flow_mm3_s":
			wobble = 0.03 * math.Sin(2*math.Pi*0.8*t)
		case "vibration_rms_g":
			wobble = 0.03 * math.Sin(2*math.Pi*3.2*t)
		}
		state[k] = baseline[k] + s.rng.NormFloat64()*noiseScale[k] + wobble
	}

	speedFactor := 1.0 + 0.004*(state["print_speed_mm_s"]-baseline["print_speed_mm_s"])
	state["motor_current_x_a"] *= speedFactor
	state["motor_current_y_a"] *= speedFactor
	state["vibration_rms_g"] *= speedFactor

	state["extruder_flow_mm3_s"] = math.Max(0, state["extruder_flow_mm3_s"])
	state["vibration_rms_g"] = math.Max(0, state["vibration_rms_g"])
	return state
}

// Run emits records at the configured rate until the context is canceled or
// the output stream closes. A closed output (downstream consumer exited) is
// a normal way to stop, not an error.
func (s *Simulator) Run(ctx context.Context) error {
	interval := time.Duration(float64(time.Second) / s.tickHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	if err := s.emit(0); err != nil {
		return s.finish(err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t := time.Since(start).Seconds()
			if err := s.emit(t); err != nil {
				return s.finish(err)
			}
		}
	}
}

func (s *Simulator) emit(t float64) error {
	buf, err := json.Marshal(s.Generate(t))
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	buf = append(buf, '\n')
	if _, err := s.out.Write(buf); err != nil {
		return fmt.Errorf("%w: %v", errOutputClosed, err)
	}
	return nil
}

func (s *Simulator) finish(err error) error {
	if errors.Is(err, errOutputClosed) {
		s.log.WithError(err).Info("output closed, stopping")
		return nil
	}
	return err
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
