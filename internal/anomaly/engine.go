package anomaly

import (
	"errors"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"printwatch/internal/stats"
	"printwatch/internal/telemetry"
)

// Params are the detection thresholds, fixed for the lifetime of a run.
type Params struct {
	// Alpha is the EWMA smoothing factor, in (0, 1).
	Alpha float64
	// Epsilon keeps the z-score defined while variance is still zero.
	Epsilon float64
	// WarnZ and AlertZ are the soft and strong anomaly thresholds on |z|.
	WarnZ  float64
	AlertZ float64
	// RunLenAlert escalates to ALERT after this many consecutive samples
	// at or beyond WarnZ.
	RunLenAlert int
	// Cooldown is the minimum wall-clock gap between emissions sharing a
	// (severity, signal, direction) key.
	Cooldown time.Duration
	// TrendWindow is the capacity of the recent-value window consulted by
	// the diagnosis step.
	TrendWindow int
}

// Signal names one monitored signal and its diagnosis class.
type Signal struct {
	Name  string
	Class SignalClass
}

// EventSink receives the engine's output. Implementations must be safe to
// call from the engine's single goroutine; they need no internal locking
// beyond that.
type EventSink interface {
	EmitEvent(e *telemetry.Event) error
	EmitControl(a *telemetry.ControlAction) error
}

// RecordSource yields telemetry records until io.EOF.
type RecordSource interface {
	Next() (*telemetry.Record, error)
}

// signalState is the full per-signal detection state. Signals never share
// state, so one wild sensor cannot poison another's baseline.
type signalState struct {
	class  SignalClass
	stats  *stats.EWMA
	runLen *stats.RunLength
	recent *stats.Window
}

// Engine consumes records one at a time and emits de-duplicated anomaly
// events with diagnoses. All state is owned by the engine instance and
// lives only for the process run; the engine itself is not goroutine-safe
// and is meant to be driven by a single loop.
type Engine struct {
	params   Params
	order    []string
	states   map[string]*signalState
	critical map[string]bool
	gate     *emissionGate
	sink     EventSink
	log      logrus.FieldLogger
	now      func() time.Time
}

// Option adjusts an Engine at construction.
type Option func(*Engine)

// WithClock substitutes the wall-clock source used by the emission gate.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an engine watching the given signals in the given order.
// critical names the signals whose ALERTs carry a PAUSE_PRINT advisory.
func NewEngine(params Params, signals []Signal, critical []string, sink EventSink, log logrus.FieldLogger, opts ...Option) *Engine {
	e := &Engine{
		params:   params,
		order:    make([]string, 0, len(signals)),
		states:   make(map[string]*signalState, len(signals)),
		critical: make(map[string]bool, len(critical)),
		gate:     newEmissionGate(params.Cooldown),
		sink:     sink,
		log:      log,
		now:      time.Now,
	}
	for _, s := range signals {
		e.order = append(e.order, s.Name)
		e.states[s.Name] = &signalState{
			class:  s.Class,
			stats:  stats.NewEWMA(params.Alpha),
			runLen: stats.NewRunLength(params.WarnZ),
			recent: stats.NewWindow(params.TrendWindow),
		}
	}
	for _, name := range critical {
		e.critical[name] = true
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run drains the source until end of stream. A sink write error stops the
// run and is returned as-is so the caller can distinguish a closed output
// from a fault.
func (e *Engine) Run(src RecordSource) error {
	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := e.ProcessRecord(rec); err != nil {
			return err
		}
	}
}

// ProcessRecord updates every monitored signal present in the record and
// emits events for those that classify as anomalous. Signals are evaluated
// in configuration order; a signal absent or non-numeric in this record is
// skipped without touching its state.
func (e *Engine) ProcessRecord(rec *telemetry.Record) error {
	for _, name := range e.order {
		value, ok := rec.Value(name)
		if !ok {
			continue
		}
		st := e.states[name]

		mean, variance := st.stats.Update(value)
		z := stats.ZScore(value, mean, variance, e.params.Epsilon)
		st.recent.Push(value)
		run := st.runLen.Update(z)

		severity, anomalous := e.classify(z, run)
		if !anomalous {
			continue
		}

		key := dedupKey{severity: severity, signal: name, direction: directionOf(z)}
		if !e.gate.shouldEmit(key, e.now()) {
			continue
		}

		diag := diagnose(st.class, name, z, st.recent.Values())
		event := &telemetry.Event{
			Timestamp:   rec.Timestamp,
			ElapsedSec:  rec.ElapsedSec,
			Severity:    severity,
			Signal:      name,
			Value:       value,
			ZScore:      z,
			Message:     diag.Message,
			Suggestions: diag.Suggestions,
		}
		if err := e.sink.EmitEvent(event); err != nil {
			return err
		}
		e.log.WithFields(logrus.Fields{
			"signal":   name,
			"severity": severity,
			"zscore":   z,
			"run_len":  run,
		}).Debug("anomaly emitted")

		if severity == telemetry.SeverityAlert && e.critical[name] {
			ctrl := &telemetry.ControlAction{
				Timestamp:  rec.Timestamp,
				ElapsedSec: rec.ElapsedSec,
				Action:     telemetry.PausePrint,
				Reason:     name + " severe anomaly",
			}
			if err := e.sink.EmitControl(ctrl); err != nil {
				return err
			}
		}
	}
	return nil
}

// classify applies the severity ladder. The two ALERT triggers (magnitude
// and sustained run) are independent: either alone suffices.
func (e *Engine) classify(z float64, runLen int) (telemetry.Severity, bool) {
	abs := math.Abs(z)
	switch {
	case abs >= e.params.AlertZ || runLen >= e.params.RunLenAlert:
		return telemetry.SeverityAlert, true
	case abs >= e.params.WarnZ:
		return telemetry.SeverityWarn, true
	default:
		return "", false
	}
}
