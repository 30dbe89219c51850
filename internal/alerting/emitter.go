// Package alerting serializes anomaly events and control advisories as
// newline-delimited JSON on an output stream.
package alerting

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"printwatch/internal/telemetry"
)

// ErrStreamClosed reports that the output stream rejected a write, usually
// because the downstream consumer went away. Callers treat it as end of
// stream rather than a fault.
var ErrStreamClosed = errors.New("output stream closed")

// Emitter writes one JSON line per event or advisory. Each line is written
// with a single Write call and no internal buffering, so consumers see
// complete lines as soon as they are produced.
//
// Values are rounded for the wire: measured value to 4 decimal places,
// z-score to 2.
type Emitter struct {
	w io.Writer
}

func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// EmitEvent writes an anomaly event line. The passed event is not modified.
func (e *Emitter) EmitEvent(ev *telemetry.Event) error {
	out := *ev
	out.Value = roundTo(ev.Value, 4)
	out.ZScore = roundTo(ev.ZScore, 2)
	return e.writeLine(&out)
}

// EmitControl writes a control advisory line.
func (e *Emitter) EmitControl(a *telemetry.ControlAction) error {
	return e.writeLine(a)
}

func (e *Emitter) writeLine(v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding output line: %w", err)
	}
	buf = append(buf, '\n')
	if _, err := e.w.Write(buf); err != nil {
		return fmt.Errorf("%w: %v", ErrStreamClosed, err)
	}
	return nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
