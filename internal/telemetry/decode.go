package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// maxLineBytes bounds a single input line. Records are a few hundred bytes
// in practice; the headroom covers sources that attach extra provenance.
const maxLineBytes = 1 << 20

// Decoder reads newline-delimited JSON records from a stream. Blank lines,
// lines that fail to decode, and lines over the size cap are dropped, not
// fatal: a corrupt sample must never stall the stream behind it.
type Decoder struct {
	lines   *LineReader
	log     logrus.FieldLogger
	dropped int
}

// NewDecoder wraps r in a line decoder. The logger receives a debug entry
// for each dropped line; pass a silenced logger to opt out.
func NewDecoder(r io.Reader, log logrus.FieldLogger) *Decoder {
	return &Decoder{lines: NewLineReader(r, maxLineBytes), log: log}
}

// Next returns the next well-formed record. It returns io.EOF once the
// underlying stream ends, and a wrapped read error if reading fails for
// any other reason.
func (d *Decoder) Next() (*Record, error) {
	for {
		line, err := d.lines.ReadLine()
		if errors.Is(err, ErrLineTooLong) {
			d.dropped++
			d.log.WithField("max_bytes", maxLineBytes).Debug("dropping oversized record")
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("reading telemetry stream: %w", err)
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			d.dropped++
			d.log.WithError(err).Debug("dropping malformed record")
			continue
		}
		return &rec, nil
	}
}

// Dropped reports how many lines were discarded as malformed or oversized.
func (d *Decoder) Dropped() int { return d.dropped }
