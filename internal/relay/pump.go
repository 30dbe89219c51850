package relay

import (
	"errors"
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"printwatch/internal/telemetry"
)

// maxLineBytes bounds one relayed line; generous because the relay must
// pass through whatever the upstream produces.
const maxLineBytes = 1 << 20

// Pump moves raw lines from a blocking reader into a bounded channel that
// the hub drains. When the channel is full the newest line is dropped and
// counted; the reader never stalls. An oversized line is dropped the same
// way instead of ending the stream.
type Pump struct {
	log       logrus.FieldLogger
	queueSize int
	dropped   atomic.Int64
}

func NewPump(queueSize int, log logrus.FieldLogger) *Pump {
	return &Pump{log: log, queueSize: queueSize}
}

// Start launches the reader goroutine and returns the line channel. The
// channel is closed when r reaches end of stream; a closed channel is the
// only end-of-stream signal, no in-band sentinel value exists.
func (p *Pump) Start(r io.Reader) <-chan []byte {
	lines := make(chan []byte, p.queueSize)
	go func() {
		defer close(lines)
		reader := telemetry.NewLineReader(r, maxLineBytes)
		for {
			line, err := reader.ReadLine()
			if errors.Is(err, telemetry.ErrLineTooLong) {
				p.dropped.Add(1)
				p.log.WithField("max_bytes", maxLineBytes).Warn("dropping oversized input line")
				continue
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					p.log.WithError(err).Warn("input stream read failed")
				}
				return
			}
			select {
			case lines <- line:
			default:
				p.dropped.Add(1)
				p.log.Debug("input queue full, dropping line")
			}
		}
	}()
	return lines
}

// Dropped reports how many lines were discarded, whether because the queue
// was full or because one line exceeded the size cap.
func (p *Pump) Dropped() int64 { return p.dropped.Load() }
