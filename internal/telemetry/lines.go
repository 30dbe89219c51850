package telemetry

import (
	"bufio"
	"errors"
	"io"
)

// ErrLineTooLong reports a line that exceeded the reader's cap. The
// offending line has already been discarded; the next call continues with
// the line after it.
var ErrLineTooLong = errors.New("line exceeds maximum length")

// LineReader frames newline-delimited input without dying on oversized
// lines: a line longer than the cap is discarded and reported as
// ErrLineTooLong, and reading resumes after its terminating newline.
// bufio.Scanner cannot do this; it stops permanently once a token
// overflows its buffer.
type LineReader struct {
	r   *bufio.Reader
	max int
}

// NewLineReader frames r into lines of at most max bytes, not counting the
// line terminator.
func NewLineReader(r io.Reader, max int) *LineReader {
	return &LineReader{r: bufio.NewReaderSize(r, 64*1024), max: max}
}

// ReadLine returns the next line with its terminator ("\n" or "\r\n")
// removed. A final line without a terminator is returned before io.EOF.
// The returned slice is freshly allocated and safe to retain.
func (lr *LineReader) ReadLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := lr.r.ReadSlice('\n')
		line = append(line, chunk...)
		switch {
		case err == nil:
			line = trimEOL(line)
			if len(line) > lr.max {
				return nil, ErrLineTooLong
			}
			return line, nil
		case errors.Is(err, bufio.ErrBufferFull):
			if len(line) > lr.max {
				if err := lr.skipToEOL(); err != nil && !errors.Is(err, io.EOF) {
					return nil, err
				}
				return nil, ErrLineTooLong
			}
		case errors.Is(err, io.EOF):
			if len(line) == 0 {
				return nil, io.EOF
			}
			line = trimEOL(line)
			if len(line) > lr.max {
				return nil, ErrLineTooLong
			}
			return line, nil
		default:
			return nil, err
		}
	}
}

// skipToEOL discards input through the next newline.
func (lr *LineReader) skipToEOL() error {
	for {
		_, err := lr.r.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

func trimEOL(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}
