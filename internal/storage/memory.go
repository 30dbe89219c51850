// Package storage keeps the relay's short replay history in memory. Nothing
// here survives a restart.
package storage

import "sync"

// LineBuffer retains the most recent raw output lines so a listener that
// connects mid-stream receives a little context before live traffic. Lines
// are stored verbatim; the buffer never parses them.
type LineBuffer struct {
	mu       sync.RWMutex
	buffer   [][]byte
	capacity int
}

// NewLineBuffer creates a buffer holding up to capacity lines. A zero or
// negative capacity disables retention.
func NewLineBuffer(capacity int) *LineBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &LineBuffer{
		buffer:   make([][]byte, 0, capacity),
		capacity: capacity,
	}
}

// Add stores a copy of line, evicting the oldest entry once full. Copying
// matters: callers reuse their scan buffers.
func (b *LineBuffer) Add(line []byte) {
	if b.capacity == 0 {
		return
	}
	owned := make([]byte, len(line))
	copy(owned, line)

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.buffer) >= b.capacity {
		b.buffer = b.buffer[1:]
	}
	b.buffer = append(b.buffer, owned)
}

// Snapshot returns the retained lines, oldest first. The returned slice and
// its lines are safe for the caller to hold while the buffer keeps moving.
func (b *LineBuffer) Snapshot() [][]byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	result := make([][]byte, len(b.buffer))
	copy(result, b.buffer)
	return result
}

// Len reports how many lines are currently retained.
func (b *LineBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.buffer)
}
