package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowFillsInOrder(t *testing.T) {
	w := NewWindow(4)
	assert.Zero(t, w.Len())
	assert.Empty(t, w.Values())

	w.Push(1)
	w.Push(2)
	w.Push(3)
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, []float64{1, 2, 3}, w.Values())
}

func TestWindowEvictsOldestFirst(t *testing.T) {
	w := NewWindow(3)

	w.Push(1)
	w.Push(2)
	assert.Equal(t, []float64{1, 2}, w.Values())

	w.Push(3)
	w.Push(4) // evicts 1
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, []float64{2, 3, 4}, w.Values())

	// Keep wrapping well past a full cycle of the ring.
	for v := 5.0; v <= 20; v++ {
		w.Push(v)
	}
	assert.Equal(t, []float64{18, 19, 20}, w.Values())
}

func TestWindowValuesReturnsCopy(t *testing.T) {
	w := NewWindow(2)
	w.Push(1)
	w.Push(2)

	got := w.Values()
	got[0] = 99
	assert.Equal(t, []float64{1, 2}, w.Values())
}

func TestWindowCapacityOne(t *testing.T) {
	w := NewWindow(1)
	w.Push(1)
	w.Push(2)
	assert.Equal(t, 1, w.Len())
	assert.Equal(t, []float64{2}, w.Values())
}
