package stats

// Window keeps the last N raw values in arrival order, evicting the oldest
// when full. Backed by a fixed ring so steady-state pushes do not allocate.
type Window struct {
	values []float64
	head   int
	count  int
}

// NewWindow creates a window with the given capacity. Capacity must be
// positive; callers are expected to validate it via the config layer.
func NewWindow(capacity int) *Window {
	return &Window{values: make([]float64, capacity)}
}

// Push appends a value, evicting the oldest when the window is full.
func (w *Window) Push(v float64) {
	w.values[w.head] = v
	w.head = (w.head + 1) % len(w.values)
	if w.count < len(w.values) {
		w.count++
	}
}

// Len returns the number of values currently held.
func (w *Window) Len() int { return w.count }

// Values returns a copy of the window contents, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, w.count)
	start := w.head - w.count
	if start < 0 {
		start += len(w.values)
	}
	for i := 0; i < w.count; i++ {
		out[i] = w.values[(start+i)%len(w.values)]
	}
	return out
}
