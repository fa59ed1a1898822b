package reconcile

// Window is a bounded moving-average filter over the most recent samples of
// one metric. It holds no other state: its output is fully determined by the
// samples pushed into it.
type Window struct {
	size   int
	values []float64
}

// NewWindow returns a filter averaging over at most size samples.
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{size: size, values: make([]float64, 0, size)}
}

// Push records a sample, evicting the oldest one once the window is full,
// and returns the new mean.
func (w *Window) Push(v float64) float64 {
	if len(w.values) == w.size {
		copy(w.values, w.values[1:])
		w.values = w.values[:w.size-1]
	}
	w.values = append(w.values, v)
	return w.Mean()
}

// Mean returns the arithmetic mean of the current window, or 0 when empty.
func (w *Window) Mean() float64 {
	if len(w.values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range w.values {
		sum += v
	}
	return sum / float64(len(w.values))
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	return len(w.values)
}

// Values returns a copy of the window contents, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.values))
	copy(out, w.values)
	return out
}

// Surface clamps a filtered percentage so the displayed value never moves
// backward and never runs ahead of the raw sample.
func Surface(previous, filtered, raw float64) float64 {
	v := filtered
	if raw < v {
		v = raw
	}
	if v < previous {
		v = previous
	}
	return v
}
