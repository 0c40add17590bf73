package search

// TrialWindow is a fixed-capacity FIFO of the most recent throughput samples.
// Pushing into a full window evicts the oldest sample.
type TrialWindow struct {
	capacity int
	values   []float64
}

// NewTrialWindow creates a window holding at most capacity samples
func NewTrialWindow(capacity int) *TrialWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &TrialWindow{
		capacity: capacity,
		values:   make([]float64, 0, capacity),
	}
}

// Push appends v, evicting the oldest sample once the window is full
func (w *TrialWindow) Push(v float64) {
	if len(w.values) == w.capacity {
		copy(w.values, w.values[1:])
		w.values = w.values[:w.capacity-1]
	}
	w.values = append(w.values, v)
}

// Full reports whether the window holds capacity samples
func (w *TrialWindow) Full() bool {
	return len(w.values) == w.capacity
}

// Len returns the number of samples held
func (w *TrialWindow) Len() int {
	return len(w.values)
}

// Cap returns the window capacity
func (w *TrialWindow) Cap() int {
	return w.capacity
}

// Values returns the samples from oldest to newest
func (w *TrialWindow) Values() []float64 {
	out := make([]float64, len(w.values))
	copy(out, w.values)
	return out
}
