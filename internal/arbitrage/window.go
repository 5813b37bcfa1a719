package arbitrage

import "math"

// RollingWindow is a fixed-capacity ring of float64 observations with
// incremental mean and standard deviation. Not safe for concurrent use;
// the engine serializes access per token.
type RollingWindow struct {
	values []float64
	next   int
	filled bool
}

// NewRollingWindow creates a window that keeps the last size observations.
func NewRollingWindow(size int) *RollingWindow {
	if size < 2 {
		size = 2
	}
	return &RollingWindow{values: make([]float64, 0, size)}
}

// Push adds an observation, evicting the oldest once the window is full.
func (w *RollingWindow) Push(v float64) {
	if len(w.values) < cap(w.values) {
		w.values = append(w.values, v)
		return
	}
	w.filled = true
	w.values[w.next] = v
	w.next = (w.next + 1) % cap(w.values)
}

// Count returns the number of observations currently held.
func (w *RollingWindow) Count() int {
	return len(w.values)
}

// Full reports whether the window has wrapped at least once.
func (w *RollingWindow) Full() bool {
	return w.filled || len(w.values) == cap(w.values)
}

// Mean returns the arithmetic mean of the held observations.
func (w *RollingWindow) Mean() float64 {
	if len(w.values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range w.values {
		sum += v
	}
	return sum / float64(len(w.values))
}

// Std returns the population standard deviation of the held observations.
func (w *RollingWindow) Std() float64 {
	n := len(w.values)
	if n < 2 {
		return 0
	}
	mean := w.Mean()
	var ss float64
	for _, v := range w.values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n))
}

// ZScore returns how many standard deviations v sits from the window mean.
// A degenerate window (fewer than two points, or zero variance) scores 0 so
// a flat history never manufactures significance.
func (w *RollingWindow) ZScore(v float64) float64 {
	std := w.Std()
	if std == 0 {
		return 0
	}
	return (v - w.Mean()) / std
}
