// SPDX-License-Identifier: MIT
package analysis

// SlidingWindow is a fixed-capacity FIFO over the most recent samples. Once full,
// each push evicts the oldest sample. Storage is a ring so pushes never allocate.
type SlidingWindow struct {
	buf   []int
	head  int // index of the oldest sample
	count int
}

// NewSlidingWindow creates a window holding at most size samples.
func NewSlidingWindow(size int) *SlidingWindow {
	if size <= 0 {
		panic("sliding window size must be positive")
	}
	return &SlidingWindow{buf: make([]int, size)}
}

// Push appends a sample, evicting the oldest one when the window is at capacity.
func (w *SlidingWindow) Push(sample int) {
	n := len(w.buf)
	if w.count < n {
		w.buf[(w.head+w.count)%n] = sample
		w.count++
		return
	}
	w.buf[w.head] = sample
	w.head = (w.head + 1) % n
}

// IsFull reports whether the window has reached capacity.
func (w *SlidingWindow) IsFull() bool {
	return w.count == len(w.buf)
}

// Len returns the number of samples currently held.
func (w *SlidingWindow) Len() int {
	return w.count
}

// Cap returns the window capacity.
func (w *SlidingWindow) Cap() int {
	return len(w.buf)
}

// Snapshot returns a copy of the window contents in arrival order.
// NOTE: This method allocates. The engine uses SnapshotInto on the hot path.
func (w *SlidingWindow) Snapshot() []int {
	out := make([]int, w.count)
	n := len(w.buf)
	for i := range w.count {
		out[i] = w.buf[(w.head+i)%n]
	}
	return out
}

// SnapshotInto copies the window contents in arrival order into dst as float64
// and returns the filled prefix. dst must have room for Len() samples.
func (w *SlidingWindow) SnapshotInto(dst []float64) []float64 {
	dst = dst[:w.count]
	n := len(w.buf)
	for i := range w.count {
		dst[i] = float64(w.buf[(w.head+i)%n])
	}
	return dst
}

// Reset empties the window.
func (w *SlidingWindow) Reset() {
	w.head = 0
	w.count = 0
}
