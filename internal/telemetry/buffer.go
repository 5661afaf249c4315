package telemetry

import (
	"slices"
	"sync/atomic"
)

// DefaultHistorySize is the number of samples kept per source.
const DefaultHistorySize = 10

// Buffer is a fixed-capacity, insertion-ordered history of samples for one source.
//
// Every Append builds a new slice and publishes it with a single atomic swap,
// so readers always see either the previous or the next sequence and never a
// partially-updated one. Published slices are never mutated.
type Buffer struct {
	capacity int
	samples  atomic.Pointer[[]Sample]
}

// NewBuffer creates a buffer holding up to capacity samples.
// When prefill is true the buffer starts full of Absent placeholders.
func NewBuffer(capacity int, prefill bool) *Buffer {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}

	initial := make([]Sample, 0, capacity)
	if prefill {
		for i := 0; i < capacity; i++ {
			initial = append(initial, AbsentSample())
		}
	}

	b := &Buffer{capacity: capacity}
	b.samples.Store(&initial)
	return b
}

// Append adds s at the tail, evicting the oldest sample first when full.
func (b *Buffer) Append(s Sample) {
	for {
		cur := b.samples.Load()
		next := appendBounded(*cur, s, b.capacity)
		if b.samples.CompareAndSwap(cur, &next) {
			return
		}
	}
}

// appendBounded returns a fresh slice with s appended and the oldest entries
// dropped so the length never exceeds capacity.
func appendBounded(cur []Sample, s Sample, capacity int) []Sample {
	start := 0
	if len(cur) >= capacity {
		start = len(cur) - capacity + 1
	}
	next := make([]Sample, 0, capacity)
	next = append(next, cur[start:]...)
	return append(next, s)
}

// View returns the samples oldest-first. The returned slice is the caller's own copy.
func (b *Buffer) View() []Sample {
	return slices.Clone(*b.samples.Load())
}

// Present returns the view with Absent placeholders filtered out.
func (b *Buffer) Present() []Sample {
	cur := *b.samples.Load()
	out := make([]Sample, 0, len(cur))
	for _, s := range cur {
		if s.Present() {
			out = append(out, s)
		}
	}
	return out
}

// Latest returns the newest sample that carries a reading.
func (b *Buffer) Latest() (Sample, bool) {
	cur := *b.samples.Load()
	for i := len(cur) - 1; i >= 0; i-- {
		if cur[i].Present() {
			return cur[i], true
		}
	}
	return Sample{}, false
}

// Len returns the current number of slots, placeholders included.
func (b *Buffer) Len() int {
	return len(*b.samples.Load())
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return b.capacity
}
