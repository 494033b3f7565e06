// Package buffer provides a thread-safe overwrite-oldest ring used for
// message replay and rolling sample windows.
//
// Unlike a blocking stream buffer, Ring is snapshot-oriented: producers
// Add and never block, consumers Snapshot the current window without
// consuming it. This fits replay-on-join (a reconnecting client reads
// the whole window) and rolling statistics (anomaly detection reads the
// last N samples on every insert).
package buffer

import (
	"slices"
	"sync"
)

// Ring is a fixed-capacity ring that overwrites the oldest element when
// full. Safe for concurrent use.
type Ring[T any] struct {
	mu         sync.Mutex
	buf        []T
	head, tail int64
}

// NewRing creates a Ring with the given capacity. Panics if size <= 0.
func NewRing[T any](size int) *Ring[T] {
	if size <= 0 {
		panic("buffer: ring size must be positive")
	}
	return &Ring[T]{buf: make([]T, size)}
}

// Add appends one element, overwriting the oldest when full.
func (r *Ring[T]) Add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.tail%int64(len(r.buf))] = v
	r.tail++
	if r.tail-r.head > int64(len(r.buf)) {
		r.head++
	}
}

// Len returns the number of buffered elements.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.tail - r.head)
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Snapshot returns a copy of the buffered elements, oldest first.
// The ring is not consumed.
func (r *Ring[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.head % int64(len(r.buf))
	t := r.tail % int64(len(r.buf))
	if r.head == r.tail {
		return nil
	}
	if h < t {
		return slices.Clone(r.buf[h:t])
	}
	return slices.Concat(r.buf[h:], r.buf[:t])
}

// Last returns up to n most recent elements, oldest first.
func (r *Ring[T]) Last(n int) []T {
	s := r.Snapshot()
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Reset discards all buffered elements.
func (r *Ring[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = 0
	r.tail = 0
}
