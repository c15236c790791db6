// Package buffer provides the bounded sample storage shared by ingestion and rendering.
package buffer

import (
	"sync"

	"github.com/Geun-Oh/accelx/internal/sample"
)

// Ring is a fixed-capacity circular buffer of samples in arrival order.
// When full, the oldest samples are silently evicted.
// All operations are goroutine-safe.
type Ring struct {
	mu       sync.RWMutex
	samples  []sample.Sample
	head     int // next write position
	count    int // current number of samples
	capacity int
	dropped  uint64 // evicted since the last Clear
	total    uint64 // appended since the last Clear
}

// NewRing creates a ring buffer with the given capacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 3000
	}
	return &Ring{
		samples:  make([]sample.Sample, capacity),
		capacity: capacity,
	}
}

// Append adds a sample. If full, the oldest sample is evicted.
func (r *Ring) Append(s sample.Sample) {
	r.mu.Lock()
	r.appendLocked(s)
	r.mu.Unlock()
}

// AppendBatch adds samples in order under a single lock, so readers never
// observe half of a batch.
func (r *Ring) AppendBatch(batch []sample.Sample) {
	if len(batch) == 0 {
		return
	}
	r.mu.Lock()
	for _, s := range batch {
		r.appendLocked(s)
	}
	r.mu.Unlock()
}

func (r *Ring) appendLocked(s sample.Sample) {
	r.samples[r.head] = s
	r.head = (r.head + 1) % r.capacity
	if r.count < r.capacity {
		r.count++
	} else {
		r.dropped++
	}
	r.total++
}

// Snapshot returns a copy of all buffered samples in arrival order.
func (r *Ring) Snapshot() []sample.Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastLocked(r.count)
}

// LastN returns a copy of the n most recently appended samples, oldest first.
// n is clamped to [0, Len()].
func (r *Ring) LastN(n int) []sample.Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n = max(0, min(n, r.count))
	return r.lastLocked(n)
}

// Since returns the samples appended after the given position together with
// the current position. Positions count appends since the last Clear; if some
// of the requested samples were already evicted only the retained ones are
// returned. A cursor ahead of the buffer (e.g. taken before a Clear) yields
// every retained sample.
func (r *Ring) Since(cursor uint64) ([]sample.Sample, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cursor > r.total {
		cursor = 0
	}
	n := r.total - cursor
	if n > uint64(r.count) {
		n = uint64(r.count)
	}
	return r.lastLocked(int(n)), r.total
}

// lastLocked copies the n newest samples. Must be called with lock held.
func (r *Ring) lastLocked(n int) []sample.Sample {
	result := make([]sample.Sample, n)
	if n == 0 {
		return result
	}
	start := (r.head - n + r.capacity) % r.capacity
	if start+n <= r.capacity {
		copy(result, r.samples[start:start+n])
		return result
	}
	k := copy(result, r.samples[start:])
	copy(result[k:], r.samples[:n-k])
	return result
}

// Clear empties the buffer and resets the eviction and append counters.
func (r *Ring) Clear() {
	r.mu.Lock()
	r.head = 0
	r.count = 0
	r.dropped = 0
	r.total = 0
	r.mu.Unlock()
}

// Len returns the current number of samples in the buffer.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Dropped returns the number of evicted samples since the last Clear.
func (r *Ring) Dropped() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dropped
}

// Total returns the number of samples appended since the last Clear.
func (r *Ring) Total() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}

// Cap returns the buffer capacity.
func (r *Ring) Cap() int {
	return r.capacity
}
