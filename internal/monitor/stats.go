// Package monitor tracks stream liveness, arrival density and ingest counters.
package monitor

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Stats collects ingest metrics in a lock-free manner.
type Stats struct {
	points    atomic.Uint64 // samples buffered in the current epoch
	lifetime  atomic.Uint64 // samples buffered since start
	batches   atomic.Uint64
	rejected  atomic.Uint64
	ignored   atomic.Uint64
	startTime time.Time
}

// NewStats creates a new statistics collector.
func NewStats() *Stats {
	return &Stats{
		startTime: time.Now(),
	}
}

// RecordBatch counts one accepted request carrying n buffered samples.
func (s *Stats) RecordBatch(n int) {
	s.batches.Add(1)
	s.points.Add(uint64(n))
	s.lifetime.Add(uint64(n))
}

// RecordRejected counts a malformed payload.
func (s *Stats) RecordRejected() {
	s.rejected.Add(1)
}

// RecordIgnored counts entries that did not qualify for buffering.
func (s *Stats) RecordIgnored(n int) {
	if n > 0 {
		s.ignored.Add(uint64(n))
	}
}

// ResetEpoch zeroes the per-epoch point counter.
func (s *Stats) ResetEpoch() {
	s.points.Store(0)
}

// Points returns the samples received in the current epoch.
func (s *Stats) Points() uint64 {
	return s.points.Load()
}

// Lifetime returns the samples received since start.
func (s *Stats) Lifetime() uint64 {
	return s.lifetime.Load()
}

// Batches returns the number of accepted requests.
func (s *Stats) Batches() uint64 {
	return s.batches.Load()
}

// Rejected returns the number of malformed payloads.
func (s *Stats) Rejected() uint64 {
	return s.rejected.Load()
}

// Ignored returns the number of non-qualifying entries.
func (s *Stats) Ignored() uint64 {
	return s.ignored.Load()
}

// Elapsed returns the time since monitoring started.
func (s *Stats) Elapsed() time.Duration {
	return time.Since(s.startTime)
}

// Rate returns the lifetime samples per second.
func (s *Stats) Rate() float64 {
	elapsed := s.Elapsed().Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(s.Lifetime()) / elapsed
}

// Summary returns a formatted summary string. evicted is supplied by the
// caller since the buffer owns that counter.
func (s *Stats) Summary(evicted uint64) string {
	return fmt.Sprintf(
		"── Summary ──\n"+
			"  Samples:   %d (%d this epoch)\n"+
			"  Requests:  %d\n"+
			"  Rejected:  %d\n"+
			"  Ignored:   %d entries\n"+
			"  Evicted:   %d\n"+
			"  Duration:  %s\n"+
			"  Throughput: %.1f samples/s\n"+
			"─────────────",
		s.Lifetime(), s.Points(),
		s.Batches(),
		s.Rejected(),
		s.Ignored(),
		evicted,
		s.Elapsed().Round(time.Millisecond),
		s.Rate(),
	)
}
