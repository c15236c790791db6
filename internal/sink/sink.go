// Package sink defines the Sink interface for persisting accepted samples.
package sink

import (
	"github.com/Geun-Oh/accelx/internal/sample"
)

// Sink receives accepted samples and writes them to an output destination.
type Sink interface {
	// Write outputs a single sample.
	Write(s *sample.Sample) error

	// Flush ensures all buffered output is written.
	Flush() error

	// Close releases resources held by the sink.
	Close() error

	// Name returns a human-readable identifier for this sink.
	Name() string
}
