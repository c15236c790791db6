// Package source reads newline-delimited sensor payloads from inputs other
// than the HTTP endpoint.
package source

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync/atomic"
	"time"
)

// Line is one raw payload read from a source.
type Line struct {
	Source   string
	Seq      uint64
	Data     []byte
	Received time.Time
}

// Source reads payload lines from an input and emits them on a channel.
// Implementations must close the returned channel when the source is exhausted
// or the context is cancelled.
type Source interface {
	// Start begins reading from the source. The returned channel will receive
	// lines until the source is exhausted or ctx is cancelled.
	Start(ctx context.Context) (<-chan Line, error)

	// Name returns a human-readable identifier for this source.
	Name() string
}

const (
	chanSize    = 256
	maxLineSize = 1024 * 1024
)

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	// Payload batches can be long; allow lines up to 1MB.
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return scanner
}

// scanLines sends every non-blank line until the scanner stops or ctx is done.
// It returns false if ctx was cancelled.
func scanLines(ctx context.Context, scanner *bufio.Scanner, name string, seq *atomic.Uint64, ch chan<- Line) bool {
	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		// Copy raw bytes to avoid scanner buffer reuse.
		data := make([]byte, len(raw))
		copy(data, raw)

		select {
		case <-ctx.Done():
			return false
		case ch <- Line{Source: name, Seq: seq.Add(1), Data: data, Received: time.Now()}:
		}
	}
	return ctx.Err() == nil
}
