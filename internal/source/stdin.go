package source

import (
	"context"
	"io"
	"os"
	"sync/atomic"
)

// StdinSource reads payload lines from standard input (pipe mode).
type StdinSource struct {
	r   io.Reader
	seq atomic.Uint64
}

// NewStdinSource creates a source reading from r, or os.Stdin when r is nil.
func NewStdinSource(r io.Reader) *StdinSource {
	if r == nil {
		r = os.Stdin
	}
	return &StdinSource{r: r}
}

// Name returns the source identifier.
func (s *StdinSource) Name() string {
	return "stdin"
}

// Start reads from the input and returns a channel of payload lines.
func (s *StdinSource) Start(ctx context.Context) (<-chan Line, error) {
	ch := make(chan Line, chanSize)

	go func() {
		defer close(ch)
		scanLines(ctx, newScanner(s.r), s.Name(), &s.seq, ch)
	}()

	return ch, nil
}
