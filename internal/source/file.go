package source

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// DefaultPollInterval is how often a followed file is checked for new lines.
const DefaultPollInterval = 100 * time.Millisecond

// FileSource reads payload lines from a file, optionally following new writes (tail -f).
type FileSource struct {
	path   string
	follow bool
	poll   time.Duration
	seq    atomic.Uint64
}

// NewFileSource creates a source that reads from a file.
// If follow is true, it continues reading as new lines are appended.
func NewFileSource(path string, follow bool) *FileSource {
	return &FileSource{
		path:   path,
		follow: follow,
		poll:   DefaultPollInterval,
	}
}

// Name returns the source identifier.
func (s *FileSource) Name() string {
	return fmt.Sprintf("file:%s", s.path)
}

// Start opens the file and returns a channel of payload lines.
func (s *FileSource) Start(ctx context.Context) (<-chan Line, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("source: open file %s: %w", s.path, err)
	}

	ch := make(chan Line, chanSize)

	go func() {
		defer close(ch)
		defer f.Close()

		for {
			if !scanLines(ctx, newScanner(f), s.Name(), &s.seq, ch) {
				return
			}
			if !s.follow {
				return
			}

			// Poll for new data when following. A fresh scanner resumes at
			// the current file offset.
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.poll):
			}
		}
	}()

	return ch, nil
}
