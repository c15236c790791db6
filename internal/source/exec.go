package source

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync/atomic"
)

// ExecSource runs a bridge command and reads payload lines from its stdout.
// Stderr is forwarded to the configured writer.
type ExecSource struct {
	command string
	args    []string
	stderr  io.Writer
	seq     atomic.Uint64
}

// NewExecSource creates a source that runs the given command with arguments.
func NewExecSource(command string, args []string, stderr io.Writer) *ExecSource {
	return &ExecSource{
		command: command,
		args:    args,
		stderr:  stderr,
	}
}

// Name returns the source identifier.
func (s *ExecSource) Name() string {
	return fmt.Sprintf("exec:%s", s.command)
}

// Start executes the command and returns a channel of payload lines.
// The channel is closed when the command exits or ctx is cancelled.
func (s *ExecSource) Start(ctx context.Context) (<-chan Line, error) {
	cmd := exec.CommandContext(ctx, s.command, s.args...)
	cmd.Stderr = s.stderr

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("source: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("source: start command: %w", err)
	}

	ch := make(chan Line, chanSize)

	go func() {
		defer close(ch)
		scanLines(ctx, newScanner(stdoutPipe), s.Name(), &s.seq, ch)
		// Unblock the child if we stopped reading early.
		_, _ = io.Copy(io.Discard, stdoutPipe)
		_ = cmd.Wait()
	}()

	return ch, nil
}
