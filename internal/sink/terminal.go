package sink

import (
	"fmt"
	"io"
	"os"

	"github.com/Geun-Oh/accelx/internal/sample"
)

// color ANSI escape codes.
const (
	colorReset = "\033[0m"
	colorBlue  = "\033[34m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorGray  = "\033[90m"
)

// TerminalSink echoes samples to a terminal with optional ANSI color.
type TerminalSink struct {
	w     io.Writer
	color bool
}

// NewTerminalSink creates a sink that writes to the given writer.
// If color is true, each axis is printed in its trace color.
func NewTerminalSink(w io.Writer, color bool) *TerminalSink {
	if w == nil {
		w = os.Stdout
	}
	return &TerminalSink{w: w, color: color}
}

// Write outputs a formatted sample.
func (s *TerminalSink) Write(smp *sample.Sample) error {
	if !s.color {
		_, err := fmt.Fprintln(s.w, smp.Format())
		return err
	}
	_, err := fmt.Fprintf(s.w, "%s%9.3f%s %sx=%+.4f %sy=%+.4f %sz=%+.4f%s\n",
		colorGray, smp.T, colorReset,
		colorBlue, smp.X,
		colorRed, smp.Y,
		colorGreen, smp.Z, colorReset,
	)
	return err
}

// Flush is a no-op for terminal output.
func (s *TerminalSink) Flush() error { return nil }

// Close is a no-op for terminal output.
func (s *TerminalSink) Close() error { return nil }

// Name returns the sink identifier.
func (s *TerminalSink) Name() string { return "terminal" }
