package core

import (
	"time"

	"github.com/Geun-Oh/accelx/internal/sample"
	"github.com/Geun-Oh/accelx/internal/sink"
	"github.com/Geun-Oh/accelx/internal/window"
)

// Command is one input to Engine.Apply. Every state transition of the
// engine is triggered by exactly one command value.
type Command interface {
	command()
}

// Arrival carries one raw payload body received at At.
type Arrival struct {
	Body []byte
	At   time.Time
}

// Reset clears the buffer, clock, density and epoch counters unconditionally.
type Reset struct{}

// WindowResize changes the display window length. Seconds is clamped to the
// configured bounds.
type WindowResize struct {
	Seconds float64
}

// Tick asks for the display window at wall-clock time At.
type Tick struct {
	At time.Time
}

// Extend asks for the samples appended since the previous Extend.
type Extend struct{}

// Check runs the flow-liveness check and density update at At.
type Check struct {
	At time.Time
}

// SetStream changes the administrative stream toggle. A nil Active flips it.
type SetStream struct {
	Active *bool
}

// LoadDataset swaps the window source to a static dataset and pauses the
// live stream.
type LoadDataset struct {
	Samples []sample.Sample
	Name    string
}

// ClearDataset drops the dataset, resets live state and reactivates the stream.
type ClearDataset struct{}

// Record starts (Active) or stops the recording session.
type Record struct {
	Active bool
	Name   string
}

func (Arrival) command()      {}
func (Reset) command()        {}
func (WindowResize) command() {}
func (Tick) command()         {}
func (Extend) command()       {}
func (Check) command()        {}
func (SetStream) command()    {}
func (LoadDataset) command()  {}
func (ClearDataset) command() {}
func (Record) command()       {}

// Outcome is the result of applying a command. Only the fields relevant to
// the command are set.
type Outcome struct {
	Accepted   int           // samples buffered by an Arrival
	Ignored    int           // entries an Arrival skipped
	Paused     bool          // the Arrival was acknowledged without recording
	Frame      *window.Frame // set by Tick when there is something to draw
	Delta      *window.Delta // set by Extend when samples were appended
	Status     *Status       // set by Check and by the control commands
	Transition bool          // Check changed the flow state
	Session    *sink.Session // set by Record
}
