package monitor

import (
	"fmt"
	"sync"
	"time"
)

// State is the liveness state of the inbound stream.
type State int

const (
	// Active means arrivals are within the idle threshold.
	Active State = iota
	// Paused means the idle threshold was exceeded; the next arrival resumes
	// the stream without clearing history.
	Paused
	// NeedsReset means the stream went idle and the next arrival must reset
	// the buffer, clock and density before it is recorded.
	NeedsReset
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Paused:
		return "paused"
	case NeedsReset:
		return "needs-reset"
	default:
		return "unknown"
	}
}

// Idle reports whether the state is one of the idle states.
func (s State) Idle() bool {
	return s == Paused || s == NeedsReset
}

// MarshalText lets State appear by name in JSON and YAML.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for _, st := range [...]State{Active, Paused, NeedsReset} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("monitor: unknown flow state %q", b)
}

// DefaultMaxIdle is the idle threshold used when none is configured.
const DefaultMaxIdle = 3 * time.Second

// Flow tracks staleness of the inbound stream. State only changes through
// MarkArrival, Check and Reset.
type Flow struct {
	mu          sync.Mutex
	maxIdle     time.Duration
	autoReset   bool
	state       State
	lastArrival time.Time
}

// NewFlow creates a monitor. With autoReset an idle stream is flagged
// NeedsReset; without it the stream merely pauses.
func NewFlow(maxIdle time.Duration, autoReset bool) *Flow {
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	return &Flow{maxIdle: maxIdle, autoReset: autoReset}
}

// MarkArrival records an arrival at now, returns the stream to Active and
// returns the state it was in before. A previous state of NeedsReset obliges
// the caller to reset buffered state before recording the arrival.
func (f *Flow) MarkArrival(now time.Time) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev := f.state
	f.state = Active
	f.lastArrival = now
	return prev
}

// Check evaluates idleness at now. It returns the current state and whether
// this call changed it. Before the first arrival it never transitions.
func (f *Flow) Check(now time.Time) (State, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.lastArrival.IsZero() || f.state != Active {
		return f.state, false
	}
	if now.Sub(f.lastArrival) <= f.maxIdle {
		return f.state, false
	}
	// Paused and NeedsReset are entered in the same check.
	f.state = Paused
	if f.autoReset {
		f.state = NeedsReset
	}
	return f.state, true
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// LastArrival returns the wall-clock time of the latest arrival.
func (f *Flow) LastArrival() (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastArrival, !f.lastArrival.IsZero()
}

// MaxIdle returns the configured idle threshold.
func (f *Flow) MaxIdle() time.Duration {
	return f.maxIdle
}

// Reset forgets all arrivals and returns to Active.
func (f *Flow) Reset() {
	f.mu.Lock()
	f.state = Active
	f.lastArrival = time.Time{}
	f.mu.Unlock()
}
