package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFlowIdleTransition(t *testing.T) {
	f := NewFlow(3*time.Second, true)
	t0 := time.Unix(100, 0)

	assert.Equal(t, Active, f.MarkArrival(t0))

	state, changed := f.Check(t0.Add(2 * time.Second))
	assert.Equal(t, Active, state)
	assert.False(t, changed)

	state, changed = f.Check(t0.Add(3050 * time.Millisecond))
	assert.Equal(t, NeedsReset, state)
	assert.True(t, changed)
	assert.True(t, state.Idle())

	// Later checks do not report a second transition.
	_, changed = f.Check(t0.Add(10 * time.Second))
	assert.False(t, changed)

	prev := f.MarkArrival(t0.Add(3100 * time.Millisecond))
	assert.Equal(t, NeedsReset, prev)
	assert.Equal(t, Active, f.State())
}

func TestFlowPauseWithoutAutoReset(t *testing.T) {
	f := NewFlow(time.Second, false)
	t0 := time.Unix(0, 0)
	f.MarkArrival(t0)

	state, changed := f.Check(t0.Add(2 * time.Second))
	assert.Equal(t, Paused, state)
	assert.True(t, changed)
	assert.Equal(t, Paused, f.MarkArrival(t0.Add(3*time.Second)))
}

func TestFlowNoTransitionBeforeFirstArrival(t *testing.T) {
	f := NewFlow(time.Second, true)
	state, changed := f.Check(time.Unix(1e6, 0))
	assert.Equal(t, Active, state)
	assert.False(t, changed)

	_, ok := f.LastArrival()
	assert.False(t, ok)
}

func TestFlowReset(t *testing.T) {
	f := NewFlow(time.Second, true)
	t0 := time.Unix(0, 0)
	f.MarkArrival(t0)
	f.Check(t0.Add(5 * time.Second))

	f.Reset()
	assert.Equal(t, Active, f.State())
	_, ok := f.LastArrival()
	assert.False(t, ok)
}

func TestFlowDefaultThreshold(t *testing.T) {
	assert.Equal(t, DefaultMaxIdle, NewFlow(0, true).MaxIdle())
}

func TestStateText(t *testing.T) {
	b, err := NeedsReset.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "needs-reset", string(b))
	assert.Equal(t, "unknown", State(9).String())
}

func TestStateUnmarshalText(t *testing.T) {
	var s State
	assert.NoError(t, s.UnmarshalText([]byte("paused")))
	assert.Equal(t, Paused, s)
	assert.Error(t, s.UnmarshalText([]byte("sleeping")))
}
