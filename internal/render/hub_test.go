package render

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Geun-Oh/accelx/internal/core"
	"github.com/Geun-Oh/accelx/internal/sample"
	"github.com/Geun-Oh/accelx/internal/window"
)

type recorder struct {
	frames  chan window.Frame
	deltas  chan window.Delta
	updates chan core.Status
}

func newRecorder() *recorder {
	return &recorder{
		frames:  make(chan window.Frame, 16),
		deltas:  make(chan window.Delta, 16),
		updates: make(chan core.Status, 16),
	}
}

func (r *recorder) OnWindowUpdate(f window.Frame) { r.frames <- f }
func (r *recorder) OnAppend(d window.Delta)       { r.deltas <- d }
func (r *recorder) OnStatusChange(s core.Status)  { r.updates <- s }

func TestHubDeliversEveryKind(t *testing.T) {
	h := NewHub(0, nil)
	defer h.Close()

	rec := newRecorder()
	id, cancel := h.Subscribe(rec)
	defer cancel()
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, h.Len())

	h.Publish(core.Outcome{
		Frame:  &window.Frame{Epoch: 3, End: 1.5},
		Delta:  &window.Delta{Epoch: 3, MaxLength: 10},
		Status: &core.Status{TotalPoints: 7},
	})

	select {
	case f := <-rec.frames:
		assert.Equal(t, 1.5, f.End)
	case <-time.After(time.Second):
		t.Fatal("frame not delivered")
	}
	select {
	case d := <-rec.deltas:
		assert.Equal(t, 10, d.MaxLength)
	case <-time.After(time.Second):
		t.Fatal("delta not delivered")
	}
	select {
	case s := <-rec.updates:
		assert.Equal(t, uint64(7), s.TotalPoints)
	case <-time.After(time.Second):
		t.Fatal("status not delivered")
	}
}

func TestHubDropsForSlowRenderer(t *testing.T) {
	h := NewHub(2, nil)
	defer h.Close()

	release := make(chan struct{})
	var calls atomic.Int32
	id, cancel := h.Subscribe(Funcs{Status: func(core.Status) {
		calls.Add(1)
		<-release
	}})

	start := time.Now()
	for i := 0; i < 50; i++ {
		h.PublishStatus(core.Status{TotalPoints: uint64(i)})
	}
	assert.Less(t, time.Since(start), time.Second, "publishing must not block on a stuck renderer")
	assert.Positive(t, h.Dropped(id))

	close(release)
	cancel()
	assert.Zero(t, h.Len())
	assert.LessOrEqual(t, int(calls.Load()), 3)
}

func TestHubMergesDeltasForSlowRenderer(t *testing.T) {
	h := NewHub(4, nil)
	defer h.Close()

	release := make(chan struct{})
	var (
		mu   sync.Mutex
		got  []sample.Sample
		once sync.Once
	)
	_, cancel := h.Subscribe(Funcs{Append: func(d window.Delta) {
		once.Do(func() { <-release })
		mu.Lock()
		got = append(got, d.Samples...)
		mu.Unlock()
	}})
	defer cancel()

	for i := 0; i < 100; i++ {
		h.Publish(core.Outcome{Delta: &window.Delta{
			Samples:   []sample.Sample{{T: float64(i)}},
			MaxLength: 1000,
		}})
	}
	close(release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 100
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i, s := range got {
		assert.Equal(t, float64(i), s.T)
	}
}

func TestHubDeltaFromNewEpochReplacesPending(t *testing.T) {
	s := &subscriber{wake: make(chan struct{}, 1)}
	s.merge(&window.Delta{Epoch: 1, Samples: []sample.Sample{{T: 1}, {T: 2}}, MaxLength: 10})
	s.merge(&window.Delta{Epoch: 2, Samples: []sample.Sample{{T: 0}}, MaxLength: 10})

	d := s.takePending()
	require.NotNil(t, d)
	assert.Equal(t, uint64(2), d.Epoch)
	assert.Equal(t, []sample.Sample{{T: 0}}, d.Samples)
	assert.Nil(t, s.takePending())

	for i := 0; i < 5; i++ {
		s.merge(&window.Delta{Epoch: 2, Samples: []sample.Sample{{T: float64(i)}}, MaxLength: 3})
	}
	d = s.takePending()
	assert.Equal(t, []sample.Sample{{T: 2}, {T: 3}, {T: 4}}, d.Samples)
}

func TestHubCancelStopsDelivery(t *testing.T) {
	h := NewHub(4, nil)
	var got atomic.Int32
	_, cancel := h.Subscribe(Funcs{Window: func(window.Frame) { got.Add(1) }})
	cancel()

	h.Publish(core.Outcome{Frame: &window.Frame{}})
	h.Close()
	assert.Zero(t, got.Load())
}

func TestHubCloseIsIdempotentWithCancel(t *testing.T) {
	h := NewHub(1, nil)
	_, cancel := h.Subscribe(Funcs{})
	h.Close()
	require.NotPanics(t, cancel)
}
