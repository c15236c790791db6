package core

import (
	"time"

	"github.com/Geun-Oh/accelx/internal/monitor"
)

// ConnectedWithin is the arrival age under which a stream counts as connected.
const ConnectedWithin = 5 * time.Second

// Status is the snapshot handed to status renderers. Durations are seconds.
type Status struct {
	State           monitor.State `json:"state"`
	HasData         bool          `json:"has_data"`
	Connected       bool          `json:"connected"`
	TotalPoints     uint64        `json:"total_points"`
	LastArrivalAge  float64       `json:"last_arrival_age"`
	PointsPerSecond float64       `json:"points_per_second"`
	Buffered        int           `json:"buffered"`
	Capacity        int           `json:"capacity"`
	Dropped         uint64        `json:"dropped"`
	Elapsed         float64       `json:"elapsed"`
	Epoch           uint64        `json:"epoch"`
	WindowSeconds   float64       `json:"window_seconds"`
	StreamActive    bool          `json:"stream_active"`
	DatasetLoaded   bool          `json:"dataset_loaded"`
	DatasetName     string        `json:"dataset_name,omitempty"`
	Recording       bool          `json:"recording"`
	RecordingPath   string        `json:"recording_path,omitempty"`
	Message         string        `json:"message,omitempty"`
}

// Status reports the engine state at the current wall-clock time.
func (e *Engine) Status() Status {
	return e.statusAt(e.now())
}

func (e *Engine) statusAt(at time.Time) Status {
	e.mu.Lock()
	st := Status{
		State:           e.flow.State(),
		TotalPoints:     e.stats.Points(),
		PointsPerSecond: e.density.PointsPerSecond(),
		Buffered:        e.ring.Len(),
		Capacity:        e.ring.Cap(),
		Dropped:         e.ring.Dropped(),
		Epoch:           e.epoch,
		WindowSeconds:   e.seconds,
		StreamActive:    e.streamActive.Load(),
		DatasetLoaded:   e.dataset != nil,
		DatasetName:     e.datasetName,
		Message:         e.message,
	}
	if e.clock.IsEstablished() {
		st.Elapsed = e.clock.Now(at)
	}
	e.mu.Unlock()

	if last, ok := e.flow.LastArrival(); ok {
		st.HasData = true
		st.LastArrivalAge = at.Sub(last).Seconds()
		st.Connected = at.Sub(last) < ConnectedWithin
	}
	if e.recorder != nil {
		if sess, ok := e.recorder.Active(); ok {
			st.Recording = true
			st.RecordingPath = sess.Path
		}
	}
	return st
}
