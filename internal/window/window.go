// Package window turns buffered samples into the trailing display window
// handed to renderers.
package window

import (
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/Geun-Oh/accelx/internal/sample"
)

// ScaleConfig controls the y-axis bounds reported with each frame.
type ScaleConfig struct {
	Fixed      bool    // use FixedMin/FixedMax verbatim
	FixedMin   float64 // lower bound in fixed mode
	FixedMax   float64 // upper bound in fixed mode
	Margin     float64 // padding added around the observed range
	Rate       float64 // blend factor toward the new bounds per extraction
	MinSpan    float64 // smallest allowed max-min
	InitialMin float64 // bounds before any data
	InitialMax float64
}

// DefaultScale returns the auto-scaling defaults.
func DefaultScale() ScaleConfig {
	return ScaleConfig{
		FixedMin:   -0.15,
		FixedMax:   0.15,
		Margin:     0.05,
		Rate:       0.2,
		MinSpan:    0.1,
		InitialMin: -0.1,
		InitialMax: 0.1,
	}
}

// Frame is one extracted display window. It is derived on every tick and
// has no identity beyond the epoch it belongs to.
type Frame struct {
	Epoch   uint64          `json:"epoch"`
	Start   float64         `json:"start"`
	End     float64         `json:"end"`
	Samples []sample.Sample `json:"samples"`
	YMin    float64         `json:"y_min"`
	YMax    float64         `json:"y_max"`
	Dataset bool            `json:"dataset,omitempty"`
}

// Delta carries the samples appended since the previous hand-off, for
// renderers that extend existing traces instead of redrawing the window.
// Traces are indexed by sample.Axes; MaxLength is the trace cap.
type Delta struct {
	Epoch     uint64          `json:"epoch"`
	Samples   []sample.Sample `json:"samples"`
	MaxLength int             `json:"max_length"`
}

// SinceReader is the part of the sample buffer NewSince depends on.
type SinceReader interface {
	Since(cursor uint64) ([]sample.Sample, uint64)
}

// Extractor selects the visible samples and maintains smoothed y bounds.
type Extractor struct {
	mu   sync.Mutex
	cfg  ScaleConfig
	yMin float64
	yMax float64
}

// NewExtractor creates an extractor with bounds at their initial values.
func NewExtractor(cfg ScaleConfig) *Extractor {
	e := &Extractor{cfg: cfg}
	e.ResetBounds()
	return e
}

// Extract returns the samples with max(0, now-seconds) <= t <= now in time
// order, plus the y bounds after folding this window in. The snapshot may be
// reordered in place.
func (e *Extractor) Extract(now, seconds float64, snapshot []sample.Sample) Frame {
	start := math.Max(0, now-seconds)
	visible := Select(snapshot, start, now)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.foldLocked(visible)
	return Frame{
		Start:   start,
		End:     now,
		Samples: visible,
		YMin:    e.yMin,
		YMax:    e.yMax,
	}
}

// ExtractAll frames an entire static dataset, ignoring virtual time. The
// frame spans at least 0.1 seconds; an empty dataset spans [0, seconds].
func (e *Extractor) ExtractAll(samples []sample.Sample, seconds float64) Frame {
	sortByTime(samples)
	f := Frame{Samples: samples, Dataset: true, End: seconds}
	if len(samples) > 0 {
		f.Start = samples[0].T
		f.End = math.Max(samples[len(samples)-1].T, f.Start+0.1)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.foldLocked(samples)
	f.YMin, f.YMax = e.yMin, e.yMax
	return f
}

// NewSince returns exactly the samples appended after lastExtended and the
// position to pass on the next call.
func (e *Extractor) NewSince(src SinceReader, lastExtended uint64) ([]sample.Sample, uint64) {
	return src.Since(lastExtended)
}

// Bounds returns the current y bounds.
func (e *Extractor) Bounds() (float64, float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.yMin, e.yMax
}

// ResetBounds restores the initial (or fixed) bounds.
func (e *Extractor) ResetBounds() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cfg.Fixed {
		e.yMin, e.yMax = e.cfg.FixedMin, e.cfg.FixedMax
		return
	}
	e.yMin, e.yMax = e.cfg.InitialMin, e.cfg.InitialMax
}

// foldLocked blends the range of samples into the bounds. Must be called with lock held.
func (e *Extractor) foldLocked(samples []sample.Sample) {
	if e.cfg.Fixed || len(samples) == 0 {
		return
	}
	lo, hi, ok := valueRange(samples)
	if !ok {
		return
	}

	newMin := lo - e.cfg.Margin
	newMax := hi + e.cfg.Margin
	if math.Abs(newMax-newMin) < e.cfg.MinSpan {
		center := (newMax + newMin) / 2
		newMin = center - e.cfg.MinSpan/2
		newMax = center + e.cfg.MinSpan/2
	}

	e.yMin = e.yMin*(1-e.cfg.Rate) + newMin*e.cfg.Rate
	e.yMax = e.yMax*(1-e.cfg.Rate) + newMax*e.cfg.Rate
}

// Select returns the contiguous run of samples with start <= t <= end,
// sorting the input by time first if arrival order was violated.
func Select(samples []sample.Sample, start, end float64) []sample.Sample {
	sortByTime(samples)
	lo := sort.Search(len(samples), func(i int) bool { return samples[i].T >= start })
	hi := sort.Search(len(samples), func(i int) bool { return samples[i].T > end })
	if lo >= hi {
		return []sample.Sample{}
	}
	return samples[lo:hi]
}

func sortByTime(samples []sample.Sample) {
	byTime := func(a, b sample.Sample) int {
		switch {
		case a.T < b.T:
			return -1
		case a.T > b.T:
			return 1
		default:
			return 0
		}
	}
	if !slices.IsSortedFunc(samples, byTime) {
		slices.SortStableFunc(samples, byTime)
	}
}

// valueRange returns the min and max over all axes, skipping NaNs.
func valueRange(samples []sample.Sample) (float64, float64, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		for _, a := range sample.Axes {
			v := s.Value(a)
			if math.IsNaN(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) || math.IsInf(hi, -1) {
		return 0, 0, false
	}
	return lo, hi, true
}
