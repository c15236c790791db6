package monitor

import (
	"math"
	"sync"
	"time"
)

// Density defaults.
const (
	DefaultDensitySeed     = 20.0
	DefaultDensityAlpha    = 0.3
	DefaultDensityFloor    = 5.0
	DefaultDensityInterval = 3 * time.Second
)

// DensityConfig tunes the estimator.
type DensityConfig struct {
	Seed     float64       // initial points per second
	Alpha    float64       // smoothing factor in (0, 1]
	Floor    float64       // minimum reported rate
	Interval time.Duration // minimum time between computations
}

// Density estimates a smoothed samples-per-second rate from arrival batches.
// The estimate is advisory: it sizes decimation and is never used to gate
// buffering.
type Density struct {
	mu          sync.Mutex
	cfg         DensityConfig
	pps         float64
	primed      bool // false until the first computation since Reset
	windowStart time.Time
	count       int
}

// NewDensity creates an estimator seeded with cfg.Seed.
func NewDensity(cfg DensityConfig) *Density {
	if cfg.Seed <= 0 {
		cfg.Seed = DefaultDensitySeed
	}
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = DefaultDensityAlpha
	}
	if cfg.Floor < 0 {
		cfg.Floor = DefaultDensityFloor
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultDensityInterval
	}
	return &Density{cfg: cfg, pps: cfg.Seed}
}

// RecordArrivalBatch counts n newly buffered samples.
func (d *Density) RecordArrivalBatch(n int) {
	if n <= 0 {
		return
	}
	d.mu.Lock()
	d.count += n
	d.mu.Unlock()
}

// Update recomputes the estimate if at least the configured interval has
// elapsed since the window started. It returns the current estimate and
// whether a new value was computed.
//
// The window (re)starts when nothing has been counted yet, so a silent
// stream does not decay the estimate toward the floor.
func (d *Density) Update(now time.Time) (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.windowStart.IsZero() || d.count == 0 {
		d.windowStart = now
		d.count = 0
		return d.pps, false
	}

	elapsed := now.Sub(d.windowStart)
	if elapsed < d.cfg.Interval {
		return d.pps, false
	}

	rate := float64(d.count) / elapsed.Seconds()
	if d.primed {
		rate = d.pps*(1-d.cfg.Alpha) + rate*d.cfg.Alpha
	}
	d.pps = math.Max(d.cfg.Floor, rate)
	d.primed = true

	d.windowStart = now
	d.count = 0
	return d.pps, true
}

// PointsPerSecond returns the current estimate.
func (d *Density) PointsPerSecond() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pps
}

// Pending returns the number of samples counted in the open window.
func (d *Density) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// Reset restores the seeded default.
func (d *Density) Reset() {
	d.mu.Lock()
	d.pps = d.cfg.Seed
	d.primed = false
	d.windowStart = time.Time{}
	d.count = 0
	d.mu.Unlock()
}
