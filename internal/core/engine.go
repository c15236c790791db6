// Package core owns the ingestion and windowing state and applies every
// command to it.
package core

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Geun-Oh/accelx/internal/buffer"
	"github.com/Geun-Oh/accelx/internal/clock"
	"github.com/Geun-Oh/accelx/internal/filter"
	"github.com/Geun-Oh/accelx/internal/monitor"
	"github.com/Geun-Oh/accelx/internal/parser"
	"github.com/Geun-Oh/accelx/internal/sample"
	"github.com/Geun-Oh/accelx/internal/sink"
	"github.com/Geun-Oh/accelx/internal/window"
)

var (
	// ErrMalformedPayload reports an arrival body that could not be parsed.
	// Engine state is unchanged.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrPersistence reports a recording failure. The samples were still
	// buffered and the recording session is closed.
	ErrPersistence = errors.New("persistence failure")
	// ErrUnknownCommand is returned by Apply for command types it does not handle.
	ErrUnknownCommand = errors.New("unknown command")
)

// Recorder is the persistence collaborator.
type Recorder interface {
	Start(name string) (sink.Session, error)
	Stop() (sink.Session, error)
	Active() (sink.Session, bool)
	WriteRow(s sample.Sample) error
}

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	Capacity      int
	WindowSeconds float64
	MinWindow     float64
	MaxWindow     float64
	MaxIdle       time.Duration
	AutoReset     bool
	Density       monitor.DensityConfig
	Scale         window.ScaleConfig
	Filter        filter.Filter
	Recorder      Recorder
	Logger        *log.Logger
	Now           func() time.Time
}

// Defaults for Options.
const (
	DefaultWindowSeconds = 10.0
	DefaultMinWindow     = 2.0
	DefaultMaxWindow     = 30.0
)

// Engine is the single state-transition point between the ingest path, the
// periodic timers and the control inputs.
type Engine struct {
	// mu serializes the ingest transaction with resets and epoch reads.
	mu        sync.Mutex
	ring      *buffer.Ring
	clock     *clock.Virtual
	flow      *monitor.Flow
	density   *monitor.Density
	stats     *monitor.Stats
	extractor *window.Extractor
	filter    filter.Filter
	recorder  Recorder
	logger    *log.Logger
	now       func() time.Time

	epoch     uint64
	cursor    uint64 // ring position of the last Extend
	seconds   float64
	minWindow float64
	maxWindow float64
	message   string

	streamActive atomic.Bool

	dataset          []sample.Sample
	datasetName      string
	datasetPublished bool
}

// New builds an engine from opts.
func New(opts Options) *Engine {
	if opts.MinWindow <= 0 {
		opts.MinWindow = DefaultMinWindow
	}
	if opts.MaxWindow < opts.MinWindow {
		opts.MaxWindow = math.Max(DefaultMaxWindow, opts.MinWindow)
	}
	if opts.WindowSeconds <= 0 {
		opts.WindowSeconds = DefaultWindowSeconds
	}
	if opts.Filter == nil {
		opts.Filter = filter.Default()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Scale == (window.ScaleConfig{}) {
		opts.Scale = window.DefaultScale()
	}

	e := &Engine{
		ring:      buffer.NewRing(opts.Capacity),
		clock:     clock.New(clock.DefaultUnit),
		flow:      monitor.NewFlow(opts.MaxIdle, opts.AutoReset),
		density:   monitor.NewDensity(opts.Density),
		stats:     monitor.NewStats(),
		extractor: window.NewExtractor(opts.Scale),
		filter:    opts.Filter,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
		now:       opts.Now,
		minWindow: opts.MinWindow,
		maxWindow: opts.MaxWindow,
	}
	e.seconds = e.clampWindow(opts.WindowSeconds)
	e.streamActive.Store(true)
	return e
}

// Apply dispatches cmd to its transition.
func (e *Engine) Apply(cmd Command) (Outcome, error) {
	switch c := cmd.(type) {
	case Arrival:
		return e.arrive(c)
	case Reset:
		e.reset()
		return e.withStatus(Outcome{}), nil
	case WindowResize:
		e.resize(c.Seconds)
		return e.withStatus(Outcome{}), nil
	case Tick:
		return e.tick(c.At), nil
	case Extend:
		return e.extend(), nil
	case Check:
		return e.check(c.At), nil
	case SetStream:
		e.setStream(c.Active)
		return e.withStatus(Outcome{}), nil
	case LoadDataset:
		e.loadDataset(c.Samples, c.Name)
		return e.withStatus(Outcome{}), nil
	case ClearDataset:
		e.clearDataset()
		return e.withStatus(Outcome{}), nil
	case Record:
		return e.record(c)
	default:
		return Outcome{}, fmt.Errorf("core: %w: %T", ErrUnknownCommand, cmd)
	}
}

// arrive runs the ingest transaction for one payload.
func (e *Engine) arrive(c Arrival) (Outcome, error) {
	if !e.streamActive.Load() {
		return Outcome{Paused: true}, nil
	}

	entries, ignored, err := parser.DecodePayload(c.Body, e.filter)
	if err != nil {
		e.stats.RecordRejected()
		return Outcome{}, fmt.Errorf("core: arrival: %w: %w", ErrMalformedPayload, err)
	}
	e.stats.RecordIgnored(ignored)
	if len(entries) == 0 {
		return Outcome{Ignored: ignored}, nil
	}

	at := c.At
	if at.IsZero() {
		at = e.now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch prev := e.flow.MarkArrival(at); prev {
	case monitor.NeedsReset:
		e.clearLocked()
		e.logger.Info("stream resumed after idle, history cleared", "epoch", e.epoch)
	case monitor.Paused:
		e.logger.Info("stream resumed")
	}

	if e.clock.EstablishIfUnset(entries[0].Time, at) {
		e.logger.Info("epoch established", "epoch", e.epoch, "base", entries[0].Time)
	}

	batch := buffer.GetBatch()
	defer buffer.PutBatch(batch)
	for _, en := range entries {
		*batch = append(*batch, sample.Sample{
			T: e.clock.ToVirtual(en.Time),
			X: en.Values.X,
			Y: en.Values.Y,
			Z: en.Values.Z,
		})
	}
	e.ring.AppendBatch(*batch)
	e.density.RecordArrivalBatch(len(*batch))
	e.stats.RecordBatch(len(*batch))

	out := Outcome{Accepted: len(*batch), Ignored: ignored}
	if e.recorder == nil {
		return out, nil
	}

	var persistErr error
	for _, s := range *batch {
		if err := e.recorder.WriteRow(s); err != nil && persistErr == nil {
			persistErr = err
		}
	}
	if persistErr != nil {
		e.message = "recording failed: " + persistErr.Error()
		e.logger.Warn("recording disabled", "err", persistErr)
		return out, fmt.Errorf("core: arrival: %w: %w", ErrPersistence, persistErr)
	}
	return out, nil
}

func (e *Engine) reset() {
	e.mu.Lock()
	e.clearLocked()
	e.flow.Reset()
	e.message = ""
	e.mu.Unlock()
	e.logger.Info("reset", "epoch", e.Epoch())
}

// clearLocked empties per-epoch state and starts a new epoch. Must be called
// with mu held.
func (e *Engine) clearLocked() {
	e.ring.Clear()
	e.clock.Reset()
	e.density.Reset()
	e.stats.ResetEpoch()
	e.extractor.ResetBounds()
	e.cursor = 0
	e.epoch++
	e.datasetPublished = false
}

func (e *Engine) resize(seconds float64) {
	e.mu.Lock()
	e.seconds = e.clampWindow(seconds)
	e.datasetPublished = false
	e.mu.Unlock()
}

func (e *Engine) clampWindow(seconds float64) float64 {
	if math.IsNaN(seconds) {
		return e.minWindow
	}
	return math.Min(e.maxWindow, math.Max(e.minWindow, seconds))
}

// tick extracts the display window. The frame is nil when there is nothing
// new to draw: no epoch yet, an idle or paused stream (the display holds its
// last frame) or a dataset frame that was already handed out.
func (e *Engine) tick(at time.Time) Outcome {
	e.mu.Lock()
	if e.dataset != nil {
		if e.datasetPublished {
			e.mu.Unlock()
			return Outcome{}
		}
		e.datasetPublished = true
		ds, epoch, seconds := e.dataset, e.epoch, e.seconds
		e.mu.Unlock()

		f := e.extractor.ExtractAll(append([]sample.Sample(nil), ds...), seconds)
		f.Epoch = epoch
		return Outcome{Frame: &f}
	}

	if !e.streamActive.Load() || e.flow.State().Idle() || !e.clock.IsEstablished() {
		e.mu.Unlock()
		return Outcome{}
	}
	now := e.clock.Now(at)
	snap := e.ring.Snapshot()
	epoch, seconds := e.epoch, e.seconds
	e.mu.Unlock()

	f := e.extractor.Extract(now, seconds, snap)
	f.Epoch = epoch
	return Outcome{Frame: &f}
}

func (e *Engine) extend() Outcome {
	e.mu.Lock()
	samples, cursor := e.extractor.NewSince(e.ring, e.cursor)
	e.cursor = cursor
	epoch := e.epoch
	e.mu.Unlock()

	if len(samples) == 0 {
		return Outcome{}
	}
	return Outcome{Delta: &window.Delta{
		Epoch:     epoch,
		Samples:   samples,
		MaxLength: e.ring.Cap(),
	}}
}

func (e *Engine) check(at time.Time) Outcome {
	state, changed := e.flow.Check(at)
	if changed {
		e.logger.Info("stream idle", "state", state, "max_idle", e.flow.MaxIdle())
	}
	if pps, ok := e.density.Update(at); ok {
		e.logger.Debug("density updated", "pps", fmt.Sprintf("%.1f", pps))
	}
	st := e.statusAt(at)
	return Outcome{Status: &st, Transition: changed}
}

func (e *Engine) setStream(active *bool) {
	next := !e.streamActive.Load()
	if active != nil {
		next = *active
	}
	e.streamActive.Store(next)
	e.logger.Info("stream toggled", "active", next)
}

func (e *Engine) loadDataset(samples []sample.Sample, name string) {
	e.mu.Lock()
	// Non-nil even when empty: a header-only file is still a loaded dataset.
	e.dataset = append(make([]sample.Sample, 0, len(samples)), samples...)
	e.datasetName = name
	e.datasetPublished = false
	e.extractor.ResetBounds()
	e.mu.Unlock()

	e.streamActive.Store(false)
	e.logger.Info("dataset loaded", "name", name, "samples", len(samples))
}

func (e *Engine) clearDataset() {
	e.mu.Lock()
	e.dataset = nil
	e.datasetName = ""
	e.clearLocked()
	e.flow.Reset()
	e.mu.Unlock()

	e.streamActive.Store(true)
	e.logger.Info("dataset cleared, live stream resumed")
}

func (e *Engine) record(c Record) (Outcome, error) {
	if e.recorder == nil {
		return Outcome{}, fmt.Errorf("core: record: %w: no recorder configured", ErrPersistence)
	}

	var (
		sess sink.Session
		err  error
	)
	if c.Active {
		sess, err = e.recorder.Start(c.Name)
	} else {
		sess, err = e.recorder.Stop()
	}

	e.mu.Lock()
	switch {
	case err != nil && c.Active:
		e.message = "recording failed: " + err.Error()
	case err == nil:
		e.message = ""
	}
	e.mu.Unlock()

	if err != nil {
		if errors.Is(err, sink.ErrNotRecording) {
			return e.withStatus(Outcome{}), fmt.Errorf("core: record: %w", err)
		}
		e.logger.Warn("recording toggle failed", "active", c.Active, "err", err)
		return e.withStatus(Outcome{}), fmt.Errorf("core: record: %w: %w", ErrPersistence, err)
	}

	if c.Active {
		e.logger.Info("recording started", "path", sess.Path)
	} else {
		e.logger.Info("recording stopped", "path", sess.Path, "rows", sess.Rows)
	}
	out := e.withStatus(Outcome{Session: &sess})
	return out, nil
}

func (e *Engine) withStatus(out Outcome) Outcome {
	st := e.Status()
	out.Status = &st
	return out
}

// Epoch returns the current epoch number. It starts at 0 and increments on
// every reset.
func (e *Engine) Epoch() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch
}

// WindowSeconds returns the display window length.
func (e *Engine) WindowSeconds() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seconds
}

// Snapshot returns the buffered samples in arrival order.
func (e *Engine) Snapshot() []sample.Sample {
	return e.ring.Snapshot()
}

// StreamActive reports the administrative stream toggle.
func (e *Engine) StreamActive() bool {
	return e.streamActive.Load()
}

// Summary returns the ingest counters summary.
func (e *Engine) Summary() string {
	return e.stats.Summary(e.ring.Dropped())
}
