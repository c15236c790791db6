// Package pipeline drives the periodic timers and alternative ingest sources
// against the engine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Geun-Oh/accelx/internal/core"
	"github.com/Geun-Oh/accelx/internal/source"
)

// Applier is the engine as seen by the timers.
type Applier interface {
	Apply(cmd core.Command) (core.Outcome, error)
}

// Publisher receives every outcome that carries renderable data.
type Publisher interface {
	Publish(out core.Outcome)
}

// Default intervals.
const (
	DefaultCheckInterval  = time.Second
	DefaultRenderInterval = 33 * time.Millisecond
	DefaultAppendInterval = 25 * time.Millisecond
)

// Config holds pipeline configuration.
type Config struct {
	Engine    Applier
	Publisher Publisher
	Sources   []source.Source
	Logger    *log.Logger
	Now       func() time.Time

	CheckInterval  time.Duration // flow check, density update, status
	RenderInterval time.Duration // window extraction
	AppendInterval time.Duration // incremental deltas; <0 disables
}

// Run starts one goroutine per timer and per source and blocks until ctx is
// cancelled. The timers never wait on each other, so a slow renderer or a
// stalled source cannot hold up the rest.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.Engine == nil {
		return fmt.Errorf("pipeline: engine is required")
	}
	if cfg.Publisher == nil {
		return fmt.Errorf("pipeline: publisher is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.RenderInterval <= 0 {
		cfg.RenderInterval = DefaultRenderInterval
	}
	if cfg.AppendInterval == 0 {
		cfg.AppendInterval = DefaultAppendInterval
	}

	var wg sync.WaitGroup
	every := func(d time.Duration, cmd func(time.Time) core.Command) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runTicker(ctx, cfg, d, cmd)
		}()
	}

	every(cfg.CheckInterval, func(t time.Time) core.Command { return core.Check{At: t} })
	every(cfg.RenderInterval, func(t time.Time) core.Command { return core.Tick{At: t} })
	if cfg.AppendInterval > 0 {
		every(cfg.AppendInterval, func(time.Time) core.Command { return core.Extend{} })
	}

	for _, src := range cfg.Sources {
		ch, err := src.Start(ctx)
		if err != nil {
			cfg.Logger.Error("source failed to start", "source", src.Name(), "err", err)
			continue
		}
		cfg.Logger.Info("reading payloads", "source", src.Name())
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			feed(ctx, cfg, name, ch)
		}(src.Name())
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

func runTicker(ctx context.Context, cfg *Config, d time.Duration, cmd func(time.Time) core.Command) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			out, err := cfg.Engine.Apply(cmd(cfg.Now()))
			if err != nil {
				cfg.Logger.Error("timer command failed", "err", err)
				continue
			}
			cfg.Publisher.Publish(out)
		}
	}
}

// feed applies each line as an Arrival. It returns when the source closes
// or ctx is cancelled; a source blocked in a read is left behind rather than
// holding up shutdown.
func feed(ctx context.Context, cfg *Config, name string, ch <-chan source.Line) {
	for {
		var line source.Line
		select {
		case <-ctx.Done():
			return
		case l, ok := <-ch:
			if !ok {
				cfg.Logger.Info("source finished", "source", name)
				return
			}
			line = l
		}

		out, err := cfg.Engine.Apply(core.Arrival{Body: line.Data, At: line.Received})
		switch {
		case errors.Is(err, core.ErrMalformedPayload):
			cfg.Logger.Warn("malformed payload", "source", name, "line", line.Seq, "err", err)
		case err != nil:
			cfg.Logger.Warn("arrival failed", "source", name, "line", line.Seq, "err", err)
		default:
			cfg.Logger.Debug("arrival", "source", name, "accepted", out.Accepted, "ignored", out.Ignored)
		}
	}
}
