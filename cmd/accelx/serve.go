package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Geun-Oh/accelx/internal/config"
	"github.com/Geun-Oh/accelx/internal/core"
	"github.com/Geun-Oh/accelx/internal/filter"
	"github.com/Geun-Oh/accelx/internal/parser"
	"github.com/Geun-Oh/accelx/internal/pipeline"
	"github.com/Geun-Oh/accelx/internal/render"
	"github.com/Geun-Oh/accelx/internal/sample"
	"github.com/Geun-Oh/accelx/internal/server"
	"github.com/Geun-Oh/accelx/internal/sink"
	"github.com/Geun-Oh/accelx/internal/source"
	"github.com/Geun-Oh/accelx/internal/tui"
)

type serveOptions struct {
	configPath string

	listen     string
	capacity   int
	window     float64
	maxIdle    time.Duration
	autoReset  bool
	fixedScale bool

	channel string
	match   string
	exclude []string

	tui  bool
	echo bool

	record    string
	recordDir string
	format    string

	stdin   bool
	follow  string
	exec    string
	dataset string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept sensor posts and plot the live window",
		Example: `  accelx serve --tui
  accelx serve --listen :9000 --window 5 --record walk
  accelx serve --dataset data/walk.csv --tui
  cat capture.jsonl | accelx serve --stdin --echo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmd.Flags(), opts)
		},
	}

	bindServeFlags(cmd.Flags(), opts)
	return cmd
}

func bindServeFlags(f *pflag.FlagSet, opts *serveOptions) {
	f.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")

	f.StringVarP(&opts.listen, "listen", "l", "", "HTTP listen address")
	f.IntVar(&opts.capacity, "capacity", 0, "ring buffer capacity in samples")
	f.Float64VarP(&opts.window, "window", "w", 0, "display window length in seconds")
	f.DurationVar(&opts.maxIdle, "max-idle", 0, "idle threshold before the stream is considered stopped")
	f.BoolVar(&opts.autoReset, "auto-reset", true, "reset the buffer when data resumes after an idle period")
	f.BoolVar(&opts.fixedScale, "fixed-scale", false, "use the fixed y-axis range instead of adaptive scaling")

	f.StringVar(&opts.channel, "channel", sample.Accelerometer, "sensor channel to buffer")
	f.StringVar(&opts.match, "match", "", "regex over channel names (replaces --channel)")
	f.StringSliceVar(&opts.exclude, "exclude", nil, "channel names to drop")

	f.BoolVar(&opts.tui, "tui", false, "show the interactive terminal chart")
	f.BoolVar(&opts.echo, "echo", false, "print every accepted sample to stdout (ignored with --tui)")

	f.StringVar(&opts.record, "record", "", "start recording immediately under this name")
	f.StringVar(&opts.recordDir, "record-dir", "", "directory for recordings")
	f.StringVar(&opts.format, "format", "", "recording format: csv or json")

	f.BoolVar(&opts.stdin, "stdin", false, "also read JSON payloads from stdin, one per line")
	f.StringVar(&opts.follow, "follow", "", "also read JSON payloads from a file, following appends")
	f.StringVar(&opts.exec, "exec", "", "also read JSON payloads from a command's stdout")
	f.StringVar(&opts.dataset, "dataset", "", "load a recorded CSV and show it instead of the live stream")
}

// loadConfig reads the config file and applies flags the user set
// explicitly, so flag defaults never mask file values.
func loadConfig(flags *pflag.FlagSet, opts *serveOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if flags.Changed("listen") {
		cfg.Listen = opts.listen
	}
	if flags.Changed("capacity") {
		cfg.Buffer.Capacity = opts.capacity
	}
	if flags.Changed("window") {
		cfg.Window.Seconds = opts.window
	}
	if flags.Changed("max-idle") {
		cfg.Flow.MaxIdle = opts.maxIdle
	}
	if flags.Changed("auto-reset") {
		cfg.Flow.AutoReset = opts.autoReset
	}
	if flags.Changed("fixed-scale") {
		cfg.Scale.Fixed = opts.fixedScale
	}
	if flags.Changed("record-dir") {
		cfg.Recording.Dir = opts.recordDir
	}
	if flags.Changed("format") {
		cfg.Recording.Format = opts.format
	}
	if flags.Changed("record") {
		cfg.Recording.Name = opts.record
		cfg.Recording.AutoStart = true
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildFilter(opts *serveOptions) (filter.Filter, error) {
	chain := filter.NewChain(filter.MatchAll, filter.Finite{})
	if opts.match != "" {
		re, err := filter.NewRegexFilter(opts.match)
		if err != nil {
			return nil, err
		}
		chain.Add(re)
	} else {
		chain.Add(filter.NewChannelFilter(opts.channel))
	}
	if len(opts.exclude) > 0 {
		chain.Add(filter.NewExcludeFilter(opts.exclude...))
	}
	return chain, nil
}

func buildSources(opts *serveOptions) ([]source.Source, error) {
	var sources []source.Source
	if opts.stdin {
		if opts.tui {
			return nil, errors.New("--stdin cannot be combined with --tui")
		}
		sources = append(sources, source.NewStdinSource(nil))
	}
	if opts.follow != "" {
		sources = append(sources, source.NewFileSource(opts.follow, true))
	}
	if opts.exec != "" {
		fields := strings.Fields(opts.exec)
		if len(fields) == 0 {
			return nil, errors.New("--exec: empty command")
		}
		sources = append(sources, source.NewExecSource(fields[0], fields[1:], nil))
	}
	return sources, nil
}

func runServe(ctx context.Context, flags *pflag.FlagSet, opts *serveOptions) error {
	cfg, err := loadConfig(flags, opts)
	if err != nil {
		return err
	}
	keep, err := buildFilter(opts)
	if err != nil {
		return err
	}
	sources, err := buildSources(opts)
	if err != nil {
		return err
	}

	logger, logCloser, err := newLogger(cfg.Log.Level, cfg.Log.File, opts.tui)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := sink.NewRecorder(cfg.Recording.Dir, cfg.Recording.Format)
	recorder.SetLogger(logger.WithPrefix("recorder"))
	if opts.echo && !opts.tui {
		recorder.Mirror(sink.NewTerminalSink(os.Stdout, isatty.IsTerminal(os.Stdout.Fd())))
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.Error("closing recording", "err", err)
		}
	}()

	engine := core.New(core.Options{
		Capacity:      cfg.Buffer.Capacity,
		WindowSeconds: cfg.Window.Seconds,
		MinWindow:     cfg.Window.Min,
		MaxWindow:     cfg.Window.Max,
		MaxIdle:       cfg.Flow.MaxIdle,
		AutoReset:     cfg.Flow.AutoReset,
		Density:       cfg.DensityConfig(),
		Scale:         cfg.ScaleConfig(),
		Filter:        keep,
		Recorder:      recorder,
		Logger:        logger.WithPrefix("engine"),
	})
	defer func() {
		logger.Info("session summary", "summary", engine.Summary())
	}()

	if opts.dataset != "" {
		if err := loadDataset(engine, opts.dataset); err != nil {
			return err
		}
		logger.Info("dataset loaded", "file", opts.dataset)
	}
	if cfg.Recording.AutoStart {
		out, err := engine.Apply(core.Record{Active: true, Name: cfg.Recording.Name})
		if err != nil {
			return fmt.Errorf("start recording: %w", err)
		}
		if out.Session != nil {
			logger.Info("recording", "path", out.Session.Path)
		}
	}

	hub := render.NewHub(cfg.Render.Queue, logger.WithPrefix("hub"))
	defer hub.Close()

	if !opts.tui {
		_, cancel := hub.Subscribe(stateLogger(logger))
		defer cancel()
	}

	srv := server.New(server.Config{
		Address:      cfg.Listen,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Engine:       engine,
		Hub:          hub,
		Logger:       logger.WithPrefix("http"),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		errs = make(chan error, 3)
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
				cancel()
			}
		}()
	}

	run("server", srv.Start)
	run("pipeline", func(ctx context.Context) error {
		return pipeline.Run(ctx, &pipeline.Config{
			Engine:         engine,
			Publisher:      hub,
			Sources:        sources,
			Logger:         logger.WithPrefix("pipeline"),
			CheckInterval:  cfg.Flow.CheckInterval,
			RenderInterval: cfg.Render.Interval,
			AppendInterval: cfg.Render.AppendInterval,
		})
	})
	if opts.tui {
		run("tui", func(ctx context.Context) error {
			defer cancel()
			return tui.Run(ctx, &tui.RunConfig{
				Controls: engine,
				Hub:      hub,
				Title:    tuiTitle(cfg, opts),
				Initial:  engine.Status(),
			})
		})
	}

	logger.Info("accelx started", "window", cfg.Window.Seconds, "capacity", cfg.Buffer.Capacity)
	wg.Wait()
	close(errs)

	var all []error
	for err := range errs {
		all = append(all, err)
	}
	return errors.Join(all...)
}

func loadDataset(engine *core.Engine, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	samples, err := parser.ReadDataset(f)
	if err != nil {
		return fmt.Errorf("read dataset %s: %w", path, err)
	}
	_, err = engine.Apply(core.LoadDataset{Samples: samples, Name: filepath.Base(path)})
	return err
}

// stateLogger logs flow transitions in headless mode.
func stateLogger(logger *log.Logger) render.Renderer {
	var last core.Status
	return render.Funcs{
		Status: func(st core.Status) {
			if st.State != last.State || st.Epoch != last.Epoch {
				logger.Info("stream", "state", st.State, "epoch", st.Epoch, "points", st.TotalPoints, "pps", fmt.Sprintf("%.1f", st.PointsPerSecond))
			}
			if st.Message != "" && st.Message != last.Message {
				logger.Warn(st.Message)
			}
			last = st
		},
	}
}

func tuiTitle(cfg *config.Config, opts *serveOptions) string {
	if opts.dataset != "" {
		return filepath.Base(opts.dataset)
	}
	return cfg.Listen
}
