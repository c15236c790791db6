// Package config loads accelx settings from YAML and validates them.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Geun-Oh/accelx/internal/monitor"
	"github.com/Geun-Oh/accelx/internal/window"
)

// Config is the complete runtime configuration.
type Config struct {
	Listen       string `yaml:"listen"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`

	Buffer    BufferConfig    `yaml:"buffer"`
	Window    WindowConfig    `yaml:"window"`
	Flow      FlowConfig      `yaml:"flow"`
	Density   DensityConfig   `yaml:"density"`
	Scale     ScaleConfig     `yaml:"scale"`
	Render    RenderConfig    `yaml:"render"`
	Recording RecordingConfig `yaml:"recording"`
	Log       LogConfig       `yaml:"log"`
}

type BufferConfig struct {
	Capacity int `yaml:"capacity"`
}

type WindowConfig struct {
	Seconds float64 `yaml:"seconds"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
}

type FlowConfig struct {
	MaxIdle       time.Duration `yaml:"max_idle"`
	CheckInterval time.Duration `yaml:"check_interval"`
	AutoReset     bool          `yaml:"auto_reset"`
}

type DensityConfig struct {
	Seed     float64       `yaml:"seed"`
	Alpha    float64       `yaml:"alpha"`
	Floor    float64       `yaml:"floor"`
	Interval time.Duration `yaml:"interval"`
}

type ScaleConfig struct {
	Fixed      bool    `yaml:"fixed"`
	FixedMin   float64 `yaml:"fixed_min"`
	FixedMax   float64 `yaml:"fixed_max"`
	Margin     float64 `yaml:"margin"`
	Rate       float64 `yaml:"rate"`
	MinSpan    float64 `yaml:"min_span"`
	InitialMin float64 `yaml:"initial_min"`
	InitialMax float64 `yaml:"initial_max"`
}

type RenderConfig struct {
	Interval       time.Duration `yaml:"interval"`
	AppendInterval time.Duration `yaml:"append_interval"`
	Queue          int           `yaml:"queue"`
}

type RecordingConfig struct {
	Dir       string `yaml:"dir"`
	Format    string `yaml:"format"`
	Name      string `yaml:"name"`
	AutoStart bool   `yaml:"auto_start"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	scale := window.DefaultScale()
	return &Config{
		Listen:       ":8080",
		MaxBodyBytes: 1 << 20,
		Buffer:       BufferConfig{Capacity: 3000},
		Window:       WindowConfig{Seconds: 10, Min: 2, Max: 30},
		Flow: FlowConfig{
			MaxIdle:       monitor.DefaultMaxIdle,
			CheckInterval: time.Second,
			AutoReset:     true,
		},
		Density: DensityConfig{
			Seed:     monitor.DefaultDensitySeed,
			Alpha:    monitor.DefaultDensityAlpha,
			Floor:    monitor.DefaultDensityFloor,
			Interval: monitor.DefaultDensityInterval,
		},
		Scale: ScaleConfig{
			FixedMin:   scale.FixedMin,
			FixedMax:   scale.FixedMax,
			Margin:     scale.Margin,
			Rate:       scale.Rate,
			MinSpan:    scale.MinSpan,
			InitialMin: scale.InitialMin,
			InitialMax: scale.InitialMax,
		},
		Render: RenderConfig{
			Interval:       33 * time.Millisecond,
			AppendInterval: 25 * time.Millisecond,
			Queue:          64,
		},
		Recording: RecordingConfig{Dir: "data", Format: "csv"},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults and validates the result. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Buffer.Capacity <= 0:
		return fmt.Errorf("config: buffer.capacity must be positive, got %d", c.Buffer.Capacity)
	case c.Window.Min <= 0 || c.Window.Max < c.Window.Min:
		return fmt.Errorf("config: window bounds [%g, %g] are invalid", c.Window.Min, c.Window.Max)
	case c.Window.Seconds <= 0:
		return fmt.Errorf("config: window.seconds must be positive, got %g", c.Window.Seconds)
	case c.Flow.MaxIdle <= 0:
		return fmt.Errorf("config: flow.max_idle must be positive, got %s", c.Flow.MaxIdle)
	case c.Flow.CheckInterval <= 0:
		return fmt.Errorf("config: flow.check_interval must be positive, got %s", c.Flow.CheckInterval)
	case c.Density.Alpha <= 0 || c.Density.Alpha > 1:
		return fmt.Errorf("config: density.alpha must be in (0, 1], got %g", c.Density.Alpha)
	case c.Density.Seed <= 0 || c.Density.Floor < 0:
		return fmt.Errorf("config: density seed and floor must be positive")
	case c.Density.Interval <= 0:
		return fmt.Errorf("config: density.interval must be positive, got %s", c.Density.Interval)
	case c.Scale.Fixed && c.Scale.FixedMin >= c.Scale.FixedMax:
		return fmt.Errorf("config: scale.fixed_min %g must be below fixed_max %g", c.Scale.FixedMin, c.Scale.FixedMax)
	case c.Scale.Rate <= 0 || c.Scale.Rate > 1:
		return fmt.Errorf("config: scale.rate must be in (0, 1], got %g", c.Scale.Rate)
	case c.Render.Interval <= 0:
		return fmt.Errorf("config: render.interval must be positive, got %s", c.Render.Interval)
	case c.Recording.Format != "csv" && c.Recording.Format != "json":
		return fmt.Errorf("config: recording.format must be csv or json, got %q", c.Recording.Format)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("config: max_body_bytes must be positive, got %d", c.MaxBodyBytes)
	}
	return nil
}

// DensityConfig converts the density section for the estimator.
func (c *Config) DensityConfig() monitor.DensityConfig {
	return monitor.DensityConfig{
		Seed:     c.Density.Seed,
		Alpha:    c.Density.Alpha,
		Floor:    c.Density.Floor,
		Interval: c.Density.Interval,
	}
}

// ScaleConfig converts the scale section for the extractor.
func (c *Config) ScaleConfig() window.ScaleConfig {
	return window.ScaleConfig{
		Fixed:      c.Scale.Fixed,
		FixedMin:   c.Scale.FixedMin,
		FixedMax:   c.Scale.FixedMax,
		Margin:     c.Scale.Margin,
		Rate:       c.Scale.Rate,
		MinSpan:    c.Scale.MinSpan,
		InitialMin: c.Scale.InitialMin,
		InitialMax: c.Scale.InitialMax,
	}
}
