package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accelx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3000, cfg.Buffer.Capacity)
	assert.Equal(t, 3*time.Second, cfg.Flow.MaxIdle)
	assert.True(t, cfg.Flow.AutoReset)
	assert.Equal(t, 0.3, cfg.DensityConfig().Alpha)
	assert.Equal(t, 0.2, cfg.ScaleConfig().Rate)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen: "127.0.0.1:9000"
buffer:
  capacity: 10000
flow:
  max_idle: 5s
  auto_reset: false
scale:
  fixed: true
recording:
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
	assert.Equal(t, 10000, cfg.Buffer.Capacity)
	assert.Equal(t, 5*time.Second, cfg.Flow.MaxIdle)
	assert.False(t, cfg.Flow.AutoReset)
	assert.True(t, cfg.ScaleConfig().Fixed)
	assert.Equal(t, "json", cfg.Recording.Format)
	// untouched sections keep their defaults
	assert.Equal(t, 10.0, cfg.Window.Seconds)
	assert.Equal(t, time.Second, cfg.Flow.CheckInterval)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(writeConfig(t, "bufer:\n  capacity: 5\n"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"capacity", func(c *Config) { c.Buffer.Capacity = 0 }},
		{"window bounds", func(c *Config) { c.Window.Max = 1 }},
		{"window seconds", func(c *Config) { c.Window.Seconds = -1 }},
		{"max idle", func(c *Config) { c.Flow.MaxIdle = 0 }},
		{"alpha zero", func(c *Config) { c.Density.Alpha = 0 }},
		{"alpha above one", func(c *Config) { c.Density.Alpha = 1.5 }},
		{"fixed bounds", func(c *Config) { c.Scale.Fixed = true; c.Scale.FixedMin = 1; c.Scale.FixedMax = 1 }},
		{"render interval", func(c *Config) { c.Render.Interval = 0 }},
		{"format", func(c *Config) { c.Recording.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
