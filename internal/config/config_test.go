package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/time-conductor/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":50061", cfg.Server.GRPCAddr)
	assert.Equal(t, ":9464", cfg.Server.MetricsAddr)
	assert.Equal(t, "fixed", cfg.Engine.Mode)
	assert.Equal(t, "utc", cfg.Engine.TimeSystem)
	assert.Equal(t, time.Second, cfg.Tick.Interval)
	assert.False(t, cfg.Tick.Accelerated())
	assert.Equal(t, time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC), cfg.Mission.Epoch)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONDUCTOR_LOG_LEVEL", "debug")
	t.Setenv("CONDUCTOR_SERVER_GRPC_ADDR", "127.0.0.1:7000")
	t.Setenv("CONDUCTOR_ENGINE_MODE", "realtime")
	t.Setenv("CONDUCTOR_ENGINE_TIME_SYSTEM", "jd")
	t.Setenv("CONDUCTOR_TICK_INTERVAL", "250ms")
	t.Setenv("CONDUCTOR_TICK_PACE", "accelerated")
	t.Setenv("CONDUCTOR_TICK_STEP", "1m")
	t.Setenv("CONDUCTOR_MISSION_EPOCH", "2024-03-01T00:00:00Z")
	t.Setenv("CONDUCTOR_TRACING_ENABLED", "true")
	t.Setenv("CONDUCTOR_TRACING_SAMPLE_RATIO", "0.25")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format, "unset keys keep their defaults")
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.GRPCAddr)
	assert.Equal(t, "realtime", cfg.Engine.Mode)
	assert.Equal(t, "jd", cfg.Engine.TimeSystem)
	assert.Equal(t, 250*time.Millisecond, cfg.Tick.Interval)
	assert.True(t, cfg.Tick.Accelerated())
	assert.Equal(t, time.Minute, cfg.Tick.Step)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), cfg.Mission.Epoch.UTC())
	assert.True(t, cfg.Tracing.Enabled)
	assert.InDelta(t, 0.25, cfg.Tracing.SampleRatio, 1e-12)
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown mode", "CONDUCTOR_ENGINE_MODE", "paused"},
		{"zero interval", "CONDUCTOR_TICK_INTERVAL", "0s"},
		{"unknown pace", "CONDUCTOR_TICK_PACE", "warp"},
		{"sample ratio above one", "CONDUCTOR_TRACING_SAMPLE_RATIO", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := config.Load()

			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		ok     bool
	}{
		{"defaults", func(*config.Config) {}, true},
		{"mode is case insensitive", func(c *config.Config) { c.Engine.Mode = "LAD" }, true},
		{"empty time system", func(c *config.Config) { c.Engine.TimeSystem = "" }, false},
		{"accelerated without step", func(c *config.Config) { c.Tick.Pace = "accelerated"; c.Tick.Step = 0 }, false},
		{"empty grpc addr", func(c *config.Config) { c.Server.GRPCAddr = "" }, false},
		{"negative sample ratio", func(c *config.Config) { c.Tracing.SampleRatio = -0.1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}
