// Package config loads conductord configuration using koanf: compiled
// defaults overlaid by CONDUCTOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/signalsfoundry/time-conductor/model"
)

// EnvPrefix is stripped from environment variable names before mapping.
const EnvPrefix = "CONDUCTOR_"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds all daemon configuration.
type Config struct {
	Log     LogConfig     `koanf:"log"`
	Server  ServerConfig  `koanf:"server"`
	Engine  EngineConfig  `koanf:"engine"`
	Tick    TickConfig    `koanf:"tick"`
	Mission MissionConfig `koanf:"mission"`
	Tracing TracingConfig `koanf:"tracing"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json | text
}

// ServerConfig holds listen addresses.
type ServerConfig struct {
	GRPCAddr    string `koanf:"grpc_addr"`
	MetricsAddr string `koanf:"metrics_addr"` // empty disables /metrics
}

// EngineConfig picks the mode and time system applied at startup.
type EngineConfig struct {
	Mode       string `koanf:"mode"`
	TimeSystem string `koanf:"time_system"`
}

// TickConfig drives the clock tick sources.
type TickConfig struct {
	Interval time.Duration `koanf:"interval"`
	// Pace is "realtime" (wall clock) or "accelerated" (Step per tick).
	Pace string        `koanf:"pace"`
	Step time.Duration `koanf:"step"`
}

// MissionConfig anchors the mission elapsed time system.
type MissionConfig struct {
	Epoch time.Time `koanf:"epoch"`
}

// TracingConfig mirrors observability.TracingConfig.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Exporter    string  `koanf:"exporter"`
	Endpoint    string  `koanf:"endpoint"`
	SampleRatio float64 `koanf:"sample_ratio"`
	ServiceName string  `koanf:"service_name"`
}

// Defaults returns a Config with compiled default values.
func Defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			GRPCAddr:    ":50061",
			MetricsAddr: ":9464",
		},
		Engine: EngineConfig{
			Mode:       string(model.Fixed),
			TimeSystem: "utc",
		},
		Tick: TickConfig{
			Interval: time.Second,
			Pace:     "realtime",
			Step:     time.Second,
		},
		Mission: MissionConfig{
			Epoch: time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC),
		},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			SampleRatio: 1,
			ServiceName: "conductord",
		},
	}
}

// Load overlays CONDUCTOR_* environment variables on the compiled defaults
// and validates the result. CONDUCTOR_SERVER_GRPC_ADDR maps to
// server.grpc_addr: only the first underscore after the prefix separates
// the section from the field.
func Load() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Validate reports the first invalid setting wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if _, ok := model.ParseModeKey(c.Engine.Mode); !ok {
		return fmt.Errorf("%w: engine.mode %q", ErrInvalidConfig, c.Engine.Mode)
	}
	if c.Engine.TimeSystem == "" {
		return fmt.Errorf("%w: engine.time_system is empty", ErrInvalidConfig)
	}
	if c.Tick.Interval <= 0 {
		return fmt.Errorf("%w: tick.interval must be positive, got %s", ErrInvalidConfig, c.Tick.Interval)
	}
	switch strings.ToLower(c.Tick.Pace) {
	case "realtime":
	case "accelerated":
		if c.Tick.Step <= 0 {
			return fmt.Errorf("%w: tick.step must be positive, got %s", ErrInvalidConfig, c.Tick.Step)
		}
	default:
		return fmt.Errorf("%w: tick.pace %q", ErrInvalidConfig, c.Tick.Pace)
	}
	if c.Server.GRPCAddr == "" {
		return fmt.Errorf("%w: server.grpc_addr is empty", ErrInvalidConfig)
	}
	if r := c.Tracing.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("%w: tracing.sample_ratio %v outside [0,1]", ErrInvalidConfig, r)
	}
	return nil
}

// Accelerated reports whether ticks advance by Step rather than the wall clock.
func (t TickConfig) Accelerated() bool {
	return strings.EqualFold(t.Pace, "accelerated")
}
