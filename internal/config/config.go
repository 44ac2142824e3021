// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and CALMARK_* env vars.
// - Errors returned by Load wrap ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"runtime"
	"time"

	"github.com/okian/calmark/internal/domain/palette"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// APIBaseURL is the project API serving /works/{id}/events.
	APIBaseURL string `koanf:"api_base_url"`

	// APIToken is sent as a bearer token to the project API when set.
	APIToken string `koanf:"api_token"`

	// APITimeoutMS bounds a single feed fetch.
	APITimeoutMS int `koanf:"api_timeout_ms"`

	// Timezone is the IANA zone event timestamps are converted to before
	// truncation. Empty keeps each timestamp's own offset.
	Timezone string `koanf:"timezone"`

	// Palette lists the dot colors in cycle order.
	Palette []string `koanf:"palette"`

	// StaleColorFallback re-derives a color from the event position when the
	// index has no dot for it.
	StaleColorFallback bool `koanf:"stale_color_fallback"`

	// Works are refreshed on RefreshCron and at startup.
	Works []string `koanf:"works"`

	// RefreshCron is a standard 5-field cron spec. Empty disables scheduling.
	RefreshCron string `koanf:"refresh_cron"`

	// QueueSize bounds the pending refresh jobs.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of refresh workers.
	WorkerCount int `koanf:"worker_count"`

	// InflightTTLMS is how long a refresh may stay pending before another
	// request for the same work is let through.
	InflightTTLMS int `koanf:"inflight_ttl_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	colors := palette.Default().Colors()
	p := make([]string, len(colors))
	for i, c := range colors {
		p[i] = string(c)
	}
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		APIBaseURL:         "http://localhost:8000/api",
		APITimeoutMS:       10_000,
		Timezone:           "",
		Palette:            p,
		StaleColorFallback: true,
		Works:              []string{},
		RefreshCron:        "*/15 * * * *",
		QueueSize:          1_000,
		WorkerCount:        runtime.NumCPU(),
		InflightTTLMS:      120_000,
	}
}

// Location resolves Timezone. Empty yields nil (truncate as written).
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, nil //nolint:nilnil // nil location is a valid "as written" setting
	}
	return time.LoadLocation(c.Timezone)
}

// DotPalette builds the configured palette.
func (c *Config) DotPalette() (palette.Palette, error) {
	return palette.New(c.Palette...)
}

// APITimeout returns APITimeoutMS as a duration.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutMS) * time.Millisecond
}

// InflightTTL returns InflightTTLMS as a duration.
func (c *Config) InflightTTL() time.Duration {
	return time.Duration(c.InflightTTLMS) * time.Millisecond
}
