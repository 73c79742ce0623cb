// Package config defines service configuration and its loading.
package config

import (
	"time"
)

// DefaultAPIURL is the spreadsheet-backed record store endpoint.
const DefaultAPIURL = "https://script.google.com/macros/s/AKfycbwCjELScYntx661Zw_1sV8SzR7XrbS1f2myK0TyTCFxP8IMENAgG68JmOgJ3mFoG9E5/exec"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// APIURL is the record store endpoint.
	APIURL string `koanf:"api_url" validate:"required,url"`

	// APITimeoutMS bounds each record store call. Zero disables the bound.
	APITimeoutMS int `koanf:"api_timeout_ms" validate:"min=0"`

	// PageSize is the initial page size of a session.
	PageSize int `koanf:"page_size" validate:"gt=0"`

	// PageSizeOptions are the selectable page sizes.
	PageSizeOptions []int `koanf:"page_size_options" validate:"dive,gt=0"`

	// QueueSize bounds the in-memory submission queue.
	QueueSize int `koanf:"queue_size" validate:"gt=0"`

	// WorkerCount sets the number of submission writers.
	WorkerCount int `koanf:"worker_count" validate:"gt=0"`

	// DedupeSize sets how many submission ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// SubmitCooldownMS is the minimum gap between two submissions of a session.
	SubmitCooldownMS int `koanf:"submit_cooldown_ms" validate:"min=0"`

	// MaxSessions caps the number of sessions kept in memory.
	MaxSessions int `koanf:"max_sessions" validate:"gt=0"`

	// MaxCompare caps the comparison selection.
	MaxCompare int `koanf:"max_compare" validate:"min=1,max=4"`

	// TrendYears are the year codes of the comparison trend chart.
	TrendYears []string `koanf:"trend_years" validate:"dive,required"`

	// FavoritesPath is where favorites and preferences are stored. Empty keeps
	// them in memory.
	FavoritesPath string `koanf:"favorites_path"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		APIURL:           DefaultAPIURL,
		APITimeoutMS:     0,
		PageSize:         10,
		PageSizeOptions:  []int{10, 20, 50},
		QueueSize:        1000,
		WorkerCount:      4,
		DedupeSize:       10_000,
		SubmitCooldownMS: 1000,
		MaxSessions:      1000,
		MaxCompare:       4,
		TrendYears:       []string{"110", "111", "112", "113", "114"},
	}
}

// APITimeout returns the record store timeout as a duration.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutMS) * time.Millisecond
}

// SubmitCooldown returns the submission cooldown as a duration.
func (c *Config) SubmitCooldown() time.Duration {
	return time.Duration(c.SubmitCooldownMS) * time.Millisecond
}
