// Package config loads and validates pipewatch's user settings.
//
// Settings live in settings.yaml in the config directory. The file is
// optional: a missing file yields the defaults, and any field left at its
// zero value is filled in from the defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"pipewatch/paths"
)

// Default timing and sizing values. The aggregator tick and the debounce
// quiet period both default to 250ms; the poll interval is how often the
// UI loop re-evaluates the auto-run predicate.
const (
	DefaultTickInterval = 250 * time.Millisecond
	DefaultQuietPeriod  = 250 * time.Millisecond
	DefaultPollInterval = 100 * time.Millisecond
	DefaultHistoryLimit = 500
	DefaultWindowLines  = 1000
)

// Duration wraps time.Duration so settings can be written as "250ms" or "1s".
type Duration time.Duration

// UnmarshalYAML parses a duration string (time.ParseDuration syntax).
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in time.Duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds the application settings.
type Config struct {
	// TickInterval bounds how often batched output events reach the UI.
	TickInterval Duration `yaml:"tick_interval,omitempty"`

	// QuietPeriod is how long input must be stable before auto-run fires.
	QuietPeriod Duration `yaml:"quiet_period,omitempty"`

	// PollInterval is the UI loop's debounce poll cadence.
	PollInterval Duration `yaml:"poll_interval,omitempty"`

	// HistoryLimit caps the number of persisted history entries.
	HistoryLimit int `yaml:"history_limit,omitempty"`

	// WindowLines caps retained output lines per stream in the UI.
	WindowLines int `yaml:"window_lines,omitempty"`

	// Shell overrides the host command interpreter. Empty means the
	// platform default (sh on POSIX, cmd on Windows).
	Shell string `yaml:"shell,omitempty"`
}

// Default returns a Config populated with the default values.
func Default() *Config {
	return &Config{
		TickInterval: Duration(DefaultTickInterval),
		QuietPeriod:  Duration(DefaultQuietPeriod),
		PollInterval: Duration(DefaultPollInterval),
		HistoryLimit: DefaultHistoryLimit,
		WindowLines:  DefaultWindowLines,
	}
}

// Load reads settings.yaml from the config directory.
// A missing file is not an error — defaults are returned.
func Load() (*Config, error) {
	fp, err := paths.SettingsFilePath()
	if err != nil {
		return nil, err
	}
	return LoadFile(fp)
}

// LoadFile reads settings from an explicit path, applies defaults for any
// unset field, and validates the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills in defaults for zero-valued fields.
func (c *Config) applyDefaults() {
	if c.TickInterval == 0 {
		c.TickInterval = Duration(DefaultTickInterval)
	}
	if c.QuietPeriod == 0 {
		c.QuietPeriod = Duration(DefaultQuietPeriod)
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(DefaultPollInterval)
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.WindowLines == 0 {
		c.WindowLines = DefaultWindowLines
	}
}

// Validate checks that all settings are usable.
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %v", c.TickInterval.Std())
	}
	if c.QuietPeriod <= 0 {
		return fmt.Errorf("quiet_period must be positive, got %v", c.QuietPeriod.Std())
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", c.PollInterval.Std())
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive, got %d", c.HistoryLimit)
	}
	if c.WindowLines <= 0 {
		return fmt.Errorf("window_lines must be positive, got %d", c.WindowLines)
	}
	return nil
}
