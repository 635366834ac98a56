package config

import (
	"fmt"
	"time"
)

// TimeoutsConfig bounds every send to the backend.
//
// The shortest timeout in the chain wins: the agent wraps each send in a
// context with one of these, so a backend HTTP client must not be shorter.
type TimeoutsConfig struct {
	// Explore bounds the initial tool-enabled exploration turn.
	Explore string `yaml:"explore"`
	// Retry bounds each validation retry turn.
	Retry string `yaml:"retry"`
	// Fast bounds the single fast-path turn.
	Fast string `yaml:"fast"`
}

// DefaultTimeoutsConfig returns the default timeouts.
func DefaultTimeoutsConfig() TimeoutsConfig {
	return TimeoutsConfig{
		Explore: "10m",
		Retry:   "3m",
		Fast:    "2m",
	}
}

// Timeouts is the parsed form of TimeoutsConfig.
type Timeouts struct {
	Explore time.Duration
	Retry   time.Duration
	Fast    time.Duration
}

// DefaultTimeouts returns the parsed defaults.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Explore: 10 * time.Minute,
		Retry:   3 * time.Minute,
		Fast:    2 * time.Minute,
	}
}

// Parse converts the string durations, falling back to defaults for blanks.
func (t TimeoutsConfig) Parse() (Timeouts, error) {
	def := DefaultTimeouts()
	explore, err := parseDuration("explore", t.Explore, def.Explore)
	if err != nil {
		return Timeouts{}, err
	}
	retry, err := parseDuration("retry", t.Retry, def.Retry)
	if err != nil {
		return Timeouts{}, err
	}
	fast, err := parseDuration("fast", t.Fast, def.Fast)
	if err != nil {
		return Timeouts{}, err
	}
	return Timeouts{Explore: explore, Retry: retry, Fast: fast}, nil
}

// Validate checks the timeouts parse and are positive.
func (t TimeoutsConfig) Validate() error {
	_, err := t.Parse()
	return err
}

func parseDuration(name, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s timeout %q: %w", name, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s timeout must be positive, got %v", name, d)
	}
	return d, nil
}
