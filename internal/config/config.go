// Package config holds repolens configuration: backend selection, model
// candidates, per-send timeouts, logging and telemetry. Configuration lives in
// a YAML file (default .repolens/config.yaml) with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultDir is the per-repository directory repolens reads from.
const DefaultDir = ".repolens"

// Config holds all repolens configuration.
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Timeouts  TimeoutsConfig  `yaml:"timeouts"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// AnalysisConfig holds defaults for analysis options not given on the command line.
type AnalysisConfig struct {
	Focus    string `yaml:"focus"`
	Audience string `yaml:"audience"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend:  DefaultBackendConfig(),
		Timeouts: DefaultTimeoutsConfig(),
		Analysis: AnalysisConfig{
			Focus:    string(FocusOnboarding),
			Audience: string(AudienceNewHire),
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// DefaultPath returns the config path for a repository root.
func DefaultPath(root string) string {
	return filepath.Join(root, DefaultDir, "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
// Later keys win: GOOGLE_API_KEY < GEMINI_API_KEY < ANTHROPIC_API_KEY.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.Backend.APIKey = key
		c.Backend.Provider = ProviderGemini
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Backend.APIKey = key
		c.Backend.Provider = ProviderGemini
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Backend.APIKey = key
		c.Backend.Provider = ProviderAnthropic
	}
	if provider := os.Getenv("REPOLENS_PROVIDER"); provider != "" {
		c.Backend.Provider = provider
	}
	if url := os.Getenv("REPOLENS_BASE_URL"); url != "" {
		c.Backend.BaseURL = url
	}
	if model := os.Getenv("REPOLENS_MODEL"); model != "" {
		c.Backend.Models = append([]string{model}, c.Backend.Models...)
	}
	if level := os.Getenv("REPOLENS_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		c.Telemetry.Endpoint = endpoint
		c.Telemetry.Enabled = true
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Backend.Validate(); err != nil {
		return err
	}
	if err := c.Timeouts.Validate(); err != nil {
		return err
	}
	if c.Analysis.Focus != "" {
		if _, err := ParseFocus(c.Analysis.Focus); err != nil {
			return err
		}
	}
	if c.Analysis.Audience != "" {
		if _, err := ParseAudience(c.Analysis.Audience); err != nil {
			return err
		}
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry enabled but no endpoint configured")
	}
	return nil
}
