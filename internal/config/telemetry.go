package config

// TelemetryConfig configures OTLP metrics export.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"` // host:port of an OTLP/gRPC collector
	Insecure bool   `yaml:"insecure"`
}
