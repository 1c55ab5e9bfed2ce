// Package config loads and validates library configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all kansatsu configuration.
type Config struct {
	// Identity reported on the trace resource and in summaries.
	ServiceName    string
	ServiceVersion string

	// Dashboard settings. An empty URL disables the telemetry sink entirely.
	DashboardURL     string
	DashboardTimeout time.Duration // Per-push timeout; pushes are fire-and-forget.

	// NERServiceURL is the base URL of the named-entity recognition sidecar.
	// Empty disables tier-3 statistical detection.
	NERServiceURL string

	// OTEL settings. An empty endpoint selects the console span exporter.
	OTELEndpoint string
	OTELInsecure bool

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		ServiceName:      envStr("KANSATSU_SERVICE_NAME", "kansatsu"),
		ServiceVersion:   envStr("KANSATSU_SERVICE_VERSION", "1.0.0"),
		DashboardURL:     envStrAllowEmpty("KANSATSU_DASHBOARD_URL", "http://127.0.0.1:8050/update"),
		DashboardTimeout: envDuration("KANSATSU_DASHBOARD_TIMEOUT", 500*time.Millisecond),
		NERServiceURL:    envStr("KANSATSU_NER_URL", ""),
		OTELEndpoint:     envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:     envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		LogLevel:         envStr("KANSATSU_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("config: KANSATSU_SERVICE_NAME must not be empty")
	}
	if c.DashboardTimeout <= 0 {
		return fmt.Errorf("config: KANSATSU_DASHBOARD_TIMEOUT must be positive")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envStrAllowEmpty treats a set-but-empty variable as an explicit empty value.
// Used for the dashboard URL, where empty means "sink disabled".
func envStrAllowEmpty(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
