// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service's runtime settings.
type Config struct {
	Port             string
	DatabasePath     string
	TenantDataDir    string
	BaseDomain       string
	LogLevel         string
	LogFormat        string
	ProvisionTimeout time.Duration
	Telemetry        Telemetry
}

// Telemetry configures the OpenTelemetry providers.
type Telemetry struct {
	ServiceName    string
	ServiceVersion string
	Environment    string // "development" or "production"
	Exporter       string // "stdout" or "otlp"
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win
// over .env entries.
func Load() Config {
	// Ignore a missing .env; in containers everything comes from the
	// real environment.
	_ = godotenv.Load()

	return Config{
		Port:             envOrDefault("PORT", "8080"),
		DatabasePath:     envOrDefault("DATABASE_PATH", "controlplane.db"),
		TenantDataDir:    envOrDefault("TENANT_DATA_DIR", "tenants"),
		BaseDomain:       envOrDefault("BASE_DOMAIN", "localhost"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "auto"),
		ProvisionTimeout: durationOrDefault("PROVISION_TIMEOUT", 30*time.Second),
		Telemetry: Telemetry{
			ServiceName:    envOrDefault("OTEL_SERVICE_NAME", "controlplane"),
			ServiceVersion: envOrDefault("OTEL_SERVICE_VERSION", "0.1.0"),
			Environment:    envOrDefault("OTEL_ENVIRONMENT", "development"),
			Exporter:       envOrDefault("OTEL_EXPORTER", "stdout"),
		},
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
