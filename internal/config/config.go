// Package config defines the isetdb configuration surface: file, environment
// and defaults, merged through viper.
package config

import (
	"errors"
	"fmt"
)

// Defaults.
const (
	// DefaultHibernationThreshold is the minimum arena length before an idle
	// set is compressed.
	DefaultHibernationThreshold = 4096

	// DefaultOTLPEndpoint is the default OTLP gRPC collector endpoint.
	DefaultOTLPEndpoint = "localhost:4317"

	// DefaultServiceName annotates telemetry and log records.
	DefaultServiceName = "isetdb"
)

// Validation errors.
var (
	// ErrNegativeThreshold rejects a negative hibernation threshold.
	ErrNegativeThreshold = errors.New("config: hibernation threshold must not be negative")

	// ErrMissingEndpoint rejects enabled telemetry without a collector
	// endpoint.
	ErrMissingEndpoint = errors.New("config: telemetry enabled without an endpoint")
)

// Config is the root configuration.
type Config struct {
	Store         StoreConfig         `mapstructure:"store"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// StoreConfig tunes the key table and its interval sets.
type StoreConfig struct {
	// HibernationThreshold is the minimum arena length for HIBERNATE to
	// compress a set. Zero compresses unconditionally.
	HibernationThreshold int `mapstructure:"hibernation_threshold"`
}

// ObservabilityConfig selects telemetry backends.
type ObservabilityConfig struct {
	// Enabled turns on OTLP export of traces and metrics.
	Enabled bool `mapstructure:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint"`

	// Service names the telemetry resource and log records.
	Service string `mapstructure:"service"`

	// Env annotates telemetry with the deployment environment.
	Env string `mapstructure:"env"`

	// MetricsAddr, when non-empty, serves a Prometheus /metrics endpoint on
	// this address.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.Store.HibernationThreshold < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeThreshold, c.Store.HibernationThreshold)
	}

	if c.Observability.Enabled && c.Observability.Endpoint == "" {
		return ErrMissingEndpoint
	}

	return nil
}
