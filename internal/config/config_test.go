package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults verifies an absent config file yields the defaults.
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultHibernationThreshold, cfg.Store.HibernationThreshold)
	assert.False(t, cfg.Observability.Enabled)
	assert.Equal(t, DefaultOTLPEndpoint, cfg.Observability.Endpoint)
	assert.Equal(t, DefaultServiceName, cfg.Observability.Service)
}

// TestLoad_ExplicitFile verifies values from a YAML file override defaults.
func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "isetdb.yaml")
	content := []byte("store:\n  hibernation_threshold: 16\nobservability:\n  enabled: true\n  endpoint: collector:4317\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Store.HibernationThreshold)
	assert.True(t, cfg.Observability.Enabled)
	assert.Equal(t, "collector:4317", cfg.Observability.Endpoint)
}

// TestLoad_MalformedFile verifies parse errors surface.
func TestLoad_MalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "isetdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: ["), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

// TestValidate_NegativeThreshold verifies threshold bounds.
func TestValidate_NegativeThreshold(t *testing.T) {
	t.Parallel()

	cfg := Config{Store: StoreConfig{HibernationThreshold: -1}}
	require.ErrorIs(t, cfg.Validate(), ErrNegativeThreshold)
}

// TestValidate_EnabledWithoutEndpoint verifies the telemetry endpoint gate.
func TestValidate_EnabledWithoutEndpoint(t *testing.T) {
	t.Parallel()

	cfg := Config{Observability: ObservabilityConfig{Enabled: true}}
	require.ErrorIs(t, cfg.Validate(), ErrMissingEndpoint)
}
