package corecaller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/InjectiveLabs/corecaller/callerfinder"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg, "Expected non-nil config")
	require.Equal(t, "local", cfg.EnvName, "Expected EnvName to be 'local'")
	require.Equal(t, 5*time.Minute, cfg.StuckFunctionTimeout, "Expected StuckFunctionTimeout to be 5 minutes")
	require.Equal(t, 32, cfg.MaxStackDepth, "Expected MaxStackDepth to be 32")
	require.NotNil(t, cfg.Logger, "Expected a default logger")
}

func TestValidateConfig(t *testing.T) {
	cfg := &Config{
		EnvName:              "production",
		StuckFunctionTimeout: 10 * time.Second,
		MaxStackDepth:        8,
	}

	validatedCfg := validateConfig(cfg)

	require.Equal(t, "production", validatedCfg.EnvName)
	require.Equal(t, 10*time.Second, validatedCfg.StuckFunctionTimeout)
	require.Equal(t, 8, validatedCfg.MaxStackDepth)

	validatedCfg = validateConfig(nil)

	require.Equal(t, "local", validatedCfg.EnvName)
	require.Equal(t, 5*time.Minute, validatedCfg.StuckFunctionTimeout)
}

func TestValidateConfig_MaxStackDepth(t *testing.T) {
	tests := []struct {
		depth    int
		expected int
	}{
		{0, 32},
		{-2, 32},
		{-100, 32},
		{callerfinder.Unbounded, callerfinder.Unbounded},
		{1, 1},
		{64, 64},
	}

	for _, test := range tests {
		cfg := validateConfig(&Config{MaxStackDepth: test.depth})
		require.Equal(t, test.expected, cfg.MaxStackDepth, "depth %d", test.depth)
	}
}

func TestGlobalTagsMap(t *testing.T) {
	cfg := &Config{
		EnvName: "staging",
	}

	globalTags := cfg.GlobalTagsMap()

	require.Len(t, globalTags, 1)
	require.Equal(t, "staging", globalTags["deployment.environment"])
}

func TestGlobalTagsMap_NilConfig(t *testing.T) {
	var cfg *Config

	globalTags := cfg.GlobalTagsMap()

	require.Len(t, globalTags, 4)
	require.Equal(t, "local", globalTags["deployment.environment"])
	require.Equal(t, "unknown", globalTags["service.name"])
	require.Equal(t, "dev", globalTags["service.version"])
	require.Equal(t, "svc-us-east", globalTags["deployment.cluster_id"])
}

func TestValidateConfig_FillsInPlace(t *testing.T) {
	cfg := &Config{
		ServiceName:          "svc",
		StuckFunctionTimeout: 500 * time.Millisecond,
	}

	validated := validateConfig(cfg)

	require.Same(t, cfg, validated)
	require.Equal(t, "svc", cfg.ServiceName)
	require.Equal(t, defaultServiceVersion, cfg.ServiceVersion)
	require.Equal(t, defaultClusterID, cfg.ClusterID)
	require.Equal(t, defaultStuckFunctionTimeout, cfg.StuckFunctionTimeout, "Expected sub-second timeouts to fall back")
}

func TestGlobalTagsMap_AllFields(t *testing.T) {
	cfg := &Config{
		EnvName:        "prod",
		ServiceName:    "indexer",
		ServiceVersion: "1.2.3",
		ClusterID:      "svc-eu-west",
	}

	require.Equal(t, map[string]string{
		"deployment.environment": "prod",
		"deployment.cluster_id":  "svc-eu-west",
		"service.name":           "indexer",
		"service.version":        "1.2.3",
	}, cfg.GlobalTagsMap())
}
