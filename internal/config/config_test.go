package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/salient/internal/config"
	"github.com/scrypster/salient/internal/engine"
)

func TestLoadConfig_Defaults(t *testing.T) {
	_ = os.Unsetenv("SALIENT_K")
	_ = os.Unsetenv("SALIENT_POLICY")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Engine.K)
	assert.Equal(t, 30, cfg.Engine.HalfLifeTurns)
	assert.Equal(t, "fdr", cfg.Engine.Policy,
		"Default significance policy must be FDR")
	assert.Equal(t, "local", cfg.Oracle.Provider)
	assert.Equal(t, 10*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, "memory", cfg.Anchors.Store)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SALIENT_K", "4")
	t.Setenv("SALIENT_POLICY", "z-threshold")
	t.Setenv("SALIENT_Z_THRESHOLD", "2.0")
	t.Setenv("SALIENT_ORACLE_PROVIDER", "ollama")
	t.Setenv("SALIENT_ORACLE_TIMEOUT", "30s")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Engine.K)
	assert.Equal(t, "z-threshold", cfg.Engine.Policy)
	assert.Equal(t, 2.0, cfg.Engine.ZThreshold)
	assert.Equal(t, "ollama", cfg.Oracle.Provider)
	assert.Equal(t, 30*time.Second, cfg.Oracle.Timeout)
}

func TestLoadConfig_InvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("SALIENT_K", "not-a-number")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Engine.K,
		"Unparseable env value must fall back to the default")
}

func TestLoadConfigFromFile_ReadsYAML(t *testing.T) {
	_ = os.Unsetenv("SALIENT_K")
	_ = os.Unsetenv("SALIENT_ANCHOR_TOP_N")

	path := filepath.Join(t.TempDir(), "salient.yaml")
	content := []byte(`
engine:
  k: 6
  null_samples: 24
anchors:
  top_n: 3
  boost: 0.4
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := config.LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Engine.K)
	assert.Equal(t, 24, cfg.Engine.NullSamples)
	assert.Equal(t, 3, cfg.Anchors.TopN)
	assert.Equal(t, 0.4, cfg.Anchors.Boost)
	// Untouched settings keep their defaults.
	assert.Equal(t, 30, cfg.Engine.HalfLifeTurns)
}

func TestLoadConfigFromFile_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salient.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  k: 6\n"), 0o644))

	t.Setenv("SALIENT_K", "12")

	cfg, err := config.LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Engine.K,
		"Environment must take precedence over the file")
}

func TestLoadConfigFromFile_MissingFile(t *testing.T) {
	_, err := config.LoadConfigFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEngineOptions_MapsAllFields(t *testing.T) {
	t.Setenv("SALIENT_K", "5")
	t.Setenv("SALIENT_POLICY", "z-threshold")
	t.Setenv("SALIENT_ANCHOR_BOOST", "0.3")
	t.Setenv("SALIENT_SEED", "42")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	opts := cfg.EngineOptions()
	assert.Equal(t, 5, opts.K)
	assert.Equal(t, engine.PolicyZThreshold, opts.Policy)
	assert.Equal(t, 0.3, opts.AnchorBoost)
	assert.Equal(t, int64(42), opts.Seed)
	require.NoError(t, opts.Validate(),
		"Options built from a loaded config must validate")
}

func TestOracleConfig_MapsProviderSettings(t *testing.T) {
	t.Setenv("SALIENT_ORACLE_PROVIDER", "openai")
	t.Setenv("SALIENT_ORACLE_API_KEY", "sk-test")
	t.Setenv("SALIENT_EMBEDDING_MODEL", "text-embedding-3-small")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	oc := cfg.OracleConfig()
	assert.Equal(t, "openai", oc.Provider)
	assert.Equal(t, "sk-test", oc.APIKey)
	assert.Equal(t, "text-embedding-3-small", oc.Model)
}
