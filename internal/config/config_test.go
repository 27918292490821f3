package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/argus-ai/argus/internal/vault"
)

func TestMain(m *testing.M) {
	keyring.MockInit()
	os.Exit(m.Run())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, cfg.Agent.Model)
	assert.Equal(t, DefaultEndpoint, cfg.Agent.Endpoint)
	assert.Equal(t, DefaultTemperature, cfg.Agent.Temperature)
	assert.True(t, cfg.MCP.HotReload)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
agent:
  model: my-model
  temperature: 0.2
shell_policy:
  extra_allowed_prefixes:
    - "docker ps"
  max_output_bytes: 4096
  timeout_seconds: 10
mcp:
  config_path: /tmp/mcp.json
  hot_reload: false
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "my-model", cfg.Agent.Model)
	assert.Equal(t, DefaultEndpoint, cfg.Agent.Endpoint) // not overridden, keeps default
	assert.Equal(t, 0.2, cfg.Agent.Temperature)
	assert.Equal(t, []string{"docker ps"}, cfg.ShellPolicy.ExtraAllowedPrefixes)
	assert.Equal(t, 4096, cfg.ShellPolicy.MaxOutputBytes)
	assert.Equal(t, "/tmp/mcp.json", cfg.MCP.ConfigPath)
	assert.False(t, cfg.MCP.HotReload)
}

func TestLoadPartialMCPSectionKeepsHotReloadDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
mcp:
  config_path: /tmp/mcp.json
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/mcp.json", cfg.MCP.ConfigPath)
	assert.True(t, cfg.MCP.HotReload)
}

func TestShellTimeoutZeroWhenUnset(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, int64(0), int64(cfg.ShellTimeout()))
}

func TestShellTimeoutConvertsSeconds(t *testing.T) {
	cfg := &Config{ShellPolicy: ShellPolicyConfig{TimeoutSeconds: 5}}
	assert.Equal(t, "5s", cfg.ShellTimeout().String())
}

func TestResolveSecretPrefersVault(t *testing.T) {
	dir := t.TempDir()
	v, err := vault.Init(filepath.Join(dir, "vault.json"))
	require.NoError(t, err)
	require.NoError(t, v.Store("OPENROUTER_API_KEY", "vault-value"))

	t.Setenv("OPENROUTER_API_KEY", "env-value")

	value, source := ResolveSecret(v, "OPENROUTER_API_KEY", "OPENROUTER_API_KEY")
	assert.Equal(t, "vault-value", value)
	assert.Equal(t, SecretSourceVault, source)
}

func TestResolveSecretFallsBackToEnv(t *testing.T) {
	dir := t.TempDir()
	v, err := vault.Init(filepath.Join(dir, "vault.json"))
	require.NoError(t, err)

	t.Setenv("OPENROUTER_API_KEY", "env-value")

	value, source := ResolveSecret(v, "OPENROUTER_API_KEY", "OPENROUTER_API_KEY")
	assert.Equal(t, "env-value", value)
	assert.Equal(t, SecretSourceEnv, source)
}

func TestResolveSecretNoneFound(t *testing.T) {
	value, source := ResolveSecret(nil, "OPENROUTER_API_KEY", "OPENROUTER_API_KEY_MISSING")
	assert.Equal(t, "", value)
	assert.Equal(t, SecretSourceNone, source)
}
