package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		"KEY_OPENAI", "KEY_ANTHROPIC", "KEY_DEEPSEEK",
		"MODEL_OPENAI", "MODEL_ANTHROPIC", "MODEL_DEEPSEEK",
		"PROVIDER_PREFERRED", "DIR_CUSTOM", "MAX_RETRIES",
		"CONVERSATIONS_COUNT",
	} {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromEnvOnly(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("KEY_OPENAI", "sk-test")
	t.Setenv("MODEL_OPENAI", "gpt-4o-mini")
	t.Setenv("DIR_CUSTOM", "/games/edcopilot/custom")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "openai", cfg.Providers[0].Name)
	assert.Equal(t, "sk-test", cfg.Providers[0].APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Providers[0].Model)
	assert.Equal(t, "/games/edcopilot/custom", cfg.CustomDir)
	assert.Equal(t, 25, cfg.EntriesPerCategory)
	assert.Equal(t, 8*time.Hour, cfg.RSSCacheTTL)
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("CONVERSATIONS_COUNT", "40")
	path := writeConfig(t, `
custom_dir: /from/file
entries_per_category: 10
providers:
  - name: openai
    api_key: sk-file
    model: gpt-4o
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/file", cfg.CustomDir)
	assert.Equal(t, 40, cfg.EntriesPerCategory, "env must override the file")
	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "sk-file", cfg.Providers[0].APIKey)
}

func TestLoadNoProvidersFails(t *testing.T) {
	clearProviderEnv(t)
	_, err := Load(writeConfig(t, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no providers")
}

func TestLoadMissingExplicitPathFails(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("KEY_OPENAI", "sk-test")
	path := filepath.Join(t.TempDir(), "typo.yaml")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestLoadMissingDefaultPathTolerated(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("KEY_OPENAI", "sk-test")
	t.Chdir(t.TempDir())

	cfg, err := Load(DefaultPath)
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "sk-test", cfg.Providers[0].APIKey)
}

func TestLoadRejectsChanceOutOfRange(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, `
providers:
  - name: openai
    api_key: sk-x
rss_chance: 150
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rss_chance")
}

func TestProviderOrderPrefersConfigured(t *testing.T) {
	cfg := &Config{
		Preferred: "anthropic",
		Providers: []ProviderConfig{
			{Name: "openai", APIKey: "a"},
			{Name: "anthropic", APIKey: "b"},
			{Name: "deepseek", APIKey: "c"},
		},
	}
	order := cfg.ProviderOrder()
	require.Len(t, order, 3)
	assert.Equal(t, "anthropic", order[0].Name)
	assert.Equal(t, "openai", order[1].Name)
	assert.Equal(t, "deepseek", order[2].Name)
}

func TestEnvAddsSecondProvider(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("KEY_OPENAI", "sk-o")
	t.Setenv("KEY_ANTHROPIC", "sk-a")
	t.Setenv("MODEL_ANTHROPIC", "claude-sonnet-4-20250514")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 2)

	names := []string{cfg.Providers[0].Name, cfg.Providers[1].Name}
	assert.Contains(t, names, "openai")
	assert.Contains(t, names, "anthropic")
}

func TestMockPreferredNeedsNoKeys(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("PROVIDER_PREFERRED", "mock")
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.Preferred)
	assert.Empty(t, cfg.Providers)
}
