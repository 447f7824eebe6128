package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/scaffold/internal/llm"
)

// clearKeys hides provider keys from the host so Discover stays inert.
func clearKeys(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearKeys(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	clearKeys(t)
	path := writeConfig(t, `
store:
  path: /tmp/scaffold.db
run:
  max_ticks: 7
  snapshot_every: 0
log:
  level: debug
  format: json
llm:
  provider: mock
  timeout: 5s
  retry:
    max_attempts: 1
hints:
  fallback: try again
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/scaffold.db", cfg.Store.Path)
	assert.Equal(t, 7, cfg.Run.MaxTicks)
	assert.Equal(t, 0, cfg.Run.SnapshotEvery)
	assert.Equal(t, 5, cfg.Run.SnapshotKeep, "unset keys keep their defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, llm.ProviderMock, cfg.LLM.Provider)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 1, cfg.LLM.Retry.MaxAttempts)
	assert.Equal(t, 2.0, cfg.LLM.Retry.Multiplier)
	assert.Equal(t, "try again", cfg.Hints.Fallback)
	assert.Equal(t, 256, cfg.Hints.MaxTokens)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearKeys(t)
	path := writeConfig(t, "run:\n  max_ticks: 7\n")
	t.Setenv("SCAFFOLD_RUN_MAX_TICKS", "42")
	t.Setenv("SCAFFOLD_METRICS_ADDR", ":9464")
	t.Setenv("SCAFFOLD_LLM_PROVIDER", "openai")
	t.Setenv("SCAFFOLD_LLM_OPENAI_API_KEY", "sk-test")
	t.Setenv("SCAFFOLD_LLM_RETRY_MAX_ATTEMPTS", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Run.MaxTicks)
	assert.Equal(t, ":9464", cfg.Metrics.Addr)
	assert.Equal(t, llm.ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, 5, cfg.LLM.Retry.MaxAttempts)
}

func TestLoadDiscoversProvider(t *testing.T) {
	clearKeys(t)
	t.Setenv("ANTHROPIC_API_KEY", "ak")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, "ak", cfg.LLM.Anthropic.APIKey)
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearKeys(t)
	path := writeConfig(t, `
run:
  max_ticks: 0
log:
  level: loud
llm:
  provider: carrier-pigeon
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "run.max_ticks")
	assert.ErrorContains(t, err, "log level")
	assert.ErrorContains(t, err, "carrier-pigeon")
}

func TestLoadRejectsBadYAML(t *testing.T) {
	clearKeys(t)
	_, err := Load(writeConfig(t, "run: [\n"))
	assert.ErrorContains(t, err, "load config file")
}

func TestLoadRejectsDirectory(t *testing.T) {
	clearKeys(t)
	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "is a directory")
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/xdg", "scaffold", "config.yaml"), p)
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"SCAFFOLD_RUN_MAX_TICKS":           "run.max_ticks",
		"SCAFFOLD_STORE_PATH":              "store.path",
		"SCAFFOLD_LLM_PROVIDER":            "llm.provider",
		"SCAFFOLD_LLM_LOG_BODIES":          "llm.log_bodies",
		"SCAFFOLD_LLM_GEMINI_MODEL":        "llm.gemini.model",
		"SCAFFOLD_LLM_OPENROUTER_BASE_URL": "llm.openrouter.base_url",
		"SCAFFOLD_LLM_RETRY_INITIAL_WAIT":  "llm.retry.initial_wait",
		"SCAFFOLD_HINTS_MAX_TOKENS":        "hints.max_tokens",
		"SCAFFOLD_DEBUG":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}
