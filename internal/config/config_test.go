package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "PORT", "INFERENCE_PROVIDER", "OLLAMA_URL", "GENERATION_TIMEOUT",
		"MEMORY_TIMEOUT", "MEMORY_LIMIT", "CHAT_HISTORY_DB_PATH", "DEFAULT_SESSION_ID",
		"DEFAULT_PERSONA_ID", "INFERENCE_TEMPERATURE")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ProviderOllama, cfg.AI.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.AI.OllamaURL)
	assert.Equal(t, 60*time.Second, cfg.AI.GenerationTimeout)
	assert.Equal(t, 5*time.Second, cfg.AI.MemoryTimeout)
	assert.Equal(t, 10, cfg.AI.MemoryLimit)
	assert.Equal(t, "data/chat_history.db", cfg.Storage.ChatHistoryDBPath)
	assert.Equal(t, "session-gentle-1", cfg.Session.DefaultSessionID)
	assert.Equal(t, "gentle", cfg.Session.DefaultPersonaID)
	assert.Nil(t, cfg.AI.Temperature)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9090")
	t.Setenv("OLLAMA_MODEL", "qwen2:7b")
	t.Setenv("GENERATION_TIMEOUT", "3s")
	t.Setenv("INFERENCE_TEMPERATURE", "0.4")
	t.Setenv("MEMORY_LIMIT", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, "qwen2:7b", cfg.AI.OllamaModel)
	assert.Equal(t, 3*time.Second, cfg.AI.GenerationTimeout)
	require.NotNil(t, cfg.AI.Temperature)
	assert.InDelta(t, 0.4, *cfg.AI.Temperature, 1e-9)
	assert.Equal(t, DefaultMemoryLimit, cfg.AI.MemoryLimit)
}

func TestLoadMemoryLimitBounds(t *testing.T) {
	for raw, want := range map[string]int{"-2": DefaultMemoryLimit, "0": DefaultMemoryLimit, "4": 4, "25": DefaultMemoryLimit} {
		t.Setenv("MEMORY_LIMIT", raw)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, want, cfg.AI.MemoryLimit, "MEMORY_LIMIT=%s", raw)
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("PORT", "80 80")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadArkRequiresCredentials(t *testing.T) {
	t.Setenv("INFERENCE_PROVIDER", "ark")
	t.Setenv("ARK_API_KEY", "")
	t.Setenv("ARK_ACCESS_KEY", "")
	t.Setenv("Model", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("INFERENCE_PROVIDER", "llamafile")

	_, err := Load()
	require.Error(t, err)
}

// unsetEnv removes keys for the duration of the test; caarlos0/env treats a
// set-but-empty variable as an explicit empty value rather than the default.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		prev, ok := os.LookupEnv(key)
		require.NoError(t, os.Unsetenv(key))
		if ok {
			t.Cleanup(func() { _ = os.Setenv(key, prev) })
		}
	}
}
