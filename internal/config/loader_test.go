package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "tale-weaver-api", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
	assert.Equal(t, 256, cfg.Cache.Memory.MaxEntries)
	assert.False(t, cfg.Cache.Redis.Enabled)
	assert.Equal(t, "gemini-1.5-flash-latest", cfg.LLM.Gemini.Model)
	assert.Equal(t, 60*time.Second, cfg.LLM.Gemini.Timeout)
	assert.Equal(t, 5, cfg.RateLimit.RequestsPerWindow)
	assert.Equal(t, 60*time.Second, cfg.RateLimit.Window)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RATELIMIT_REQUESTS_PER_WINDOW", "10")
	t.Setenv("LLM_GEMINI_API_KEY", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.RateLimit.RequestsPerWindow)
	assert.Equal(t, "from-env", cfg.LLM.Gemini.APIKey)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_EXPAND_SET", "actual")

	assert.Equal(t, "actual", expandEnv("${TEST_EXPAND_SET}"))
	assert.Equal(t, "actual", expandEnv("${TEST_EXPAND_SET:fallback}"))
	assert.Equal(t, "fallback", expandEnv("${TEST_EXPAND_UNSET:fallback}"))
	// 无默认值且未定义时原样保留
	assert.Equal(t, "${TEST_EXPAND_UNSET}", expandEnv("${TEST_EXPAND_UNSET}"))
	assert.Equal(t, "plain text", expandEnv("plain text"))
}
