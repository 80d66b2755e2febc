package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_RequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-1234567890")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sk-test-1234567890", cfg.OpenAI.APIKey)
	assert.Equal(t, 30*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, 2, cfg.OpenAI.MaxRetries)
	assert.Equal(t, 4, cfg.OpenAI.MaxConcurrency)
	assert.Equal(t, 32, cfg.OpenAI.QueueSize)
	assert.Equal(t, "ai", cfg.Suggest.Engine)
	assert.Equal(t, 5, cfg.Suggest.MaxRecipes)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, int64(10*1024*1024), cfg.Image.MaxSizeBytes)
	assert.Equal(t, int64(40_000_000), cfg.Image.MaxPixels)
	assert.Equal(t, 1024, cfg.Image.MaxDimension)
	assert.Equal(t, 120*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, time.Duration(0), cfg.DedupWindow)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-1234567890")
	t.Setenv("OPENAI_TIMEOUT", "5s")
	t.Setenv("OPENAI_MAX_RETRIES", "0")
	t.Setenv("SUGGEST_ENGINE", "LOCAL")
	t.Setenv("SUGGEST_MAX_RECIPES", "3")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, 0, cfg.OpenAI.MaxRetries)
	assert.Equal(t, "local", cfg.Suggest.Engine)
	assert.Equal(t, 3, cfg.Suggest.MaxRecipes)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	tests := map[string][2]string{
		"unknown engine":  {"SUGGEST_ENGINE", "magic"},
		"zero recipes":    {"SUGGEST_MAX_RECIPES", "0"},
		"bad quality":     {"IMAGE_JPEG_QUALITY", "0"},
		"negative retry":  {"OPENAI_MAX_RETRIES", "-1"},
		"bad port":        {"PORT", "70000"},
		"unknown backend": {"CACHE_BACKEND", "memcached"},
	}

	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", "sk-test-1234567890")
			t.Setenv("CACHE_ENABLED", "true")
			t.Setenv(kv[0], kv[1])

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
