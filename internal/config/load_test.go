package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("fails without a database URL", func(t *testing.T) {
		// Defaults cover everything except the database URL, which has no
		// safe default.
		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("loads from environment with defaults", func(t *testing.T) {
		t.Setenv("RESEARCH_DATABASE_URL", "postgres://localhost:5432/research_test")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "postgres://localhost:5432/research_test", cfg.Database.URL)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "info", cfg.Server.LogLevel)
		assert.Equal(t, "localhost:6379", cfg.Queue.RedisAddr)
		assert.Equal(t, "ANTHROPIC_API_KEY", cfg.LLM.APIKeyEnv)
		assert.Positive(t, cfg.LLM.MaxTokens)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("RESEARCH_DATABASE_URL", "postgres://localhost:5432/research_test")
		t.Setenv("RESEARCH_SERVER_PORT", "9090")
		t.Setenv("RESEARCH_QUEUE_REDIS_ADDR", "redis.internal:6380")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "redis.internal:6380", cfg.Queue.RedisAddr)
	})

	t.Run("rejects invalid log level", func(t *testing.T) {
		t.Setenv("RESEARCH_DATABASE_URL", "postgres://localhost:5432/research_test")
		t.Setenv("RESEARCH_SERVER_LOG_LEVEL", "loud")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
	})
}
