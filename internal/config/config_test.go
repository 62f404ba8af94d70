package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("PORT", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "nope")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "8787", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.EmailEnabled())
}

func TestLoadPostgresDSNFromParts(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "forum_test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Contains(t, cfg.DatabaseURL, "host=db.internal")
	assert.Contains(t, cfg.DatabaseURL, "dbname=forum_test")
}

func TestValidate(t *testing.T) {
	cfg := &Config{DatabaseDriver: "sqlite"}
	assert.Error(t, cfg.Validate(), "missing secret")

	cfg.JWTSecret = []byte("x")
	cfg.DatabaseDriver = "mysql"
	assert.Error(t, cfg.Validate(), "unknown driver")

	cfg.DatabaseDriver = "postgres"
	assert.NoError(t, cfg.Validate())
}
