package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5005", cfg.Port)
	assert.True(t, cfg.UseLocalDB)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 168*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.StartupCreationWindow)
	assert.Equal(t, "http://localhost:5173", cfg.FrontendURL)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "idea_incubator", cfg.MongoDatabase)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("PORT", "8080")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("ACCESS_TOKEN_TTL", "1h")
	t.Setenv("POSTGRES_DSN", "  postgres://localhost/db \n")
	t.Setenv("FRONTEND_URL", "http://spa.test/")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, "postgres://localhost/db", cfg.PostgresDSN)
	assert.Equal(t, "http://spa.test", cfg.FrontendURL)
}

func TestLoadConfigInvalidDuration(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("ACCESS_TOKEN_TTL", "soon")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestLoadConfigProductionPrefersExternalDatabase(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("DEBUG", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.UseLocalDB)
	assert.False(t, cfg.Debug)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Environment:     "development",
			Port:            "5005",
			JWTSecret:       "secret",
			AccessTokenTTL:  time.Minute,
			RefreshTokenTTL: time.Hour,
			UseLocalDB:      true,
		}
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.Environment = "production"
	cfg.JWTSecret = defaultJWTSecret
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.UseLocalDB = false
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Port = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.AccessTokenTTL = 0
	assert.Error(t, cfg.Validate())
}

func TestGoogleOAuthEnabled(t *testing.T) {
	cfg := &Config{GoogleClientID: "id"}
	assert.False(t, cfg.GoogleOAuthEnabled())
	cfg.GoogleClientSecret = "secret"
	assert.True(t, cfg.GoogleOAuthEnabled())
}
