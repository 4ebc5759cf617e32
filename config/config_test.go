package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "echo.db", cfg.DatabasePath)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, DefaultPollInterval, cfg.HumePollInterval)
	assert.Equal(t, DefaultPollTimeout, cfg.HumePollTimeout)
	assert.Equal(t, DefaultGenTimeout, cfg.GenerationTimeout)
	assert.Equal(t, 300*time.Second, cfg.PresignExpiry)
	assert.Equal(t, DefaultHumeBaseURL, cfg.HumeBaseURL)
	assert.Equal(t, 4, cfg.NumCheckinWorkers)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("HUME_POLL_INTERVAL", "500ms")
	t.Setenv("HUME_POLL_TIMEOUT", "5s")
	t.Setenv("HUME_BASE_URL", "http://localhost:9000/v0/")
	t.Setenv("NUM_CHECKIN_WORKERS", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.HumePollInterval)
	assert.Equal(t, 5*time.Second, cfg.HumePollTimeout)
	assert.Equal(t, "http://localhost:9000/v0", cfg.HumeBaseURL)
	assert.Equal(t, defaultNumCheckinWorkers, cfg.NumCheckinWorkers)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("interval exceeds timeout", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("HUME_POLL_INTERVAL", "1m")
		t.Setenv("HUME_POLL_TIMEOUT", "10s")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}
