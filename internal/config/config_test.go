package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend.local:3000")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("NOTIFY_WORKERS", "4")
	t.Setenv("SESSION_TTL", "30")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "http://backend.local:3000", cfg.Backend.URL)
	require.True(t, cfg.Redis.Enabled())
	require.Equal(t, "localhost:6380", cfg.Redis.Addr())
	require.Equal(t, 4, cfg.Notify.Workers)
	require.Equal(t, 64, cfg.Notify.QueueSize)
	require.Equal(t, 30*time.Minute, cfg.Session.TTL)
	require.Equal(t, "docflow_session", cfg.Session.CookieName)
	require.Empty(t, cfg.MongoDB.URI)
}

func TestLoadConfigRequiresBackend(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	_, err := LoadConfig()
	require.ErrorIs(t, err, ErrMissingBackend)

	t.Setenv("BACKEND_URL", "backend.local")
	_, err = LoadConfig()
	require.Error(t, err)
}
