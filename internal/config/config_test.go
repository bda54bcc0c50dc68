package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:5000", cfg.Server.Addr)
	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, "https://api.themoviedb.org/3", cfg.TMDB.BaseURL)
	require.Equal(t, "en-US", cfg.TMDB.Language)
	require.Equal(t, 7*24, cfg.Auth.TokenTTLHours)
	require.Equal(t, 8, cfg.Aggregator.Concurrency)
	require.Equal(t, 10, cfg.Aggregator.TimeoutSeconds)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MOVIEBASE_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("MOVIEBASE_TMDB_APIKEY", "k-123")
	t.Setenv("MOVIEBASE_AUTH_JWTSECRET", "s-456")
	t.Setenv("MOVIEBASE_ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	require.Equal(t, "k-123", cfg.TMDB.APIKey)
	require.Equal(t, "s-456", cfg.Auth.JWTSecret)
	require.Equal(t, "production", cfg.Environment)
}
