package app

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/testing/guard"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, "USD", cfg.LedgerDefaultCurrency)
	require.False(t, cfg.LedgerEnforcePostable)
	require.Equal(t, 10*time.Minute, cfg.CloseoutCacheTTL)
	require.Equal(t, 12*time.Hour, cfg.ShiftStaleAfter)
	require.Equal(t, 120, cfg.RateLimitPerMinute)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("LEDGER_DEFAULT_CURRENCY", " idr ")
	t.Setenv("LEDGER_ENFORCE_POSTABLE", "true")
	t.Setenv("SHIFT_STALE_AFTER", "90m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://pos.example.com,https://erp.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, "IDR", cfg.LedgerDefaultCurrency)
	require.True(t, cfg.LedgerEnforcePostable)
	require.Equal(t, 90*time.Minute, cfg.ShiftStaleAfter)
	require.Equal(t, []string{"https://pos.example.com", "https://erp.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"currency":   {"LEDGER_DEFAULT_CURRENCY", "DOLLARS"},
		"stale":      {"SHIFT_STALE_AFTER", "0s"},
		"rate limit": {"RATE_LIMIT_PER_MINUTE", "0"},
		"duration":   {"CLOSEOUT_CACHE_TTL", "soon"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(env[0], env[1])
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestNewLoggerFormats(t *testing.T) {
	require.IsType(t, &slog.JSONHandler{}, NewLogger(&Config{LogFormat: "json"}).Handler())
	require.IsType(t, &slog.TextHandler{}, NewLogger(&Config{LogFormat: "pretty"}).Handler())

	logger := NewLogger(&Config{LogFormat: "json", LogLevel: "warn"})
	require.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	require.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestInTestModeFollowsEnvironment(t *testing.T) {
	guard.Set(t, false)
	RefreshTestMode()
	require.False(t, InTestMode())

	guard.Set(t, true)
	RefreshTestMode()
	require.True(t, InTestMode())
}
