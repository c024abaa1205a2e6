package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kellyBotTrade/internal/kelly"
)

// clearEnv unsets every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "TELEGRAM_BOT_TOKEN", "WEBHOOK_PUBLIC_URL", "OPENAI_API_KEY", "OPENAI_MODEL",
		"PORT", "DB_PATH", "LOG_LEVEL", "KELLY_LOOKUP", "KELLY_BINS", "KELLY_MAX_FRACTION",
		"CHART_CACHE_TTL", "FETCH_TIMEOUT", "COMMAND_TIMEOUT", "YAHOO_OUTLIER_IQR",
	} {
		t.Setenv(k, "")
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultCacheTTL, cfg.CacheTTL)
	assert.Equal(t, kelly.DefaultBins, cfg.Kelly.Bins)
	assert.Equal(t, "normalized", cfg.Kelly.Lookup)
	assert.Equal(t, 1.0, cfg.Kelly.MaxFraction)
	assert.Zero(t, cfg.OutlierIQR)

	core, err := cfg.Kelly.Core()
	require.NoError(t, err)
	assert.Equal(t, kelly.Config{Bins: 20, Lookup: kelly.LookupNormalized, MaxFraction: 1}, core)

	assert.Error(t, cfg.ValidateBot())
}

func TestLoadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("WEBHOOK_PUBLIC_URL", "https://bot.example.com/telegram/webhook")
	t.Setenv("PORT", "8080")
	t.Setenv("KELLY_BINS", "12")
	t.Setenv("KELLY_LOOKUP", "wealth")
	t.Setenv("KELLY_MAX_FRACTION", "0.5")
	t.Setenv("CHART_CACHE_TTL", "5m")
	t.Setenv("YAHOO_OUTLIER_IQR", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 12, cfg.Kelly.Bins)
	assert.Equal(t, "wealth", cfg.Kelly.Lookup)
	assert.Equal(t, 0.5, cfg.Kelly.MaxFraction)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 3.0, cfg.OutlierIQR)
	assert.NoError(t, cfg.ValidateBot())
}

func TestLoadFileWithEnvSubstitutionAndOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_TG_TOKEN", "secret123")

	path := writeTempFile(t, `
telegram_token: ${TEST_TG_TOKEN}
port: "7000"
log_level: debug
chart_cache_ttl: 30s
kelly:
  bins: 8
  lookup: corrected
  max_fraction: 2
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "secret123", cfg.TelegramToken)
	assert.Equal(t, "7100", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 8, cfg.Kelly.Bins)
	assert.Equal(t, 2.0, cfg.Kelly.MaxFraction)

	core, err := cfg.Kelly.Core()
	require.NoError(t, err)
	assert.Equal(t, kelly.LookupNormalized, core.Lookup)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad bins", env: map[string]string{"KELLY_BINS": "many"}},
		{name: "negative bins", env: map[string]string{"KELLY_BINS": "-2"}},
		{name: "unknown lookup", env: map[string]string{"KELLY_LOOKUP": "median"}},
		{name: "bad fraction", env: map[string]string{"KELLY_MAX_FRACTION": "x"}},
		{name: "bad outlier multiplier", env: map[string]string{"YAHOO_OUTLIER_IQR": "wide"}},
		{name: "negative outlier multiplier", env: map[string]string{"YAHOO_OUTLIER_IQR": "-1"}},
		{name: "bad duration", env: map[string]string{"CHART_CACHE_TTL": "soon"}},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "loud"}},
		{name: "bad port", env: map[string]string{"PORT": "http"}},
		{name: "missing file", env: map[string]string{"CONFIG_FILE": "/does/not/exist.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", writeTempFile(t, "kelly: [unclosed"))
	_, err := Load()
	assert.ErrorContains(t, err, "parse config yaml")
}
