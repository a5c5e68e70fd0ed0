package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("BACKEND_BASE_URL", "http://analytics.internal:8000/")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "http://analytics.internal:8000", cfg.BackendBaseURL)
	assert.Equal(t, time.Duration(0), cfg.BackendTimeout)
	assert.Equal(t, "ai-insights", cfg.DefaultView)
	assert.Equal(t, 10*time.Second, cfg.RenderWait)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Equal(t, 15*time.Minute, cfg.ControllerIdle)
	assert.Equal(t, 10000, cfg.MaxControllers)
	assert.Equal(t, 15*time.Minute, cfg.SessionFirstTTL)
	assert.Less(t, cfg.ControllerIdle, cfg.SessionTTL)
	assert.Equal(t, "₹", cfg.CurrencySymbol)
	assert.False(t, cfg.ZeroAsAbsent)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"relative backend": {"SESSION_SECRET": "x", "BACKEND_BASE_URL": "/api"},
		"negative timeout": {"SESSION_SECRET": "x", "BACKEND_TIMEOUT": "-1s"},
		"blank default":    {"SESSION_SECRET": "x", "DEFAULT_VIEW": "  "},
		"negative limit":   {"SESSION_SECRET": "x", "RATE_LIMIT_PER_MINUTE": "-5"},
		"zero idle":        {"SESSION_SECRET": "x", "CONTROLLER_IDLE": "0s"},
		"no controllers":   {"SESSION_SECRET": "x", "MAX_CONTROLLERS": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("INSIGHTS_DOTENV_PROBE=from-file\nINSIGHTS_DOTENV_KEEP=from-file\n"), 0o600))
	t.Setenv("INSIGHTS_DOTENV_KEEP", "from-env")
	t.Setenv("INSIGHTS_DOTENV_PROBE", "")
	require.NoError(t, os.Unsetenv("INSIGHTS_DOTENV_PROBE"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("INSIGHTS_DOTENV_PROBE"))
	assert.Equal(t, "from-env", os.Getenv("INSIGHTS_DOTENV_KEEP"))
}

func TestLoadDotEnvSkippedInProduction(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("INSIGHTS_DOTENV_PROD=from-file\n"), 0o600))
	t.Setenv("APP_ENV", "production")
	t.Setenv("INSIGHTS_DOTENV_PROD", "")
	require.NoError(t, os.Unsetenv("INSIGHTS_DOTENV_PROD"))

	require.NoError(t, LoadDotEnv(path))
	_, ok := os.LookupEnv("INSIGHTS_DOTENV_PROD")
	assert.False(t, ok)
}

func TestTestModeFlag(t *testing.T) {
	t.Setenv("INSIGHTS_TEST_MODE", "1")
	RefreshTestMode()
	assert.True(t, InTestMode())
	t.Setenv("INSIGHTS_TEST_MODE", "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
