package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/stepple/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		Addr:            ":8080",
		DBPath:          "test.db",
		LogLevel:        "INFO",
		SyncInterval:    30 * time.Minute,
		SyncConcurrency: 4,
		SyncWindowDays:  3,
		ProviderTimeout: 2 * time.Minute,
		WorkerCount:     1,
		WorkerQueueSize: 4,
		DeviceDBPath:    "device.db",
		BackfillDays:    30,
		BackfillRate:    5,
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
	assert.NoError(t, validConfig().ValidateDevice())
}

func TestValidate_EmptyAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADDR cannot be empty")
}

func TestValidate_EmptyDBPath(t *testing.T) {
	cfg := validConfig()
	cfg.DBPath = " "

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PATH cannot be empty")
}

func TestValidate_ProviderTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
	}{
		{name: "zero", timeout: 0},
		{name: "longer than tick", timeout: time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.ProviderTimeout = tt.timeout
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "PROVIDER_TIMEOUT")
		})
	}
}

func TestValidate_SyncWindowDays(t *testing.T) {
	cfg := validConfig()
	cfg.SyncWindowDays = 0
	assert.Error(t, cfg.Validate())

	cfg.SyncWindowDays = 31
	assert.Error(t, cfg.Validate())
}

func TestValidateDevice_BackfillRate(t *testing.T) {
	cfg := validConfig()
	cfg.BackfillRate = 0

	err := cfg.ValidateDevice()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BACKFILL_RATE")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ADDR", "")
	t.Setenv("SYNC_INTERVAL", "")
	t.Setenv("BACKFILL_DAYS", "")

	cfg := config.Load()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 30*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 30, cfg.BackfillDays)
	assert.Equal(t, "https://oauth2.googleapis.com/token", cfg.GoogleTokenURL)
}

func TestLoad_EnvOverridesAndFallbacks(t *testing.T) {
	t.Setenv("ADDR", ":9999")
	t.Setenv("SYNC_INTERVAL", "45m")
	t.Setenv("SYNC_CONCURRENCY", "not-a-number")
	t.Setenv("SYNC_ON_START", "true")
	t.Setenv("GOOGLE_FIT_CLIENT_ID", "id")
	t.Setenv("GOOGLE_FIT_CLIENT_SECRET", "secret")
	t.Setenv("ADMIN_TOKEN", "ops")

	cfg := config.Load()
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "ops", cfg.AdminToken)
	assert.Equal(t, 45*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 8, cfg.SyncConcurrency)
	assert.True(t, cfg.SyncOnStart)
	assert.True(t, cfg.HasGoogleFitCredentials())
}

func TestValidate_LogRotation(t *testing.T) {
	cfg := validConfig()
	cfg.LogFile = "stepple.log"
	cfg.LogMaxSizeMB = 0
	assert.ErrorContains(t, cfg.Validate(), "LOG_MAX_SIZE_MB")

	cfg.LogMaxSizeMB = 10
	assert.NoError(t, cfg.Validate())
}
