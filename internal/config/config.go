package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr     string
	DBPath   string
	LogLevel string

	// LogFile, when set, receives logs through a size-rotated file.
	LogFile      string
	LogMaxSizeMB int

	RequestTimeout time.Duration

	AuthSecret string
	AuthIssuer string
	AdminToken string

	GoogleFitClientID     string
	GoogleFitClientSecret string
	GoogleTokenURL        string
	GoogleFitBaseURL      string

	SyncInterval    time.Duration
	SyncOnStart     bool
	SyncConcurrency int
	SyncWindowDays  int
	ProviderTimeout time.Duration
	WorkerCount     int
	WorkerQueueSize int

	DeviceDBPath string
	BackfillDays int
	BackfillRate float64
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:     envOr("ADDR", ":8080"),
		DBPath:   envOr("DB_PATH", "file:stepple.db"),
		LogLevel: envOr("LOG_LEVEL", "INFO"),

		LogFile:      envOr("LOG_FILE", ""),
		LogMaxSizeMB: envIntOr("LOG_MAX_SIZE_MB", 50),

		RequestTimeout: envDurationOr("REQUEST_TIMEOUT", 30*time.Second),

		AuthSecret: envOr("AUTH_SECRET", ""),
		AuthIssuer: envOr("AUTH_ISSUER", "stepple"),
		AdminToken: envOr("ADMIN_TOKEN", ""),

		GoogleFitClientID:     envOr("GOOGLE_FIT_CLIENT_ID", ""),
		GoogleFitClientSecret: envOr("GOOGLE_FIT_CLIENT_SECRET", ""),
		GoogleTokenURL:        envOr("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token"),
		GoogleFitBaseURL:      envOr("GOOGLE_FIT_BASE_URL", "https://www.googleapis.com/fitness/v1"),

		SyncInterval:    envDurationOr("SYNC_INTERVAL", 30*time.Minute),
		SyncOnStart:     envBoolOr("SYNC_ON_START", false),
		SyncConcurrency: envIntOr("SYNC_CONCURRENCY", 8),
		SyncWindowDays:  envIntOr("SYNC_WINDOW_DAYS", 3),
		ProviderTimeout: envDurationOr("PROVIDER_TIMEOUT", 2*time.Minute),
		WorkerCount:     envIntOr("WORKER_COUNT", 1),
		WorkerQueueSize: envIntOr("WORKER_QUEUE_SIZE", 4),

		DeviceDBPath: envOr("DEVICE_DB_PATH", "file:stepple-device.db"),
		BackfillDays: envIntOr("BACKFILL_DAYS", 30),
		BackfillRate: envFloatOr("BACKFILL_RATE", 5),
	}
}

// HasGoogleFitCredentials reports whether the OAuth client is configured.
func (c Config) HasGoogleFitCredentials() bool {
	return c.GoogleFitClientID != "" && c.GoogleFitClientSecret != ""
}

// Validate checks the server-side settings and returns the first problem found.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("ADDR cannot be empty")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.LogFile != "" && c.LogMaxSizeMB < 1 {
		return fmt.Errorf("LOG_MAX_SIZE_MB must be at least 1")
	}
	if c.SyncInterval < time.Minute {
		return fmt.Errorf("SYNC_INTERVAL must be at least 1m, got %s", c.SyncInterval)
	}
	if c.ProviderTimeout <= 0 || c.ProviderTimeout >= c.SyncInterval {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive and shorter than SYNC_INTERVAL")
	}
	if c.SyncConcurrency < 1 {
		return fmt.Errorf("SYNC_CONCURRENCY must be at least 1")
	}
	if c.SyncWindowDays < 1 || c.SyncWindowDays > 30 {
		return fmt.Errorf("SYNC_WINDOW_DAYS must be between 1 and 30")
	}
	if c.WorkerCount < 1 || c.WorkerQueueSize < 1 {
		return fmt.Errorf("WORKER_COUNT and WORKER_QUEUE_SIZE must be at least 1")
	}
	return nil
}

// ValidateDevice checks the settings used by the device-side CLI.
func (c Config) ValidateDevice() error {
	if strings.TrimSpace(c.DeviceDBPath) == "" {
		return fmt.Errorf("DEVICE_DB_PATH cannot be empty")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.BackfillDays < 0 || c.BackfillDays > 365 {
		return fmt.Errorf("BACKFILL_DAYS must be between 0 and 365")
	}
	if c.BackfillRate <= 0 {
		return fmt.Errorf("BACKFILL_RATE must be positive")
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envFloatOr(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("invalid value for %s=%q, using default %g", key, v, def)
	}
	return def
}

func envBoolOr(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("invalid value for %s=%q, using default %t", key, v, def)
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid value for %s=%q, using default %s", key, v, def)
	}
	return def
}
