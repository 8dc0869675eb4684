package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP    HTTPConfig
	Pool    PoolConfig
	Session SessionConfig
	Upload  UploadConfig
	Logging LoggingConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MetricsEnabled    bool
	AllowedOriginsCSV string
	StaticDir         string
}

// PoolConfig bounds the per-session database pool.
type PoolConfig struct {
	MaxConns       int
	IdleTimeout    time.Duration
	ConnectTimeout time.Duration
}

// SessionConfig controls the browser session registry.
type SessionConfig struct {
	CookieName    string
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// UploadConfig controls where certificate uploads are kept.
type UploadConfig struct {
	Dir      string // empty means <log app-data dir>/uploads
	MaxBytes int64
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	Dir           string // empty means the platform app-data dir
	Production    bool
	IncludeCaller bool
}

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 3001
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"
	defaultPoolMax         = 10
	defaultPoolIdle        = 30 * time.Second
	defaultPoolConnect     = 2 * time.Second
	defaultCookieName      = "ageviewer.sid"
	defaultSessionIdle     = 30 * time.Minute
	defaultSweepInterval   = time.Minute
	defaultUploadMaxBytes  = 1 << 20
)

// Load reads configuration from environment variables, applying defaults.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		HTTP: HTTPConfig{
			Host:              valueOrDefault("SERVER_HOST", defaultHost),
			MetricsEnabled:    parseBoolWithDefault("SERVER_METRICS_ENABLED", false),
			AllowedOriginsCSV: os.Getenv("SERVER_ALLOWED_ORIGINS"),
			StaticDir:         os.Getenv("STATIC_DIR"),
		},
		Pool: PoolConfig{
			MaxConns: parseIntWithDefault("PG_POOL_MAX", defaultPoolMax),
		},
		Session: SessionConfig{
			CookieName: valueOrDefault("SESSION_COOKIE", defaultCookieName),
		},
		Upload: UploadConfig{
			Dir:      os.Getenv("UPLOAD_DIR"),
			MaxBytes: int64(parseIntWithDefault("UPLOAD_MAX_BYTES", defaultUploadMaxBytes)),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			Dir:           os.Getenv("LOG_DIR"),
			Production:    strings.EqualFold(os.Getenv("APP_ENV"), "production"),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", defaultReadTimeout, &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", defaultWriteTimeout, &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", defaultIdleTimeout, &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout, &cfg.HTTP.ShutdownTimeout},
		{"PG_IDLE_TIMEOUT", defaultPoolIdle, &cfg.Pool.IdleTimeout},
		{"PG_CONNECT_TIMEOUT", defaultPoolConnect, &cfg.Pool.ConnectTimeout},
		{"SESSION_IDLE_TIMEOUT", defaultSessionIdle, &cfg.Session.IdleTimeout},
		{"SESSION_SWEEP_INTERVAL", defaultSweepInterval, &cfg.Session.SweepInterval},
	}
	for _, d := range durations {
		v, err := parseDuration(d.key, d.fallback)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
