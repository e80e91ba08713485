package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment string

	// SocketPath is the local endpoint the API listens on. On Windows this
	// is a named pipe path (e.g. \\.\pipe\WardenPedm), elsewhere a unix
	// socket path. The API is never exposed on a network socket.
	SocketPath string

	// DatabaseDriver selects the backing store: "sqlite" or "postgres".
	DatabaseDriver string
	DatabasePath   string
	PostgresDSN    string

	// TokenSecret signs and verifies API scope tokens.
	TokenSecret string

	// ConsentHelperPath is the executable spawned to prompt the user.
	ConsentHelperPath string
	// ConsentTimeout bounds how long a consent prompt may stay unanswered
	// before the broker resolves it as a denial.
	ConsentTimeout time.Duration

	// DefaultDecision applies when a user has no active profile: "deny"
	// (organizational default) or "allow".
	DefaultDecision string

	// MaxTemporarySeconds caps time-boxed session elevations.
	MaxTemporarySeconds int

	// NotifyURLs is a comma-separated list of shoutrrr sender URLs notified
	// on denials and audit failures. Empty disables external notifications.
	NotifyURLs []string
}

// Load reads env vars and falls back to defaults so the daemon can boot with zero configuration.
func Load() (Config, error) {
	cfg := Config{
		Environment:         getEnv("WARDEN_ENV", "development"),
		SocketPath:          getEnv("WARDEN_SOCKET", defaultSocketPath()),
		DatabaseDriver:      getEnv("WARDEN_DB_DRIVER", "sqlite"),
		DatabasePath:        getEnv("WARDEN_DB_PATH", filepath.Join("data", "warden.db")),
		PostgresDSN:         getEnv("WARDEN_POSTGRES_DSN", ""),
		TokenSecret:         getEnv("WARDEN_TOKEN_SECRET", ""),
		ConsentHelperPath:   getEnv("WARDEN_CONSENT_HELPER", defaultHelperPath()),
		DefaultDecision:     getEnv("WARDEN_DEFAULT_DECISION", "deny"),
		MaxTemporarySeconds: getEnvInt("WARDEN_MAX_TEMPORARY_SECONDS", 3600),
	}

	timeoutSecs := getEnvInt("WARDEN_CONSENT_TIMEOUT_SECONDS", 120)
	cfg.ConsentTimeout = time.Duration(timeoutSecs) * time.Second

	if raw := os.Getenv("WARDEN_NOTIFY_URLS"); raw != "" {
		for _, u := range strings.Split(raw, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.NotifyURLs = append(cfg.NotifyURLs, u)
			}
		}
	}

	switch cfg.DatabaseDriver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
			return Config{}, fmt.Errorf("ensure data directory: %w", err)
		}
	case "postgres":
		if cfg.PostgresDSN == "" {
			return Config{}, fmt.Errorf("WARDEN_POSTGRES_DSN is required with the postgres driver")
		}
	default:
		return Config{}, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}

	if cfg.DefaultDecision != "deny" && cfg.DefaultDecision != "allow" {
		return Config{}, fmt.Errorf("WARDEN_DEFAULT_DECISION must be deny or allow, got %q", cfg.DefaultDecision)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}

	return fallback
}
