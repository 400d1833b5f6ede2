// Package config loads service configuration from the environment, with a
// .env file picked up when present.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/subsplit/subsplit/internal/calculator"
)

// Config is everything the server needs to start.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// DBPath is the SQLite database file path.
	DBPath string

	// JWTSecret signs session tokens.
	JWTSecret string

	// TokenDuration is how long session tokens stay valid.
	TokenDuration time.Duration

	// InviteTTL is the default invite expiry.
	InviteTTL time.Duration

	// Tolerances are the reconciliation bounds for split calculations.
	// Configurable because the exact boundary values are policy, not
	// domain invariants.
	Tolerances calculator.Tolerances
}

// Load reads configuration from the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment")
	}

	return &Config{
		Addr:          getEnv("ADDR", ":8080"),
		DBPath:        getEnv("DB_PATH", "./data/subsplit.db"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		TokenDuration: getDuration("TOKEN_DURATION", 24*time.Hour),
		InviteTTL:     getDuration("INVITE_TTL", 7*24*time.Hour),
		Tolerances: calculator.Tolerances{
			Reconcile: getFloat("RECONCILE_TOLERANCE", calculator.DefaultTolerances.Reconcile),
			Percent:   getFloat("PERCENT_TOLERANCE", calculator.DefaultTolerances.Percent),
		},
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("Invalid duration, using default", "key", key, "value", value)
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		slog.Warn("Invalid number, using default", "key", key, "value", value)
	}
	return fallback
}
