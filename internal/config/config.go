package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the process configuration, loaded from the environment
// (optionally seeded from a .env file).
type Config struct {
	Environment string
	Port        string
	LogLevel    slog.Level

	DatabaseURL string
	RedisURL    string

	// KafkaBrokers is optional; when empty, domain events are logged
	// instead of published.
	KafkaBrokers []string
	EventTopic   string

	// SuperAdminEmail identifies the distinguished superadmin account.
	// Role derivation and the bootstrap path both consult it.
	SuperAdminEmail string

	// Timezone is the single canonical zone used for the exam-date match
	// and the daily start window. Defaults to the server's local zone.
	Timezone string
	Location *time.Location
}

// LoadConfig reads configuration from the environment. A missing .env
// file is not an error.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		Port:            getEnv("PORT", "8080"),
		LogLevel:        parseLogLevel(getEnv("LOG_LEVEL", "info")),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		EventTopic:      getEnv("EVENT_TOPIC", "exam-admin-events"),
		SuperAdminEmail: strings.ToLower(strings.TrimSpace(os.Getenv("SUPER_ADMIN_EMAIL"))),
		Timezone:        getEnv("TIMEZONE", "Local"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, broker := range strings.Split(brokers, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SuperAdminEmail == "" {
		return nil, fmt.Errorf("SUPER_ADMIN_EMAIL is required")
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = location

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
