// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string
	MetricsAddr      string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))
	switch logLevel {
	case "":
		logLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid LOG_LEVEL %q, use: debug, info, warn, error", logLevel)
	}

	return &Config{
		TelegramBotToken: token,
		DatabasePath:     DatabasePath(),
		LogLevel:         logLevel,
		MetricsAddr:      os.Getenv("METRICS_ADDR"),
	}, nil
}

// DatabasePath returns DATABASE_PATH, or ":memory:" when it is unset.
func DatabasePath() string {
	if p := os.Getenv("DATABASE_PATH"); p != "" {
		return p
	}
	return ":memory:"
}

// InMemory reports whether state is kept only for the process lifetime.
func (c *Config) InMemory() bool {
	return c.DatabasePath == ":memory:"
}
