// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Backend names for the checkpoint store.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	Port              string
	LogLevel          string
	CheckpointBackend string
	CheckpointDir     string
	CheckpointDBPath  string
	HistoryCap        int
	SchemaPath        string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		CheckpointBackend: strings.ToLower(getEnv("CHECKPOINT_BACKEND", BackendFile)),
		CheckpointDir:     getEnv("CHECKPOINT_DIR", "checkpoints"),
		CheckpointDBPath:  getEnv("CHECKPOINT_DB_PATH", "./data/studybot.db"),
		HistoryCap:        getEnvInt("HISTORY_CAP", 50),
		SchemaPath:        getEnv("SCHEMA_PATH", ""),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.CheckpointBackend {
	case BackendFile:
		if c.CheckpointDir == "" {
			return fmt.Errorf("CHECKPOINT_DIR cannot be empty")
		}
	case BackendSQLite:
		if c.CheckpointDBPath == "" {
			return fmt.Errorf("CHECKPOINT_DB_PATH cannot be empty")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown CHECKPOINT_BACKEND %q", c.CheckpointBackend)
	}
	if c.HistoryCap <= 0 {
		return fmt.Errorf("HISTORY_CAP must be > 0")
	}
	return nil
}

// SlogLevel maps the configured level name onto a slog level. Unknown names
// fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
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

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
