package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is sourced from the environment, optionally seeded from a .env
// file. Tick intervals of the periodic loops are fixed at one minute and
// deliberately not configurable.
type Config struct {
	TelegramToken string
	DatabaseURI   string

	// ReminderInterval is how long an unacknowledged reminder waits
	// before being re-sent.
	ReminderInterval time.Duration

	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	LogLevel string
}

func Load() (*Config, error) {
	// .env file is optional in production.
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		DatabaseURI:   os.Getenv("DATABASE_URI"),
		LLMBaseURL:    getEnvOrDefault("LLM_BASE_URL", "http://localhost:11434/v1"),
		LLMModel:      getEnvOrDefault("LLM_MODEL", "llama3"),
		LLMAPIKey:     getEnvOrDefault("LLM_API_KEY", "ollama"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}
	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("DATABASE_URI is not set")
	}

	intervalRaw := getEnvOrDefault("REMINDER_INTERVAL", "300")
	seconds, err := strconv.Atoi(intervalRaw)
	if err != nil || seconds <= 0 {
		return nil, fmt.Errorf("invalid REMINDER_INTERVAL %q: expected positive seconds", intervalRaw)
	}
	cfg.ReminderInterval = time.Duration(seconds) * time.Second

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
