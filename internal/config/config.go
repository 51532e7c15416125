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

// Config carries everything the service needs at startup. Values come from
// the environment, with an optional .env file for local development.
type Config struct {
	Addr        string
	DatabaseDSN string

	TelegramBotToken      string
	TelegramWebhookSecret string
	TelegramBaseURL       string

	NotionToken      string
	NotionDatabaseID string
	NotionBaseURL    string

	AdminToken string

	SyncMaxAttempts int
	SyncBaseDelay   time.Duration
	SyncMaxDelay    time.Duration

	LogLevel string
}

func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: skipping .env: %v", err)
	}

	cfg := Config{
		Addr:                  stringEnv("NOTEDROP_ADDR", ":8080"),
		DatabaseDSN:           stringEnv("NOTEDROP_DATABASE_DSN", "sqlite://notedrop.db"),
		TelegramBotToken:      strings.TrimSpace(os.Getenv("NOTEDROP_TELEGRAM_BOT_TOKEN")),
		TelegramWebhookSecret: strings.TrimSpace(os.Getenv("NOTEDROP_TELEGRAM_WEBHOOK_SECRET")),
		TelegramBaseURL:       stringEnv("NOTEDROP_TELEGRAM_BASE_URL", ""),
		NotionToken:           strings.TrimSpace(os.Getenv("NOTEDROP_NOTION_TOKEN")),
		NotionDatabaseID:      strings.TrimSpace(os.Getenv("NOTEDROP_NOTION_DATABASE_ID")),
		NotionBaseURL:         stringEnv("NOTEDROP_NOTION_BASE_URL", ""),
		AdminToken:            strings.TrimSpace(os.Getenv("NOTEDROP_ADMIN_TOKEN")),
		SyncMaxAttempts:       intEnv("NOTEDROP_SYNC_MAX_ATTEMPTS", 3),
		SyncBaseDelay:         durationEnv("NOTEDROP_SYNC_BASE_DELAY", 100*time.Millisecond),
		SyncMaxDelay:          durationEnv("NOTEDROP_SYNC_MAX_DELAY", 2*time.Second),
		LogLevel:              stringEnv("NOTEDROP_LOG_LEVEL", "info"),
	}

	if cfg.TelegramBotToken == "" {
		return Config{}, fmt.Errorf("NOTEDROP_TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.TelegramWebhookSecret == "" {
		return Config{}, fmt.Errorf("NOTEDROP_TELEGRAM_WEBHOOK_SECRET is required")
	}
	if cfg.NotionToken == "" {
		return Config{}, fmt.Errorf("NOTEDROP_NOTION_TOKEN is required")
	}
	if cfg.NotionDatabaseID == "" {
		return Config{}, fmt.Errorf("NOTEDROP_NOTION_DATABASE_ID is required")
	}
	return cfg, nil
}

func stringEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func intEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		log.Printf("config: invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return value
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		log.Printf("config: invalid %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return value
}
