package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("NOTEDROP_TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("NOTEDROP_TELEGRAM_WEBHOOK_SECRET", "hook")
	t.Setenv("NOTEDROP_NOTION_TOKEN", "secret")
	t.Setenv("NOTEDROP_NOTION_DATABASE_ID", "db-1")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.DatabaseDSN != "sqlite://notedrop.db" {
		t.Errorf("DatabaseDSN = %q", cfg.DatabaseDSN)
	}
	if cfg.SyncMaxAttempts != 3 {
		t.Errorf("SyncMaxAttempts = %d", cfg.SyncMaxAttempts)
	}
	if cfg.SyncBaseDelay != 100*time.Millisecond || cfg.SyncMaxDelay != 2*time.Second {
		t.Errorf("delays = %s/%s", cfg.SyncBaseDelay, cfg.SyncMaxDelay)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NOTEDROP_ADDR", ":9999")
	t.Setenv("NOTEDROP_DATABASE_DSN", "memory://")
	t.Setenv("NOTEDROP_SYNC_MAX_ATTEMPTS", "5")
	t.Setenv("NOTEDROP_SYNC_BASE_DELAY", "250ms")
	t.Setenv("NOTEDROP_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.DatabaseDSN != "memory://" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.SyncMaxAttempts != 5 || cfg.SyncBaseDelay != 250*time.Millisecond {
		t.Errorf("sync settings = %d/%s", cfg.SyncMaxAttempts, cfg.SyncBaseDelay)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NOTEDROP_SYNC_MAX_ATTEMPTS", "zero")
	t.Setenv("NOTEDROP_SYNC_BASE_DELAY", "-5ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SyncMaxAttempts != 3 {
		t.Errorf("SyncMaxAttempts = %d, want fallback 3", cfg.SyncMaxAttempts)
	}
	if cfg.SyncBaseDelay != 100*time.Millisecond {
		t.Errorf("SyncBaseDelay = %s, want fallback", cfg.SyncBaseDelay)
	}
}

func TestLoadRequiredFields(t *testing.T) {
	required := []string{
		"NOTEDROP_TELEGRAM_BOT_TOKEN",
		"NOTEDROP_TELEGRAM_WEBHOOK_SECRET",
		"NOTEDROP_NOTION_TOKEN",
		"NOTEDROP_NOTION_DATABASE_ID",
	}
	for _, missing := range required {
		t.Run(missing, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(missing, "")
			if _, err := Load(); err == nil {
				t.Fatalf("Load succeeded without %s", missing)
			}
		})
	}
}
