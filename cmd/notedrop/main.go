package main

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentworkforce/notedrop/internal/config"
	"github.com/agentworkforce/notedrop/internal/httpapi"
	"github.com/agentworkforce/notedrop/internal/notedrop"
	"github.com/agentworkforce/notedrop/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("notedrop: %v", err)
	}
	logger := newLogger(cfg.LogLevel)

	store, err := notedrop.OpenStore(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("open store")
	}
	defer store.Close()

	notion := notedrop.NewNotionClient(notedrop.NotionClientOptions{
		BaseURL:    cfg.NotionBaseURL,
		Token:      cfg.NotionToken,
		DatabaseID: cfg.NotionDatabaseID,
		UserAgent:  "notedrop/1.0",
	})
	events := httpapi.NewSyncEventHub()
	orch := notedrop.NewOrchestrator(notedrop.OrchestratorOptions{
		Pusher: notion,
		Retry: notedrop.RetryPolicy{
			MaxAttempts: cfg.SyncMaxAttempts,
			BaseDelay:   cfg.SyncBaseDelay,
			MaxDelay:    cfg.SyncMaxDelay,
		},
		Events: events,
		Logger: logger,
	})
	replier := telegram.NewClient(telegram.ClientOptions{
		BaseURL:  cfg.TelegramBaseURL,
		BotToken: cfg.TelegramBotToken,
		Logger:   logger,
	})

	server, err := httpapi.NewServer(store, orch, replier, events, httpapi.ServerConfig{
		WebhookSecret: cfg.TelegramWebhookSecret,
		AdminToken:    cfg.AdminToken,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build server")
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info().Str("addr", cfg.Addr).Msg("notedrop listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("http server exited")
	}
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(parsed).With().Timestamp().Logger()
}
