package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/joho/godotenv"

	"tourneysync/internal/api"
	"tourneysync/internal/config"
	"tourneysync/internal/engine"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)

	client, err := api.NewClient(cfg.APIBaseURL.String(), cfg.APIToken, cfg.HTTPTimeout)
	if err != nil {
		logger.Error("api client init failed", "err", err)
		os.Exit(1)
	}

	eng, err := engine.New(engine.Options{
		ActorID:         cfg.ActorID,
		Social:          client,
		Teams:           client,
		Feed:            client,
		Logger:          logger,
		RefreshInterval: cfg.RefreshInterval,
		RefreshTimeout:  cfg.HTTPTimeout,
		MutationDelay:   cfg.MutationDelay,
		TeamCapacity:    cfg.TeamCapacity,
	})
	if err != nil {
		logger.Error("engine init failed", "err", err)
		os.Exit(1)
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events, cancel := eng.Subscribe()
	defer cancel()
	go func() {
		for e := range events {
			switch e.Type {
			case engine.EventSnapshotApplied:
				logger.Debug("snapshot applied",
					"friends", len(eng.Friends()), "teams", len(eng.Teams()),
					"unread", eng.UnreadCount(), "pending", eng.Pending())
			case engine.EventRelationChanged:
				logger.Info("relation changed", "user", e.UserID, "team", e.TeamID, "state", e.State)
			case engine.EventStateUnknown:
				logger.Warn("relation state unknown", "user", e.UserID, "team", e.TeamID)
			case engine.EventSessionExpired:
				logger.Warn("session expired")
			}
		}
	}()

	logger.Info("sync started", "env", cfg.Env, "api", cfg.APIBaseURL.String(),
		"actor", cfg.ActorID, "interval", cfg.RefreshInterval)
	eng.Run(ctx)
	logger.Info("sync stopped")
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
