package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"group_helper/internal/bot"
	"group_helper/internal/config"
	"group_helper/internal/metrics"
	"group_helper/internal/scheduler"
	"group_helper/internal/storage"
)

func main() {
	migrate := flag.String("migrate", "", "apply a schema command (up, down, reset, version, status) to DATABASE_PATH and exit")
	flag.Parse()

	if err := loadDotEnv(); err != nil {
		slog.Warn("load .env", "error", err)
	}

	if *migrate != "" {
		if err := runMigrate(context.Background(), config.DatabasePath(), *migrate, os.Stdout); err != nil {
			slog.Error("migrate", "command", *migrate, "error", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if !cfg.InMemory() {
		if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				log.Error("create data directory", "path", dir, "error", err)
				os.Exit(1)
			}
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	b, err := bot.New(cfg.TelegramBotToken, store, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	sched := scheduler.New(store, b, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.MetricsAddr != "" {
		go metrics.Serve(ctx, cfg.MetricsAddr, log)
	}

	log.Info("starting bot", "database", cfg.DatabasePath)

	go func() {
		if err := sched.Run(ctx); err != nil {
			log.Error("scheduler stopped", "error", err)
		}
	}()

	b.Run(ctx)

	log.Info("bot stopped")
}

// loadDotEnv loads variables from .env files (default ".env") without
// overriding the environment. A missing file is not an error.
func loadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
