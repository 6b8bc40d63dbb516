package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rickgao/stockfeed/internal/broadcast"
	"github.com/rickgao/stockfeed/internal/config"
	"github.com/rickgao/stockfeed/internal/directory"
	"github.com/rickgao/stockfeed/internal/feed"
	"github.com/rickgao/stockfeed/internal/httpapi"
	"github.com/rickgao/stockfeed/internal/push"
	"github.com/rickgao/stockfeed/internal/registry"
	"github.com/rickgao/stockfeed/internal/session"
	"github.com/rickgao/stockfeed/internal/store"
	"github.com/rickgao/stockfeed/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/stockfeed.yaml", "path to config file")
	flag.Parse()

	// .env is optional; environment variables feed ${VAR} substitution
	// in the config file.
	godotenv.Load()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		// Fall back to defaults when no config file is present.
		if errors.Is(err, os.ErrNotExist) {
			cfg = config.Default()
		} else {
			slog.Error("failed to load config", "error", err, "path", *configPath)
			os.Exit(1)
		}
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("starting stockfeed",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Snapshot backend
	var backend store.Snapshotter
	switch cfg.Storage.Backend {
	case "postgres":
		logger.Info("connecting to database",
			"host", cfg.Storage.Postgres.Host,
			"port", cfg.Storage.Postgres.Port,
			"database", cfg.Storage.Postgres.Name,
		)
		pg, err := store.NewPostgresSnapshotter(ctx, cfg.Storage.Postgres, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		backend = pg
	default:
		backend = store.NewFileSnapshotter(cfg.Storage.File.Path, logger)
	}

	// User directory, restored from the last snapshot. A corrupt
	// snapshot is logged and absorbed; the process starts empty.
	users := directory.New(cfg.Feed.Symbols, logger)
	if records, err := backend.Load(ctx); err != nil {
		logger.Error("failed to load user snapshot, starting empty", "error", err)
	} else if len(records) > 0 {
		users.Restore(records)
		logger.Info("user snapshot restored", "users", len(records))
	}

	// Async snapshot saver
	saver := store.NewSaver(users, backend, logger)
	users.OnDirty(saver.MarkDirty)
	if err := saver.Start(ctx); err != nil {
		logger.Error("failed to start snapshot saver", "error", err)
		os.Exit(1)
	}

	// Price feed
	generator := feed.New(feed.Config{
		Symbols:      cfg.Feed.Symbols,
		TickInterval: cfg.Feed.TickInterval,
		SeedMin:      cfg.Feed.SeedMin,
		SeedMax:      cfg.Feed.SeedMax,
		MaxMovePct:   cfg.Feed.MaxMovePct,
	}, logger)

	// Connection registry + broadcast engine
	sessions := session.NewStore()
	connections := registry.New(logger)
	engine := broadcast.New(broadcast.Config{
		FanoutConcurrency: cfg.Broadcast.FanoutConcurrency,
	}, users, connections, logger)

	generator.OnTick(engine)
	users.OnSubscriptionsChanged(engine.NotifySubscriptions)

	// Push-channel server
	pushCfg := push.DefaultConfig()
	pushCfg.ReadLimit = cfg.Push.ReadLimit
	pushCfg.ReadTimeout = cfg.Push.ReadTimeout
	pushCfg.WriteTimeout = cfg.Push.WriteTimeout
	pushCfg.PingInterval = cfg.Push.PingInterval
	pushCfg.SendBuffer = cfg.Push.SendBuffer
	pushServer := push.NewServer(pushCfg, sessions, users, generator, connections, logger)

	// REST + websocket listener
	handler := httpapi.New(sessions, users, generator, pushServer, cfg.Metrics.Path, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: httpapi.Counted(handler),
	}

	if err := generator.Start(ctx); err != nil {
		logger.Error("failed to start price feed", "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("server listening",
			"port", cfg.Server.Port,
			"symbols", cfg.Feed.Symbols,
		)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop accepting requests, then the tick source, then flush the
	// final snapshot.
	server.Shutdown(shutdownCtx)
	if err := generator.Stop(shutdownCtx); err != nil {
		logger.Warn("price feed stop", "error", err)
	}
	if err := saver.Stop(shutdownCtx); err != nil {
		logger.Warn("snapshot saver stop", "error", err)
	}

	logger.Info("stockfeed stopped")
}

func logLevel(s string) slog.Level {
	switch s {
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
