package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lumin-ai/lens/internal/aggregate"
	"github.com/lumin-ai/lens/internal/api"
	"github.com/lumin-ai/lens/internal/catalog"
	"github.com/lumin-ai/lens/internal/chat"
	"github.com/lumin-ai/lens/internal/config"
	"github.com/lumin-ai/lens/internal/conversation"
	"github.com/lumin-ai/lens/internal/notify"
	"github.com/lumin-ai/lens/internal/selection"
	"github.com/lumin-ai/lens/internal/stream"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("lens starting", "port", cfg.Port, "backend", cfg.BackendURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Model catalog, loaded once; falls back to the static list so
	// the selector stays usable without the catalog service.
	cat := catalog.Load(ctx, cfg.BackendURL, slog.Default())

	// Selected-model store, one instance injected everywhere.
	sel := selection.NewStore()
	if sel.EnsureDefault(cat, cfg.DefaultModel) {
		slog.Info("default model selected", "model", cfg.DefaultModel)
	} else {
		slog.Warn("default model not in catalog, selection left unset", "model", cfg.DefaultModel)
	}

	// NATS notifier (optional; lens works without it, renderers poll instead)
	var notifier *notify.Notifier
	if cfg.NatsURL != "" {
		var err error
		notifier, err = notify.New(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer notifier.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured, running without the rendering feed")
	}
	sel.Subscribe(func(id string) {
		notifier.Publish(notify.SubjectModelSelected, map[string]string{"model": id})
	})

	convLog := conversation.NewLog()
	agg := aggregate.New(slog.Default())
	assembler := aggregate.NewAssembler(sel, convLog)
	streams := stream.NewClient(cfg.BackendURL, cfg.StreamTimeout, slog.Default())
	runner := chat.NewRunner(streams, agg, assembler, convLog, sel, notifier, slog.Default())

	srv := api.NewServer(cfg.Port, convLog, agg, runner, cat, sel, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("lens ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	runner.Cancel()
	cancel()
	slog.Info("lens stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
