package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haasonsaas/wa-relay/internal/cache"
	"github.com/haasonsaas/wa-relay/internal/channels/whatsapp"
	"github.com/haasonsaas/wa-relay/internal/config"
	"github.com/haasonsaas/wa-relay/internal/gateway"
	"github.com/haasonsaas/wa-relay/internal/markdown"
	"github.com/haasonsaas/wa-relay/internal/observability"
	"github.com/haasonsaas/wa-relay/internal/relay"
)

// runServe implements the serve command logic.
// It handles configuration loading, component wiring, and graceful shutdown.
func runServe(ctx context.Context, flags *globalFlags) error {
	cfg, err := loadConfig(flags, config.NeedAll)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging, os.Stderr)

	logger.Info("starting wa-relay",
		"version", version,
		"commit", commit,
		"config", resolveConfigPath(flags.configPath),
		"debug", flags.debug,
	)

	var metrics *observability.Metrics
	metricsPath := ""
	if cfg.Observability.Metrics.IsEnabled() {
		metrics = observability.NewMetrics()
		metricsPath = cfg.Observability.Metrics.Path
	}

	tracer, shutdownTracer := newTracer(cfg.Observability.Tracing)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	bridge, err := newBridge(cfg, logger, metrics, tracer)
	if err != nil {
		return fmt.Errorf("failed to initialize assistant: %w", err)
	}
	sender, err := newSender(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize whatsapp client: %w", err)
	}

	relayOpts := []relay.Option{
		relay.WithLogger(logger),
		relay.WithMetrics(metrics),
		relay.WithTracer(tracer),
		relay.WithTableMode(markdown.ParseTableMode(cfg.Markdown.Tables, markdown.TableModeBullets)),
		relay.WithEmptyReply(cfg.Assistant.Replies.Empty),
	}
	if cfg.Dedupe.IsEnabled() {
		relayOpts = append(relayOpts, relay.WithDedupe(cache.NewDedupeCache(cache.DedupeCacheOptions{
			TTL:     cfg.Dedupe.TTL,
			MaxSize: cfg.Dedupe.MaxSize,
		})))
	}
	pipeline := relay.New(bridge, sender, relayOpts...)

	server := gateway.NewServer(gateway.Config{
		Addr:              cfg.Server.Addr(),
		WebhookPath:       cfg.Server.WebhookPath,
		MetricsPath:       metricsPath,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
	},
		whatsapp.NewWebhookHandler(cfg.WhatsApp, pipeline, logger),
		gateway.WithLogger(logger),
		gateway.WithMetrics(metrics),
	)

	// Create a context that cancels on shutdown signals.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("wa-relay stopped")
	return nil
}
