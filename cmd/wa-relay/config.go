package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/haasonsaas/wa-relay/internal/assistant"
	"github.com/haasonsaas/wa-relay/internal/backoff"
	"github.com/haasonsaas/wa-relay/internal/channels/whatsapp"
	"github.com/haasonsaas/wa-relay/internal/config"
	"github.com/haasonsaas/wa-relay/internal/observability"
)

// defaultConfigName is picked up from the working directory when no path
// is given.
const defaultConfigName = "wa-relay.yaml"

// resolveConfigPath determines the configuration file path based on:
// 1. Explicit path provided by user
// 2. WA_RELAY_CONFIG
// 3. wa-relay.yaml in the working directory, if present
//
// An empty result means the configuration comes from the environment alone.
func resolveConfigPath(path string) string {
	if p := strings.TrimSpace(path); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv("WA_RELAY_CONFIG")); p != "" {
		return p
	}
	if _, err := os.Stat(defaultConfigName); err == nil {
		return defaultConfigName
	}
	return ""
}

// loadConfig loads the .env file, then the configuration, and checks the
// credentials the calling command needs.
func loadConfig(flags *globalFlags, needs config.Requirement) (*config.Config, error) {
	if flags.envFile != "" {
		if err := config.LoadDotEnv(flags.envFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(resolveConfigPath(flags.configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flags.debug {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Require(needs); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the redacting logger from config and installs it as the
// default.
func newLogger(cfg config.LoggingConfig, out io.Writer) *slog.Logger {
	logger := observability.NewLogger(observability.LogConfig{
		Level:          cfg.Level,
		Format:         cfg.Format,
		Output:         out,
		AddSource:      cfg.AddSource,
		RedactPatterns: cfg.RedactPatterns,
	})
	slog.SetDefault(logger)
	return logger
}

func newTracer(cfg config.TracingConfig) (*observability.Tracer, func(context.Context) error) {
	traceCfg := observability.TraceConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Environment,
		SamplingRate:   cfg.SamplingRate,
		Attributes:     cfg.Attributes,
		EnableInsecure: cfg.Insecure,
	}
	if traceCfg.ServiceVersion == "" {
		traceCfg.ServiceVersion = version
	}
	if cfg.Enabled {
		traceCfg.Endpoint = cfg.Endpoint
	}
	return observability.NewTracer(traceCfg)
}

func newBridge(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, tracer *observability.Tracer) (*assistant.Bridge, error) {
	client, err := assistant.NewOpenAIClient(assistant.OpenAIConfig{
		APIKey:         cfg.Assistant.APIKey,
		BaseURL:        cfg.Assistant.BaseURL,
		Organization:   cfg.Assistant.Organization,
		RequestTimeout: cfg.Assistant.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}
	return assistant.NewBridge(client, assistant.BridgeConfig{
		AssistantID:     cfg.Assistant.AssistantID,
		PollPolicy:      backoff.Fixed(cfg.Assistant.PollInterval),
		MaxPollAttempts: cfg.Assistant.MaxPollAttempts,
		RunTimeout:      cfg.Assistant.RunTimeout,
		FailureReply:    cfg.Assistant.Replies.Failure,
		EmptyReply:      cfg.Assistant.Replies.Empty,
		TimeoutReply:    cfg.Assistant.Replies.Timeout,
	},
		assistant.WithLogger(logger),
		assistant.WithMetrics(metrics),
		assistant.WithTracer(tracer),
	)
}

func newSender(cfg *config.Config, logger *slog.Logger) (*whatsapp.Client, error) {
	return whatsapp.NewClient(cfg.WhatsApp, whatsapp.WithLogger(logger))
}
