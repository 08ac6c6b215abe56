// Package config loads the relay configuration from YAML or JSON5 files,
// a .env file and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/wa-relay/internal/channels/whatsapp"
	"github.com/haasonsaas/wa-relay/internal/markdown"
)

// Config is the main configuration structure for wa-relay.
type Config struct {
	Version       int                 `yaml:"version"`
	Server        ServerConfig        `yaml:"server"`
	WhatsApp      whatsapp.Config     `yaml:"whatsapp"`
	Assistant     AssistantConfig     `yaml:"assistant"`
	Markdown      MarkdownConfig      `yaml:"markdown"`
	Dedupe        DedupeConfig        `yaml:"dedupe"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServerConfig struct {
	Host              string        `yaml:"host"`
	HTTPPort          int           `yaml:"http_port"`
	WebhookPath       string        `yaml:"webhook_path"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.HTTPPort)
}

// AssistantConfig configures the OpenAI assistant and the polling loop.
type AssistantConfig struct {
	APIKey         string        `yaml:"api_key"`
	AssistantID    string        `yaml:"assistant_id"`
	BaseURL        string        `yaml:"base_url"`
	Organization   string        `yaml:"organization"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// PollInterval is the fixed wait between run status checks.
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPollAttempts int           `yaml:"max_poll_attempts"`
	RunTimeout      time.Duration `yaml:"run_timeout"`

	// Replies overrides the fallback texts sent when a turn fails.
	Replies FallbackReplies `yaml:"replies"`
}

type FallbackReplies struct {
	Failure string `yaml:"failure"`
	Empty   string `yaml:"empty"`
	Timeout string `yaml:"timeout"`
}

// MarkdownConfig controls how assistant output is adapted for WhatsApp.
type MarkdownConfig struct {
	// Tables is one of off, bullets or code.
	Tables string `yaml:"tables"`
}

// DedupeConfig controls suppression of redelivered webhook messages.
type DedupeConfig struct {
	Enabled *bool         `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
	MaxSize int           `yaml:"max_size"`
}

// IsEnabled reports whether deduplication is on. It defaults to true.
func (d DedupeConfig) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

type LoggingConfig struct {
	Level          string   `yaml:"level"`
	Format         string   `yaml:"format"`
	AddSource      bool     `yaml:"add_source"`
	RedactPatterns []string `yaml:"redact_patterns"`
}

// ObservabilityConfig configures metrics and tracing.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// IsEnabled reports whether the metrics endpoint is served. It defaults to
// true.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled        bool              `yaml:"enabled"`
	Endpoint       string            `yaml:"endpoint"`
	ServiceName    string            `yaml:"service_name"`
	ServiceVersion string            `yaml:"service_version"`
	Environment    string            `yaml:"environment"`
	SamplingRate   float64           `yaml:"sampling_rate"`
	Insecure       bool              `yaml:"insecure"`
	Attributes     map[string]string `yaml:"attributes"`
}

// Load reads the configuration file at path, applies environment overrides
// and defaults, and validates the result. An empty path configures the relay
// from the environment alone.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, nil)
}

// LoadWithEnv is Load with an explicit environment. A nil environ uses the
// process environment.
func LoadWithEnv(path string, environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if strings.TrimSpace(path) != "" {
		raw, err := LoadRaw(path)
		if err != nil {
			return nil, err
		}
		cfg, err = decodeRawConfig(raw)
		if err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(cfg, environ); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8000
	}
	if cfg.Server.WebhookPath == "" {
		cfg.Server.WebhookPath = "/webhook"
	}
	if cfg.Server.ReadHeaderTimeout == 0 {
		cfg.Server.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	cfg.WhatsApp = cfg.WhatsApp.WithDefaults()

	if cfg.Assistant.PollInterval == 0 {
		cfg.Assistant.PollInterval = 500 * time.Millisecond
	}
	if cfg.Assistant.MaxPollAttempts == 0 {
		cfg.Assistant.MaxPollAttempts = 240
	}
	if cfg.Assistant.RunTimeout == 0 {
		cfg.Assistant.RunTimeout = 2 * time.Minute
	}
	if cfg.Assistant.RequestTimeout == 0 {
		cfg.Assistant.RequestTimeout = 30 * time.Second
	}

	if cfg.Markdown.Tables == "" {
		cfg.Markdown.Tables = string(markdown.DefaultTableModeForChannel("whatsapp"))
	}

	if cfg.Dedupe.TTL == 0 {
		cfg.Dedupe.TTL = 20 * time.Minute
	}
	if cfg.Dedupe.MaxSize == 0 {
		cfg.Dedupe.MaxSize = 5000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Observability.Metrics.Path == "" {
		cfg.Observability.Metrics.Path = "/metrics"
	}
	if cfg.Observability.Tracing.ServiceName == "" {
		cfg.Observability.Tracing.ServiceName = "wa-relay"
	}
	if cfg.Observability.Tracing.SamplingRate == 0 {
		cfg.Observability.Tracing.SamplingRate = 1.0
	}
}

// Validate reports every structural problem at once. Credentials are
// checked separately by Require, since not every command needs all of them.
func (c *Config) Validate() error {
	var issues []string

	if err := ValidateVersion(c.Version); err != nil {
		issues = append(issues, err.Error())
	}
	if c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535 {
		issues = append(issues, fmt.Sprintf("server.http_port must be between 1 and 65535, got %d", c.Server.HTTPPort))
	}
	if !strings.HasPrefix(c.Server.WebhookPath, "/") {
		issues = append(issues, "server.webhook_path must start with /")
	}
	if c.Assistant.PollInterval < 0 || c.Assistant.RunTimeout < 0 || c.Assistant.MaxPollAttempts < 0 {
		issues = append(issues, "assistant poll settings must not be negative")
	}
	if !markdown.IsValidTableMode(c.Markdown.Tables) {
		issues = append(issues, fmt.Sprintf("markdown.tables must be off, bullets or code, got %q", c.Markdown.Tables))
	}
	if c.Dedupe.TTL < 0 || c.Dedupe.MaxSize < 0 {
		issues = append(issues, "dedupe.ttl and dedupe.max_size must not be negative")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		issues = append(issues, fmt.Sprintf("logging.format must be json or text, got %q", c.Logging.Format))
	}
	if c.Observability.Tracing.Enabled && strings.TrimSpace(c.Observability.Tracing.Endpoint) == "" {
		issues = append(issues, "observability.tracing.endpoint is required when tracing is enabled")
	}
	if r := c.Observability.Tracing.SamplingRate; r < 0 || r > 1 {
		issues = append(issues, "observability.tracing.sampling_rate must be between 0 and 1")
	}

	return issuesError(issues)
}

// Requirement names a set of credentials a command depends on.
type Requirement int

const (
	// NeedWhatsApp covers sending messages.
	NeedWhatsApp Requirement = 1 << iota
	// NeedWebhook covers the subscription handshake.
	NeedWebhook
	// NeedAssistant covers running assistant turns.
	NeedAssistant

	NeedAll = NeedWhatsApp | NeedWebhook | NeedAssistant
)

// Require checks that the credentials in needs are configured.
func (c *Config) Require(needs Requirement) error {
	var issues []string
	if needs&NeedWhatsApp != 0 {
		if err := c.WhatsApp.Validate(); err != nil {
			issues = append(issues, err.Error())
		}
	}
	if needs&NeedWebhook != 0 && strings.TrimSpace(c.WhatsApp.VerifyToken) == "" {
		issues = append(issues, "whatsapp: verify_token is required")
	}
	if needs&NeedAssistant != 0 {
		if strings.TrimSpace(c.Assistant.APIKey) == "" {
			issues = append(issues, "assistant: api_key is required")
		}
		if strings.TrimSpace(c.Assistant.AssistantID) == "" {
			issues = append(issues, "assistant: assistant_id is required")
		}
	}
	return issuesError(issues)
}

func issuesError(issues []string) error {
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

// ValidationError lists every problem found by Validate.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "config validation failed: " + strings.Join(e.Issues, "; ")
}

