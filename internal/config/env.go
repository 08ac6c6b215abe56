package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envOverrides lists the environment variables that override file settings.
// The unprefixed names match the variables the WhatsApp Cloud API quickstart
// uses in its .env file.
type envOverrides struct {
	AccessToken     string        `env:"ACCESS_TOKEN"`
	APIVersion      string        `env:"VERSION"`
	PhoneNumberID   string        `env:"PHONE_NUMBER_ID"`
	VerifyToken     string        `env:"VERIFY_TOKEN"`
	AppSecret       string        `env:"APP_SECRET"`
	WhatsAppBaseURL string        `env:"WHATSAPP_BASE_URL"`
	SendTimeout     time.Duration `env:"WHATSAPP_SEND_TIMEOUT"`

	OpenAIAPIKey      string `env:"OPENAI_API_KEY"`
	OpenAIAssistantID string `env:"OPENAI_ASSISTANT_ID"`
	AssistantID       string `env:"ASSISTANT_ID"`
	OpenAIBaseURL     string `env:"OPENAI_BASE_URL"`
	OpenAIOrg         string `env:"OPENAI_ORG_ID"`

	RunTimeout   time.Duration `env:"WA_RELAY_RUN_TIMEOUT"`
	PollInterval time.Duration `env:"WA_RELAY_POLL_INTERVAL"`

	HTTPHost  string `env:"WA_RELAY_HTTP_HOST"`
	HTTPPort  int    `env:"WA_RELAY_HTTP_PORT"`
	LogLevel  string `env:"WA_RELAY_LOG_LEVEL"`
	LogFormat string `env:"WA_RELAY_LOG_FORMAT"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// ApplyEnv overlays environment variables onto cfg. Unset or empty
// variables leave the file value in place. A nil environ reads the process
// environment.
func ApplyEnv(cfg *Config, environ map[string]string) error {
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	var o envOverrides
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	setString(&cfg.WhatsApp.AccessToken, o.AccessToken)
	setString(&cfg.WhatsApp.APIVersion, o.APIVersion)
	setString(&cfg.WhatsApp.PhoneNumberID, o.PhoneNumberID)
	setString(&cfg.WhatsApp.VerifyToken, o.VerifyToken)
	setString(&cfg.WhatsApp.AppSecret, o.AppSecret)
	setString(&cfg.WhatsApp.BaseURL, o.WhatsAppBaseURL)
	if o.SendTimeout > 0 {
		cfg.WhatsApp.SendTimeout = o.SendTimeout
	}

	setString(&cfg.Assistant.APIKey, o.OpenAIAPIKey)
	setString(&cfg.Assistant.AssistantID, o.AssistantID)
	setString(&cfg.Assistant.AssistantID, o.OpenAIAssistantID)
	setString(&cfg.Assistant.BaseURL, o.OpenAIBaseURL)
	setString(&cfg.Assistant.Organization, o.OpenAIOrg)
	if o.RunTimeout > 0 {
		cfg.Assistant.RunTimeout = o.RunTimeout
	}
	if o.PollInterval > 0 {
		cfg.Assistant.PollInterval = o.PollInterval
	}

	setString(&cfg.Server.Host, o.HTTPHost)
	if o.HTTPPort != 0 {
		cfg.Server.HTTPPort = o.HTTPPort
	}
	setString(&cfg.Logging.Level, o.LogLevel)
	setString(&cfg.Logging.Format, o.LogFormat)

	if o.OTLPEndpoint != "" {
		cfg.Observability.Tracing.Endpoint = o.OTLPEndpoint
		cfg.Observability.Tracing.Enabled = true
	}
	return nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are skipped. With no arguments it reads ./.env.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}
