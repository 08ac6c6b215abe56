// Package whatsapp talks to the WhatsApp Cloud API: it checks and unpacks
// webhook deliveries and sends text replies through the Graph messages
// endpoint.
package whatsapp

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Graph API host.
	DefaultBaseURL = "https://graph.facebook.com"

	// DefaultAPIVersion is used when no version is configured.
	DefaultAPIVersion = "v18.0"

	// DefaultSendTimeout bounds a single outbound send call.
	DefaultSendTimeout = 10 * time.Second

	// DefaultMaxWebhookBodyBytes is the maximum allowed webhook payload size.
	DefaultMaxWebhookBodyBytes = 1 << 20

	// TextChunkLimit is the maximum body length of one text message.
	TextChunkLimit = 4096
)

// Config holds WhatsApp Cloud API settings.
type Config struct {
	// AccessToken is the bearer token for the Graph API.
	AccessToken string `yaml:"access_token"`

	// APIVersion is the Graph API version path segment, e.g. "v18.0".
	APIVersion string `yaml:"api_version"`

	// PhoneNumberID identifies the business number replies are sent from.
	PhoneNumberID string `yaml:"phone_number_id"`

	// VerifyToken answers the webhook subscription handshake.
	VerifyToken string `yaml:"verify_token"`

	// AppSecret, when set, enables X-Hub-Signature-256 checks on deliveries.
	AppSecret string `yaml:"app_secret"`

	// BaseURL overrides the Graph API host (tests, proxies).
	BaseURL string `yaml:"base_url"`

	// SendTimeout bounds one outbound HTTP call.
	SendTimeout time.Duration `yaml:"send_timeout"`

	// MaxWebhookBodyBytes caps the accepted delivery size.
	MaxWebhookBodyBytes int64 `yaml:"max_webhook_body_bytes"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		APIVersion:          DefaultAPIVersion,
		BaseURL:             DefaultBaseURL,
		SendTimeout:         DefaultSendTimeout,
		MaxWebhookBodyBytes: DefaultMaxWebhookBodyBytes,
	}
}

// WithDefaults fills unset fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.APIVersion == "" {
		c.APIVersion = def.APIVersion
	}
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.SendTimeout <= 0 {
		c.SendTimeout = def.SendTimeout
	}
	if c.MaxWebhookBodyBytes <= 0 {
		c.MaxWebhookBodyBytes = def.MaxWebhookBodyBytes
	}
	return c
}

// Validate checks the settings needed to send messages.
func (c Config) Validate() error {
	if strings.TrimSpace(c.AccessToken) == "" {
		return fmt.Errorf("whatsapp: access_token is required")
	}
	if strings.TrimSpace(c.PhoneNumberID) == "" {
		return fmt.Errorf("whatsapp: phone_number_id is required")
	}
	if strings.TrimSpace(c.APIVersion) == "" {
		return fmt.Errorf("whatsapp: api_version is required")
	}
	return nil
}

// MessagesURL returns the send endpoint for the configured number.
func (c Config) MessagesURL() string {
	c = c.WithDefaults()
	return fmt.Sprintf("%s/%s/%s/messages", c.BaseURL, c.APIVersion, c.PhoneNumberID)
}
