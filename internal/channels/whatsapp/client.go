package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/haasonsaas/wa-relay/internal/channels"
)

const maxAPIResponseBytes = 1 << 20

// Client sends text messages through the Graph messages endpoint.
//
// Thread Safety:
// Client is safe for concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	logger  *slog.Logger
	chunker *channels.MessageChunker
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client. Its Timeout is left as given.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Client. The access token and phone number id are
// required.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, channels.ErrConfig("invalid whatsapp config", err)
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.SendTimeout},
		logger:  slog.Default().With("channel", "whatsapp"),
		chunker: channels.NewMessageChunker(TextChunkLimit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SendResponse is the Graph API answer to a successful send.
type SendResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// APIError is the error object the Graph API returns with non-2xx answers.
type APIError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph API error %d (%s): %s", e.Code, e.Type, e.Message)
}

// SendError is a failed send. StatusCode is 408 when the call timed out and
// 500 for anything else.
type SendError struct {
	// Upstream is the HTTP status the Graph API answered with, 0 when no
	// answer was received.
	Upstream int
	Err      *channels.Error
}

func (e *SendError) Error() string {
	return "whatsapp: send: " + e.Err.Error()
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// StatusCode reports the status the relay surfaces for this failure.
func (e *SendError) StatusCode() int {
	return e.Err.HTTPStatus()
}

// Send delivers text to recipient, split into several messages when it is
// longer than TextChunkLimit. The first failing chunk ends the send.
func (c *Client) Send(ctx context.Context, recipient, text string) error {
	chunks := c.chunker.Chunk(text)
	if len(chunks) == 0 {
		return &SendError{Err: channels.ErrInvalidInput("empty message body", nil)}
	}
	for _, chunk := range chunks {
		if _, err := c.SendMessage(ctx, NewTextMessage(recipient, chunk)); err != nil {
			return err
		}
	}
	return nil
}

// SendMessage posts one envelope. Failures are returned as *SendError.
func (c *Client) SendMessage(ctx context.Context, msg OutboundMessage) (*SendResponse, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, &SendError{Err: channels.ErrInvalidInput("failed to marshal message", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.MessagesURL(), bytes.NewReader(data))
	if err != nil {
		return nil, &SendError{Err: channels.NewError(channels.ErrCodeInternal, "failed to create request", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		if channels.IsTimeout(err) {
			c.logger.Error("timeout while sending message", "to", msg.To)
			return nil, &SendError{Err: channels.ErrTimeout("request timed out", err)}
		}
		c.logger.Error("send request failed", "to", msg.To, "error", err)
		return nil, &SendError{Err: channels.ErrConnection("failed to send message", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes+1))
	if err != nil {
		if channels.IsTimeout(err) {
			return nil, &SendError{Upstream: resp.StatusCode, Err: channels.ErrTimeout("request timed out", err)}
		}
		return nil, &SendError{Upstream: resp.StatusCode, Err: channels.ErrConnection("failed to read response", err)}
	}
	if len(body) > maxAPIResponseBytes {
		return nil, &SendError{Upstream: resp.StatusCode, Err: channels.NewError(channels.ErrCodeInternal,
			fmt.Sprintf("response too large (%d bytes)", len(body)), nil)}
	}

	c.logger.Debug("send response",
		"status", resp.StatusCode,
		"content_type", resp.Header.Get("Content-Type"),
		"body", string(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error *APIError `json:"error"`
		}
		var cause error = fmt.Errorf("unexpected status %d", resp.StatusCode)
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != nil {
			cause = apiErr.Error
		}
		c.logger.Error("send rejected", "to", msg.To, "status", resp.StatusCode, "error", cause)
		code := channels.CodeForStatus(resp.StatusCode)
		if code == channels.ErrCodeTimeout {
			// The Graph API did answer; only a local deadline counts as a timeout.
			code = channels.ErrCodeUnavailable
		}
		chErr := channels.NewError(code, fmt.Sprintf("graph api answered %d", resp.StatusCode), cause)
		return nil, &SendError{Upstream: resp.StatusCode, Err: chErr}
	}

	var out SendResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, &SendError{Upstream: resp.StatusCode, Err: channels.NewError(channels.ErrCodeInternal, "failed to parse response", err)}
		}
	}
	return &out, nil
}
