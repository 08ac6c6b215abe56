package assistant

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultRequestTimeout bounds each individual Assistants API call.
	DefaultRequestTimeout = 30 * time.Second

	listMessagesLimit = 20
)

// OpenAIConfig configures the Assistants API adapter.
type OpenAIConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint, e.g. for a proxy or a test server.
	BaseURL string
	// Organization is sent as the OpenAI-Organization header when set.
	Organization string
	// RequestTimeout bounds each HTTP call. Zero uses DefaultRequestTimeout.
	RequestTimeout time.Duration
}

// OpenAIClient implements Client on top of the OpenAI Assistants v2 API.
//
// Each method maps to exactly one API call; there are no retries. Errors
// from the SDK are wrapped with the operation name and keep the underlying
// *openai.APIError reachable through errors.As.
//
// Thread Safety:
// OpenAIClient is safe for concurrent use.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates an adapter from cfg. An empty API key is an error.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("assistant: openai api key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Organization != "" {
		clientConfig.OrgID = cfg.Organization
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIClient{client: openai.NewClientWithConfig(clientConfig)}, nil
}

// CreateThread creates an empty thread and returns its id.
func (c *OpenAIClient) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("assistant: create thread: %w", err)
	}
	return thread.ID, nil
}

// CreateMessage appends a message to a thread.
func (c *OpenAIClient) CreateMessage(ctx context.Context, threadID, role, content string) error {
	_, err := c.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    role,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("assistant: create message: %w", err)
	}
	return nil
}

// CreateRun starts the assistant on a thread.
func (c *OpenAIClient) CreateRun(ctx context.Context, threadID, assistantID string) (Run, error) {
	run, err := c.client.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: assistantID})
	if err != nil {
		return Run{}, fmt.Errorf("assistant: create run: %w", err)
	}
	return fromOpenAIRun(run), nil
}

// RetrieveRun fetches the current state of a run.
func (c *OpenAIClient) RetrieveRun(ctx context.Context, threadID, runID string) (Run, error) {
	run, err := c.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return Run{}, fmt.Errorf("assistant: retrieve run: %w", err)
	}
	return fromOpenAIRun(run), nil
}

// CancelRun asks the service to stop a run.
func (c *OpenAIClient) CancelRun(ctx context.Context, threadID, runID string) error {
	if _, err := c.client.CancelRun(ctx, threadID, runID); err != nil {
		return fmt.Errorf("assistant: cancel run: %w", err)
	}
	return nil
}

// ListMessages returns the newest messages of a thread, newest first.
func (c *OpenAIClient) ListMessages(ctx context.Context, threadID, runID string) ([]Message, error) {
	limit := listMessagesLimit
	order := "desc"
	var runFilter *string
	if runID != "" {
		runFilter = &runID
	}
	list, err := c.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, runFilter)
	if err != nil {
		return nil, fmt.Errorf("assistant: list messages: %w", err)
	}

	messages := make([]Message, 0, len(list.Messages))
	for _, m := range list.Messages {
		msg := Message{ID: m.ID, Role: m.Role}
		if len(m.Content) > 0 && m.Content[0].Text != nil {
			msg.Text = m.Content[0].Text.Value
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func fromOpenAIRun(run openai.Run) Run {
	out := Run{ID: run.ID, Status: RunStatus(run.Status)}
	if run.LastError != nil {
		out.LastError = fmt.Sprintf("%s: %s", run.LastError.Code, run.LastError.Message)
	}
	return out
}
