package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAITestClient(t *testing.T, handler http.Handler) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{APIKey: "  "})
	require.Error(t, err)
}

func TestOpenAIClientTurn(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/threads", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "assistants=v2", r.Header.Get("OpenAI-Beta"))
		writeJSON(w, http.StatusOK, map[string]any{"id": "thread_abc", "object": "thread"})
	})
	mux.HandleFunc("POST /v1/threads/thread_abc/messages", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user", body["role"])
		assert.Equal(t, "hi", body["content"])
		writeJSON(w, http.StatusOK, map[string]any{"id": "msg_1", "object": "thread.message"})
	})
	mux.HandleFunc("POST /v1/threads/thread_abc/runs", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "asst_123", body["assistant_id"])
		writeJSON(w, http.StatusOK, map[string]any{"id": "run_1", "status": "queued"})
	})
	mux.HandleFunc("GET /v1/threads/thread_abc/runs/run_1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"id":         "run_1",
			"status":     "failed",
			"last_error": map[string]any{"code": "server_error", "message": "boom"},
		})
	})
	mux.HandleFunc("POST /v1/threads/thread_abc/runs/run_1/cancel", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "run_1", "status": "cancelling"})
	})
	mux.HandleFunc("GET /v1/threads/thread_abc/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "desc", r.URL.Query().Get("order"))
		assert.Equal(t, "run_1", r.URL.Query().Get("run_id"))
		writeJSON(w, http.StatusOK, map[string]any{
			"object": "list",
			"data": []map[string]any{
				{
					"id":   "msg_2",
					"role": "assistant",
					"content": []map[string]any{
						{"type": "text", "text": map[string]any{"value": "**Hello**", "annotations": []any{}}},
					},
				},
				{"id": "msg_3", "role": "assistant", "content": []map[string]any{{"type": "image_file"}}},
			},
		})
	})

	client := newOpenAITestClient(t, mux)
	ctx := context.Background()

	threadID, err := client.CreateThread(ctx)
	require.NoError(t, err)
	assert.Equal(t, "thread_abc", threadID)

	require.NoError(t, client.CreateMessage(ctx, threadID, RoleUser, "hi"))

	run, err := client.CreateRun(ctx, threadID, "asst_123")
	require.NoError(t, err)
	assert.Equal(t, Run{ID: "run_1", Status: RunStatusQueued}, run)

	run, err = client.RetrieveRun(ctx, threadID, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Equal(t, "server_error: boom", run.LastError)

	require.NoError(t, client.CancelRun(ctx, threadID, run.ID))

	messages, err := client.ListMessages(ctx, threadID, run.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, Message{ID: "msg_2", Role: RoleAssistant, Text: "**Hello**"}, messages[0])
	assert.Empty(t, messages[1].Text)
}

func TestOpenAIClientAPIError(t *testing.T) {
	client := newOpenAITestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error": map[string]any{"message": "Incorrect API key provided", "type": "invalid_request_error"},
		})
	}))

	_, err := client.CreateThread(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assistant: create thread")

	var apiErr *openai.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatusCode)
}
