package whatsapp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProcessor struct {
	payloads [][]byte
	err      error
}

func (p *recordingProcessor) Process(_ context.Context, payload []byte) error {
	p.payloads = append(p.payloads, payload)
	return p.err
}

func newTestHandler(p Processor) *WebhookHandler {
	return NewWebhookHandler(Config{VerifyToken: "verify-me", AppSecret: "s3cret"}, p, nil)
}

func TestWebhookVerify(t *testing.T) {
	h := newTestHandler(nil)

	tests := []struct {
		name   string
		query  string
		status int
		body   string
	}{
		{name: "ok", query: "hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=1158201444", status: http.StatusOK, body: "1158201444"},
		{name: "wrong token", query: "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=1", status: http.StatusForbidden},
		{name: "wrong mode", query: "hub.mode=unsubscribe&hub.verify_token=verify-me&hub.challenge=1", status: http.StatusForbidden},
		{name: "missing params", query: "hub.challenge=1", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/webhook?"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestWebhookVerifyWithoutConfiguredToken(t *testing.T) {
	h := NewWebhookHandler(Config{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=x&hub.challenge=1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWebhookReceive(t *testing.T) {
	p := &recordingProcessor{}
	h := newTestHandler(p)

	body := []byte(textDelivery)
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(textDelivery))
	req.Header.Set(SignatureHeader, Sign("s3cret", body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.Len(t, p.payloads, 1)
	assert.Equal(t, body, p.payloads[0])
}

func TestWebhookReceiveProcessorErrorStillAcknowledged(t *testing.T) {
	p := &recordingProcessor{err: errors.New("send failed")}
	h := NewWebhookHandler(Config{}, p, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(textDelivery))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, p.payloads, 1)
}

func TestWebhookReceiveRejectsBadSignature(t *testing.T) {
	p := &recordingProcessor{}
	h := newTestHandler(p)

	for _, sig := range []string{"", "sha256=deadbeef", "sha1=abc", Sign("other", []byte(textDelivery))} {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(textDelivery))
		if sig != "" {
			req.Header.Set(SignatureHeader, sig)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, "signature %q", sig)
	}
	assert.Empty(t, p.payloads)
}

func TestWebhookReceiveInvalidJSON(t *testing.T) {
	p := &recordingProcessor{}
	h := NewWebhookHandler(Config{}, p, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Invalid JSON provided"}`, rec.Body.String())
	assert.Empty(t, p.payloads)
}

func TestWebhookReceiveBodyTooLarge(t *testing.T) {
	p := &recordingProcessor{}
	h := NewWebhookHandler(Config{MaxWebhookBodyBytes: 16}, p, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(textDelivery))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, p.payloads)
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	h := newTestHandler(nil)
	req := httptest.NewRequest(http.MethodPut, "/webhook", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestValidSignature(t *testing.T) {
	body := []byte(`{"a":1}`)
	assert.True(t, ValidSignature("k", body, Sign("k", body)))
	assert.False(t, ValidSignature("k", body, Sign("k", []byte(`{"a":2}`))))
	assert.False(t, ValidSignature("k", body, "sha256=zz"))
}

// slowProcessor outlasts the caller and reports the context state it sees
// once it is done.
type slowProcessor struct {
	delay time.Duration
	done  chan error
}

func (p *slowProcessor) Process(ctx context.Context, _ []byte) error {
	time.Sleep(p.delay)
	p.done <- ctx.Err()
	return nil
}

func TestWebhookReceiveOutlivesDisconnectedCaller(t *testing.T) {
	p := &slowProcessor{delay: 300 * time.Millisecond, done: make(chan error, 1)}
	srv := httptest.NewServer(NewWebhookHandler(Config{}, p, nil))
	defer srv.Close()

	client := &http.Client{Timeout: 50 * time.Millisecond}
	resp, err := client.Post(srv.URL+"/webhook", "application/json", strings.NewReader(textDelivery))
	if err == nil {
		resp.Body.Close()
		t.Fatal("expected the client to give up before processing finished")
	}

	select {
	case ctxErr := <-p.done:
		assert.NoError(t, ctxErr, "processing context was cancelled with the request")
	case <-time.After(5 * time.Second):
		t.Fatal("processor never finished")
	}
}
