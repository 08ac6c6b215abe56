package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// SignatureHeader carries the HMAC of a delivery body.
const SignatureHeader = "X-Hub-Signature-256"

// Processor handles one webhook delivery body. Errors are logged by the
// handler; the platform is always told the delivery was received.
type Processor interface {
	Process(ctx context.Context, payload []byte) error
}

// WebhookHandler serves the Cloud API webhook: the GET subscription
// handshake and POST deliveries.
type WebhookHandler struct {
	verifyToken string
	appSecret   string
	maxBody     int64
	processor   Processor
	logger      *slog.Logger
}

// NewWebhookHandler creates a handler dispatching deliveries to processor.
func NewWebhookHandler(cfg Config, processor Processor, logger *slog.Logger) *WebhookHandler {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		verifyToken: cfg.VerifyToken,
		appSecret:   cfg.AppSecret,
		maxBody:     cfg.MaxWebhookBodyBytes,
		processor:   processor,
		logger:      logger.With("channel", "whatsapp"),
	}
}

// ServeHTTP implements http.Handler.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.verify(w, r)
	case http.MethodPost:
		h.receive(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeStatus(w, http.StatusMethodNotAllowed, "error", "Method not allowed")
	}
}

func (h *WebhookHandler) verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "" || token == "" {
		h.logger.Info("webhook verification missing parameters")
		writeStatus(w, http.StatusBadRequest, "error", "Missing parameters")
		return
	}
	if mode != "subscribe" || h.verifyToken == "" ||
		!hmac.Equal([]byte(token), []byte(h.verifyToken)) {
		h.logger.Info("webhook verification failed", "mode", mode)
		writeStatus(w, http.StatusForbidden, "error", "Verification failed")
		return
	}

	h.logger.Info("webhook verified")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, challenge)
}

func (h *WebhookHandler) receive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeStatus(w, http.StatusRequestEntityTooLarge, "error", "Request entity too large")
			return
		}
		writeStatus(w, http.StatusBadRequest, "error", "Failed to read body")
		return
	}

	if h.appSecret != "" && !ValidSignature(h.appSecret, body, r.Header.Get(SignatureHeader)) {
		h.logger.Info("webhook signature verification failed")
		writeStatus(w, http.StatusForbidden, "error", "Invalid signature")
		return
	}

	if !json.Valid(body) {
		h.logger.Error("failed to decode webhook body")
		writeStatus(w, http.StatusBadRequest, "error", "Invalid JSON provided")
		return
	}

	if h.processor != nil {
		// The platform may hang up before the assistant answers; the reply
		// must still be sent, so processing outlives the request.
		if err := h.processor.Process(context.WithoutCancel(r.Context()), body); err != nil {
			h.logger.Error("failed to process webhook delivery", "error", err)
		}
	}
	writeStatus(w, http.StatusOK, "ok", "")
}

// ValidSignature checks a "sha256=<hex>" header against the HMAC-SHA256 of
// body keyed with secret.
func ValidSignature(secret string, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok || sig == "" {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Sign returns the SignatureHeader value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func writeStatus(w http.ResponseWriter, code int, status, message string) {
	payload := map[string]string{"status": status}
	if message != "" {
		payload["message"] = message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
