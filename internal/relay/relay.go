// Package relay connects inbound WhatsApp deliveries to the assistant and
// sends the reply back to the same chat.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/haasonsaas/wa-relay/internal/assistant"
	"github.com/haasonsaas/wa-relay/internal/cache"
	"github.com/haasonsaas/wa-relay/internal/channels"
	"github.com/haasonsaas/wa-relay/internal/channels/whatsapp"
	"github.com/haasonsaas/wa-relay/internal/markdown"
	"github.com/haasonsaas/wa-relay/internal/observability"
)

// Replier produces the display text answering one inbound message.
type Replier interface {
	Reply(ctx context.Context, senderID, text string) string
}

// Sender delivers text to a WhatsApp recipient.
type Sender interface {
	Send(ctx context.Context, recipient, text string) error
}

// Delivery outcomes recorded per webhook body.
const (
	OutcomeProcessed = "processed"
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// Option customizes a Relay.
type Option func(*Relay)

// WithLogger sets the relay logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records delivery outcomes on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

// WithTracer wraps each delivery in spans.
func WithTracer(t *observability.Tracer) Option {
	return func(r *Relay) { r.tracer = t }
}

// WithDedupe drops deliveries whose message id was seen recently.
func WithDedupe(d *cache.DedupeCache) Option {
	return func(r *Relay) { r.dedupe = d }
}

// WithTableMode selects how markdown tables in replies are rewritten.
func WithTableMode(mode markdown.TableMode) Option {
	return func(r *Relay) { r.tables = mode }
}

// WithEmptyReply sets the text sent when a reply is empty once normalized.
func WithEmptyReply(text string) Option {
	return func(r *Relay) {
		if text != "" {
			r.emptyReply = text
		}
	}
}

// Relay is the webhook pipeline: validate, extract, ask the assistant,
// normalize the reply and send it. It implements whatsapp.Processor.
type Relay struct {
	replier Replier
	sender  Sender
	dedupe  *cache.DedupeCache
	tables  markdown.TableMode
	logger  *slog.Logger

	emptyReply string
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

var _ whatsapp.Processor = (*Relay)(nil)

// New creates a relay.
func New(replier Replier, sender Sender, opts ...Option) *Relay {
	r := &Relay{
		replier: replier,
		sender:  sender,
		tables:  markdown.DefaultTableModeForChannel("whatsapp"),
		logger:  slog.Default(),

		emptyReply: assistant.DefaultEmptyReply,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "relay")
	return r
}

// Process handles one webhook body. Deliveries without a text message
// (status updates, media, duplicates) are skipped and return nil. The
// returned error is a malformed payload or a failed send.
func (r *Relay) Process(ctx context.Context, payload []byte) error {
	ctx, span := r.tracer.TraceWebhook(ctx, len(payload))
	defer span.End()

	outcome, err := r.process(ctx, payload)
	r.metrics.WebhookDelivery(outcome)
	r.tracer.SetAttributes(span, "webhook.outcome", outcome)
	r.tracer.RecordError(span, err)
	return err
}

func (r *Relay) process(ctx context.Context, payload []byte) (string, error) {
	if !whatsapp.Validate(payload) {
		r.logger.DebugContext(ctx, "ignoring delivery without messages")
		return OutcomeIgnored, nil
	}

	msg, err := whatsapp.Extract(payload)
	if errors.Is(err, whatsapp.ErrNotText) {
		r.logger.InfoContext(ctx, "ignoring non-text message", "reason", err)
		return OutcomeIgnored, nil
	}
	if err != nil {
		r.metrics.RecordError("webhook", "extract")
		r.logger.WarnContext(ctx, "failed to extract message", "error", err)
		return OutcomeInvalid, err
	}

	ctx = observability.AddSenderID(ctx, msg.SenderID)
	if msg.MessageID != "" {
		ctx = observability.AddMessageID(ctx, msg.MessageID)
		if r.dedupe != nil && r.dedupe.Check(cache.MessageDedupeKey("whatsapp", msg.MessageID)) {
			r.logger.InfoContext(ctx, "skipping duplicate delivery")
			return OutcomeDuplicate, nil
		}
	}

	r.metrics.MessageReceived()
	r.logger.InfoContext(ctx, "received message", "sender_name", msg.SenderName, "chars", len(msg.Text))

	reply := r.replier.Reply(ctx, msg.SenderID, msg.Text)
	text := markdown.NormalizeWhatsApp(markdown.ConvertTables(reply, r.tables))
	if text == "" {
		r.logger.WarnContext(ctx, "reply is empty after normalization", "raw_chars", len(reply))
		text = r.emptyReply
	}

	if err := r.send(ctx, msg.SenderID, text); err != nil {
		return OutcomeError, err
	}
	return OutcomeProcessed, nil
}

func (r *Relay) send(ctx context.Context, recipient, text string) error {
	ctx, span := r.tracer.TraceSend(ctx, recipient)
	defer span.End()

	start := time.Now()
	err := r.sender.Send(ctx, recipient, text)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		status := "error"
		if channels.GetErrorCode(err) == channels.ErrCodeTimeout {
			status = "timeout"
		}
		r.metrics.RecordSend(status, elapsed)
		r.metrics.RecordError("whatsapp", string(channels.GetErrorCode(err)))
		r.tracer.RecordError(span, err)

		attrs := []any{"error", err}
		var sendErr *whatsapp.SendError
		if errors.As(err, &sendErr) {
			attrs = append(attrs, "status_code", sendErr.StatusCode(), "upstream_status", sendErr.Upstream)
			r.tracer.SetAttributes(span, "http.status_code", sendErr.StatusCode())
		}
		r.logger.ErrorContext(ctx, "failed to send reply", attrs...)
		return err
	}

	r.metrics.RecordSend("success", elapsed)
	r.metrics.MessageSent()
	r.logger.InfoContext(ctx, "reply sent", "chars", len(text))
	return nil
}
