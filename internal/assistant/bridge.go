package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/wa-relay/internal/backoff"
	"github.com/haasonsaas/wa-relay/internal/observability"
)

// Fallback replies shown to the user when a turn cannot produce an answer.
const (
	DefaultFailureReply = "Sorry, I couldn't process your request at the moment."
	DefaultEmptyReply   = "I couldn't generate a response. Please try again."
	DefaultTimeoutReply = "Sorry, that took too long. Please try again."
)

const (
	DefaultMaxPollAttempts = 240
	DefaultRunTimeout      = 2 * time.Minute

	cancelTimeout = 5 * time.Second
)

var (
	// ErrRunFailed is returned when a run ends in a failure status.
	ErrRunFailed = errors.New("assistant: run failed")
	// ErrRunTimeout is returned when a run does not finish within the poll
	// budget or the run deadline.
	ErrRunTimeout = errors.New("assistant: run timed out")
	// ErrNoReply is returned when a completed run left no assistant text.
	ErrNoReply = errors.New("assistant: no assistant reply")
)

// RunError carries the terminal status of a failed run.
type RunError struct {
	RunID     string
	Status    RunStatus
	LastError string
}

func (e *RunError) Error() string {
	if e.LastError != "" {
		return fmt.Sprintf("assistant: run %s %s: %s", e.RunID, e.Status, e.LastError)
	}
	return fmt.Sprintf("assistant: run %s %s", e.RunID, e.Status)
}

func (e *RunError) Unwrap() error { return ErrRunFailed }

// BridgeConfig configures a Bridge.
type BridgeConfig struct {
	AssistantID string

	// PollPolicy is the wait between run status checks.
	PollPolicy backoff.Policy
	// MaxPollAttempts bounds the number of status checks per run.
	MaxPollAttempts int
	// RunTimeout bounds the whole turn, from thread lookup to reply fetch.
	RunTimeout time.Duration

	FailureReply string
	EmptyReply   string
	TimeoutReply string
}

func (c BridgeConfig) withDefaults() BridgeConfig {
	if c.PollPolicy.Initial <= 0 {
		c.PollPolicy = backoff.DefaultPollPolicy()
	}
	if c.MaxPollAttempts <= 0 {
		c.MaxPollAttempts = DefaultMaxPollAttempts
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = DefaultRunTimeout
	}
	if c.FailureReply == "" {
		c.FailureReply = DefaultFailureReply
	}
	if c.EmptyReply == "" {
		c.EmptyReply = DefaultEmptyReply
	}
	if c.TimeoutReply == "" {
		c.TimeoutReply = DefaultTimeoutReply
	}
	return c
}

// BridgeOption customizes a Bridge.
type BridgeOption func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(logger *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics records turn outcomes on m.
func WithMetrics(m *observability.Metrics) BridgeOption {
	return func(b *Bridge) { b.metrics = m }
}

// WithTracer wraps each turn in an assistant.run span.
func WithTracer(t *observability.Tracer) BridgeOption {
	return func(b *Bridge) { b.tracer = t }
}

// WithThreadStore replaces the default in-memory store.
func WithThreadStore(store ThreadStore) BridgeOption {
	return func(b *Bridge) {
		if store != nil {
			b.threads = store
		}
	}
}

// Bridge runs one assistant turn per inbound message, keeping a single
// thread per sender.
//
// Turns for the same sender are serialized: the assistant service accepts
// one active run per thread, and the first two messages of a new sender must
// not create two threads. Turns for different senders run in parallel.
type Bridge struct {
	client  Client
	cfg     BridgeConfig
	threads ThreadStore
	locks   *SenderLocks
	logger  *slog.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// NewBridge creates a bridge. The assistant id must be set.
func NewBridge(client Client, cfg BridgeConfig, opts ...BridgeOption) (*Bridge, error) {
	if client == nil {
		return nil, errors.New("assistant: client is required")
	}
	if strings.TrimSpace(cfg.AssistantID) == "" {
		return nil, errors.New("assistant: assistant id is required")
	}

	b := &Bridge{
		client:  client,
		cfg:     cfg.withDefaults(),
		threads: NewMemoryThreadStore(),
		locks:   NewSenderLocks(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "assistant")
	return b, nil
}

// Reply runs a turn and always returns display text. Failures are logged
// and turned into the configured fallback replies.
func (b *Bridge) Reply(ctx context.Context, senderID, text string) string {
	reply, err := b.Ask(ctx, senderID, text)
	switch {
	case err == nil:
		return reply
	case errors.Is(err, ErrNoReply):
		return b.cfg.EmptyReply
	case errors.Is(err, ErrRunTimeout):
		return b.cfg.TimeoutReply
	default:
		return b.cfg.FailureReply
	}
}

// Ask runs a turn and returns the assistant's reply or the reason there is
// none. Errors are already logged when Ask returns.
func (b *Bridge) Ask(ctx context.Context, senderID, text string) (string, error) {
	start := time.Now()
	ctx = observability.AddSenderID(ctx, senderID)

	ctx, span := b.tracer.TraceAssistantRun(ctx, b.cfg.AssistantID)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, b.cfg.RunTimeout)
	defer cancel()

	reply, attempts, err := b.turn(ctx, senderID, text)
	outcome := outcomeFor(err)
	b.metrics.RecordAssistantRun(outcome, time.Since(start).Seconds(), attempts)
	b.tracer.SetAttributes(span, "assistant.outcome", outcome, "assistant.poll_attempts", attempts)

	if err != nil {
		b.tracer.RecordError(span, err)
		b.metrics.RecordError("assistant", outcome)
		b.logger.ErrorContext(ctx, "assistant turn failed",
			"outcome", outcome,
			"poll_attempts", attempts,
			"duration", time.Since(start),
			"error", err,
		)
		return "", err
	}

	b.logger.InfoContext(ctx, "assistant turn completed",
		"poll_attempts", attempts,
		"duration", time.Since(start),
		"reply_chars", len(reply),
	)
	return reply, nil
}

func (b *Bridge) turn(ctx context.Context, senderID, text string) (string, int, error) {
	unlock, err := b.locks.Lock(ctx, senderID)
	if err != nil {
		return "", 0, deadlineAsTimeout(fmt.Errorf("assistant: wait for sender lock: %w", err))
	}
	defer unlock()

	threadID, err := b.threadFor(ctx, senderID)
	if err != nil {
		return "", 0, deadlineAsTimeout(err)
	}
	ctx = observability.AddThreadID(ctx, threadID)

	if err := b.client.CreateMessage(ctx, threadID, RoleUser, text); err != nil {
		return "", 0, deadlineAsTimeout(err)
	}

	run, err := b.client.CreateRun(ctx, threadID, b.cfg.AssistantID)
	if err != nil {
		return "", 0, deadlineAsTimeout(err)
	}
	ctx = observability.AddRunID(ctx, run.ID)

	run, attempts, err := b.waitForRun(ctx, threadID, run)
	if err != nil {
		if errors.Is(err, ErrRunTimeout) {
			b.cancelRun(ctx, threadID, run.ID)
		}
		return "", attempts, err
	}

	reply, err := b.latestReply(ctx, threadID, run.ID)
	return reply, attempts, deadlineAsTimeout(err)
}

// threadFor returns the sender's thread, creating it on first use. The
// caller must hold the sender lock.
func (b *Bridge) threadFor(ctx context.Context, senderID string) (string, error) {
	if id, ok := b.threads.Get(senderID); ok {
		return id, nil
	}
	id, err := b.client.CreateThread(ctx)
	if err != nil {
		return "", err
	}
	b.threads.Put(senderID, id)
	if counter, ok := b.threads.(interface{ Len() int }); ok {
		b.metrics.SetAssistantThreads(counter.Len())
	}
	b.logger.InfoContext(ctx, "created assistant thread", "thread_id", id)
	return id, nil
}

// waitForRun polls until the run reaches a terminal status. The status is
// checked before every wait, so a run that is already terminal costs a
// single call.
func (b *Bridge) waitForRun(ctx context.Context, threadID string, run Run) (Run, int, error) {
	attempts := 0
	for !run.Status.Terminal() {
		if attempts >= b.cfg.MaxPollAttempts {
			return run, attempts, fmt.Errorf("%w: %d polls, last status %s", ErrRunTimeout, attempts, run.Status)
		}
		if attempts > 0 {
			if err := b.cfg.PollPolicy.Wait(ctx, attempts); err != nil {
				return run, attempts, deadlineAsTimeout(err)
			}
		}

		attempts++
		next, err := b.client.RetrieveRun(ctx, threadID, run.ID)
		if err != nil {
			return run, attempts, deadlineAsTimeout(err)
		}
		if next.Status != run.Status {
			b.logger.DebugContext(ctx, "run status changed", "from", run.Status, "to", next.Status, "attempt", attempts)
			b.tracer.AddEvent(trace.SpanFromContext(ctx), "run_status_changed",
				"from", string(run.Status), "to", string(next.Status), "attempt", attempts)
		}
		run = next
	}

	if run.Status.Failed() {
		return run, attempts, &RunError{RunID: run.ID, Status: run.Status, LastError: run.LastError}
	}
	return run, attempts, nil
}

// latestReply returns the newest assistant message written by the run.
func (b *Bridge) latestReply(ctx context.Context, threadID, runID string) (string, error) {
	messages, err := b.client.ListMessages(ctx, threadID, runID)
	if err != nil {
		return "", err
	}
	for _, m := range messages {
		if m.Role != RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Text) == "" {
			return "", ErrNoReply
		}
		return m.Text, nil
	}
	return "", ErrNoReply
}

// cancelRun stops a run we gave up on so the thread accepts the next turn.
func (b *Bridge) cancelRun(ctx context.Context, threadID, runID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()
	if err := b.client.CancelRun(ctx, threadID, runID); err != nil {
		b.logger.WarnContext(ctx, "cancel run failed", "error", err)
	}
}

// deadlineAsTimeout reports an expired turn deadline as ErrRunTimeout.
// Cancellation by the caller is left as is.
func deadlineAsTimeout(err error) error {
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrRunTimeout) {
		return fmt.Errorf("%w: %w", ErrRunTimeout, err)
	}
	return err
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, ErrRunFailed):
		return "failed"
	case errors.Is(err, ErrRunTimeout):
		return "timeout"
	case errors.Is(err, ErrNoReply):
		return "empty"
	default:
		return "error"
	}
}
