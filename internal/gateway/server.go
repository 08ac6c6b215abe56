// Package gateway serves the relay over HTTP: the WhatsApp webhook, a health
// check and the Prometheus metrics endpoint.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/haasonsaas/wa-relay/internal/observability"
)

// Config configures the HTTP server.
type Config struct {
	Addr        string
	WebhookPath string
	// MetricsPath is where metrics are served. Empty disables the endpoint.
	MetricsPath       string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if c.WebhookPath == "" {
		c.WebhookPath = "/webhook"
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = 5 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 15 * time.Second
	}
	return c
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records request metrics and serves the registry.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// Server is the relay's HTTP front end.
type Server struct {
	cfg     Config
	webhook http.Handler
	logger  *slog.Logger
	metrics *observability.Metrics

	startTime time.Time

	mu           sync.Mutex
	httpServer   *http.Server
	httpListener net.Listener
	serveErr     chan error
}

// NewServer creates a server that routes cfg.WebhookPath to webhook.
func NewServer(cfg Config, webhook http.Handler, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg.withDefaults(),
		webhook:   webhook,
		logger:    slog.Default(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "gateway")
	return s
}

// Run starts the server and blocks until ctx is done, then shuts down
// gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case err := <-s.serveErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.Stop(shutdownCtx)
}

// Addr returns the bound listen address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpListener != nil {
		return s.httpListener.Addr().String()
	}
	return s.cfg.Addr
}

// Stop shuts the server down, waiting for in-flight requests until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	return s.stopHTTPServer(ctx)
}

var errAlreadyStarted = errors.New("gateway: server already started")
