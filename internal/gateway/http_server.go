package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.cfg.WebhookPath, s.webhook)
	mux.HandleFunc("/healthz", s.handleHealthz)
	if s.cfg.MetricsPath != "" && s.metrics != nil {
		mux.Handle(s.cfg.MetricsPath, s.metrics.Handler())
	}

	routes := []string{s.cfg.WebhookPath, "/healthz", s.cfg.MetricsPath}
	var handler http.Handler = mux
	handler = RecoverMiddleware(s.logger)(handler)
	handler = LoggingMiddleware(s.logger, s.metrics, routes)(handler)
	handler = TraceContextMiddleware()(handler)
	handler = RequestIDMiddleware()(handler)
	return handler
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return errAlreadyStarted
	}

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	s.httpServer = server
	s.httpListener = listener
	s.serveErr = make(chan error, 1)

	go func(errs chan<- error) {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
			errs <- err
		}
	}(s.serveErr)

	s.logger.Info("starting http server", "addr", listener.Addr().String(), "webhook_path", s.cfg.WebhookPath)
	return nil
}

func (s *Server) stopHTTPServer(ctx context.Context) error {
	s.mu.Lock()
	server := s.httpServer
	s.httpServer = nil
	s.httpListener = nil
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	if err := server.Shutdown(ctx); err != nil {
		s.logger.Warn("http server shutdown error", "error", err)
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	})
}
