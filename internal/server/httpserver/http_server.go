// Package httpserver wires the orchestrator's HTTP surface: build webhook,
// worker event callbacks, status, health, and prometheus metrics.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	derrors "git.home.luguber.info/inful/prdflow/internal/errors"
	"git.home.luguber.info/inful/prdflow/internal/metrics"
	"git.home.luguber.info/inful/prdflow/internal/server/handlers"
	smw "git.home.luguber.info/inful/prdflow/internal/server/middleware"
)

// Server manages the orchestrator HTTP endpoint.
type Server struct {
	addr         string
	srv          *http.Server
	errorAdapter *derrors.HTTPErrorAdapter
}

// New constructs the server. Mutating endpoints require the shared webhook
// secret; status and health stay open.
func New(addr, webhookSecret string, h *handlers.Handlers) *Server {
	adapter := derrors.NewHTTPErrorAdapter(slog.Default())
	chain := smw.Chain(slog.Default(), adapter)
	auth := smw.BearerAuth(webhookSecret, adapter)

	mux := http.NewServeMux()
	mux.Handle("POST /webhook", auth(http.HandlerFunc(h.HandleWebhook)))
	mux.Handle("POST /jobs/{id}/events", auth(http.HandlerFunc(h.HandleEvent)))
	mux.Handle("GET /jobs/{id}/status", http.HandlerFunc(h.HandleStatus))
	mux.Handle("GET /health", http.HandlerFunc(h.HandleHealth))
	mux.Handle("GET /metrics", metrics.Handler())

	return &Server{
		addr:         addr,
		errorAdapter: adapter,
		srv: &http.Server{
			Addr:              addr,
			Handler:           chain(mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler exposes the composed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start binds the listener and serves in the background. The bind happens
// here so an occupied port fails startup instead of logging from a goroutine.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("http startup failed: %w", err)
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("HTTP server started", slog.String("addr", s.addr))
	return nil
}

// Stop gracefully drains and shuts down the listener.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	slog.Info("HTTP server stopped")
	return nil
}
