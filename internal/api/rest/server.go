package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/marketbid/auction-backend/internal/infrastructure/config"
)

// WSHandler serves websocket upgrade requests
type WSHandler interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// ServerOptions carries the optional collaborators of the HTTP server.
// Any nil field disables the corresponding concern.
type ServerOptions struct {
	WS             WSHandler
	Metrics        HTTPMetrics
	MetricsHandler http.Handler
	Tracer         trace.Tracer
	RequestTimeout time.Duration
}

// Server is the HTTP front of the auction service
type Server struct {
	cfg     *config.ServerConfig
	handler *Handler
	logger  *slog.Logger
	opts    ServerOptions
	srv     *http.Server
}

func NewServer(cfg *config.ServerConfig, handler *Handler, logger *slog.Logger, opts ServerOptions) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	s := &Server{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		opts:    opts,
	}

	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleHealth)
	if s.opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", s.opts.MetricsHandler)
	}
	if s.opts.WS != nil {
		mux.HandleFunc("GET /ws", s.opts.WS.ServeWS)
	}

	v1 := http.NewServeMux()
	h := s.handler

	v1.HandleFunc("POST /projects", h.handleCreateProject)
	v1.HandleFunc("GET /projects/{id}", h.handleGetProject)
	v1.HandleFunc("POST /projects/{id}/bids", h.handleSubmitDirectBid)

	v1.HandleFunc("POST /auctions", h.handleCreateAuction)
	v1.HandleFunc("POST /auctions/{id}/go-live", h.handleGoLive)
	v1.HandleFunc("POST /auctions/{id}/bids", h.handleSubmitBid)
	v1.HandleFunc("GET /auctions/{id}/live-state", h.handleLiveState)
	v1.HandleFunc("GET /auctions/{id}/bids", h.handleListBids)
	v1.HandleFunc("POST /auctions/{id}/end", h.handleEndAuction)

	v1.HandleFunc("PUT /bids/{id}", h.handleUpdateBid)
	v1.HandleFunc("DELETE /bids/{id}", h.handleWithdrawBid)
	v1.HandleFunc("POST /bids/{id}/accept", h.handleAcceptBid)
	v1.HandleFunc("POST /bids/{id}/reject", h.handleRejectBid)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", s.withMiddleware(v1)))
	return mux
}

// withMiddleware wraps the API routes. Order matters: recovery outermost so a
// panic in any later layer still produces a response, timeout innermost so
// handler contexts carry the deadline.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	chain := []Middleware{
		recoveryMiddleware(s.logger),
		requestIDMiddleware,
		loggingMiddleware(s.logger),
	}
	if s.opts.Tracer != nil {
		chain = append(chain, tracingMiddleware(s.opts.Tracer))
	}
	if s.opts.Metrics != nil {
		chain = append(chain, metricsMiddleware(s.opts.Metrics))
	}
	chain = append(chain, timeoutMiddleware(s.opts.RequestTimeout))

	for i := len(chain) - 1; i >= 0; i-- {
		next = chain[i](next)
	}
	return next
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Handler exposes the full route tree, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start runs the server until ctx is cancelled or a termination signal
// arrives, then drains in-flight requests within the shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigCh:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
