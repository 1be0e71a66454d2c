// Package server runs the HTTP listener with graceful shutdown.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/driftfs/driftfs/internal/logger"
)

// Config holds server construction parameters.
type Config struct {
	// ListenAddress is the host:port to bind.
	ListenAddress string

	// ShutdownTimeout bounds the drain of in-flight requests once shutdown
	// starts.
	ShutdownTimeout time.Duration
}

// Server wraps an http.Server with context-driven lifecycle management.
type Server struct {
	config  Config
	handler http.Handler
}

// New creates a server for the given handler.
func New(config Config, handler http.Handler) *Server {
	return &Server{config: config, handler: handler}
}

// Serve starts the listener and blocks until the context is cancelled or the
// listener fails. On cancellation in-flight requests are drained for up to
// ShutdownTimeout before the remaining connections are closed.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.config.ListenAddress,
		Handler: s.handler,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", s.config.ListenAddress)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, draining connections")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown incomplete: %v", err)
			_ = httpServer.Close()
		}
		// ListenAndServe returns ErrServerClosed after Shutdown; drain it so
		// the goroutine does not leak.
		<-serveErr

		logger.Info("server stopped")
		return ctx.Err()

	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
