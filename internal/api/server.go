package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/hlhsinfo/hlhsinfo-backend/internal/logger"
	"github.com/hlhsinfo/hlhsinfo-backend/pkg/config"
)

// Server runs the HTTP API with graceful shutdown.
type Server struct {
	server       *http.Server
	config       *config.Config
	shutdownOnce sync.Once
}

// NewServer creates the API server around a configured router. The server
// is created stopped; call Start to begin serving.
func NewServer(cfg *config.Config, router http.Handler) *Server {
	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		config: cfg,
	}
}

// Start serves requests until the context is cancelled, then shuts down
// gracefully within the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "port", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop shuts the server down gracefully, waiting for in-flight requests
// until ctx expires. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		logger.Info("API server stopping")
		err = s.server.Shutdown(ctx)
	})
	return err
}
