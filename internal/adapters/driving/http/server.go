// Package http is a thin debug/introspection veneer over driving.Corpus:
// health, fetch-object, and relationship lookups, trimmed from the
// teacher's full multi-service HTTP surface down to the corpus engine's
// own operations.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cdm-corpus/corpus/internal/core/ports/driving"
)

// Server is the HTTP introspection surface for one driving.Corpus.
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	corpus     driving.Corpus
	version    string
	logger     *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Host    string
	Port    int
	Version string
	Logger  *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Host: "0.0.0.0", Port: 8080, Version: "dev"}
}

// NewServer creates a new HTTP server fronting corpus.
func NewServer(cfg Config, corpus driving.Corpus) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		router:  http.NewServeMux(),
		corpus:  corpus,
		version: cfg.Version,
		logger:  logger,
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /objects/{path...}", s.handleFetchObject)
	s.router.HandleFunc("POST /manifests/{path...}", s.handleCalculateEntityGraph)
	s.router.HandleFunc("GET /relationships/incoming/{entity...}", s.handleIncomingRelationships)
	s.router.HandleFunc("GET /relationships/outgoing/{entity...}", s.handleOutgoingRelationships)
}

// Start starts the HTTP server and blocks until it receives SIGINT or
// SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	<-stop
	s.logger.Info("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Stop stops the server immediately.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
