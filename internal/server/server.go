// Package server exposes the query engine over HTTP and WebSocket.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ziadkadry99/llmlibrarian/internal/logging"
	"github.com/ziadkadry99/llmlibrarian/internal/query"
)

// Asker is the part of the query engine the server needs.
type Asker interface {
	Ask(ctx context.Context, req query.Request) (*query.Response, error)
	Silos() ([]query.SiloStatus, error)
}

// Config holds server configuration.
type Config struct {
	Addr           string
	AllowedOrigins []string // "*" allows every origin (dev mode)
	// Timeout bounds one ask, including the model call.
	Timeout time.Duration
}

// Server serves asks over HTTP.
type Server struct {
	cfg        Config
	engine     Asker
	logger     *slog.Logger
	markdown   *renderer
	router     chi.Router
	httpServer *http.Server
}

// New creates a server around engine. A nil logger discards output.
func New(cfg Config, engine Asker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	s := &Server{
		cfg:      cfg,
		engine:   engine,
		logger:   logger,
		markdown: newRenderer(),
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.Timeout(s.cfg.Timeout)).Post("/ask", s.handleAsk)
		r.Get("/silos", s.handleSilos)
	})
	r.Get("/ws", s.handleWebSocket)

	return r
}

// Router returns the chi router.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Timeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("llmli server listening", "addr", s.cfg.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
