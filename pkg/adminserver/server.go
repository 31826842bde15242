// Package adminserver exposes a chi-based HTTP surface over a
// StorageManager: container lifecycle, per-container/page statistics, a
// websocket tail of a container's values as they are inserted, and a
// shutdown trigger.
package adminserver

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mnohosten/laura-db/pkg/introspect"
	"github.com/mnohosten/laura-db/pkg/storage"
)

// Config holds admin server configuration.
type Config struct {
	Host string
	Port int
}

// Server is the HTTP admin surface for one StorageManager.
type Server struct {
	config    Config
	sm        *storage.StorageManager
	router    *chi.Mux
	httpSrv   *http.Server
	startTime time.Time
}

// New builds a Server wrapping sm, not yet listening. If the introspection
// schema fails to build (it cannot, barring a programming error in the
// schema itself), New panics rather than returning a half-wired server.
func New(config Config, sm *storage.StorageManager) *Server {
	s := &Server{
		config:    config,
		sm:        sm,
		router:    chi.NewRouter(),
		startTime: time.Now(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.setupIntrospectRoute()

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) setupIntrospectRoute() {
	h, err := introspect.NewHandler(s.sm)
	if err != nil {
		panic(fmt.Sprintf("adminserver: build introspection schema: %v", err))
	}
	s.router.Post("/graphql", h.ServeHTTP)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Logger)
}

func (s *Server) setupRoutes() {
	s.router.Get("/_health", s.jsonContentType(s.handleHealth))
	s.router.Get("/containers", s.jsonContentType(s.handleListContainers))
	s.router.Put("/containers/{id}", s.jsonContentType(s.handleCreateContainer))
	s.router.Delete("/containers/{id}", s.jsonContentType(s.handleRemoveContainer))
	s.router.Get("/containers/{id}/stats", s.jsonContentType(s.handleContainerStats))
	s.router.Get("/containers/{id}/watch", s.handleWatch)
	s.router.Post("/shutdown", s.jsonContentType(s.handleShutdown))
}

func (s *Server) jsonContentType(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next(w, r)
	}
}

// Start begins serving; it blocks until the server is shut down or fails.
func (s *Server) Start() error {
	log.Printf("adminserver: listening on %s", s.httpSrv.Addr)
	err := s.httpSrv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("adminserver: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server; it does not touch the
// StorageManager's own Shutdown, which callers must invoke separately.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
