// Package server provides the HTTP API for Kensaku.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/analytics"
	"github.com/hyperjump/kensaku/internal/cache"
	"github.com/hyperjump/kensaku/internal/client"
	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/profile"
	"github.com/hyperjump/kensaku/internal/render"
	"github.com/hyperjump/kensaku/internal/spell"
)

// Server is the HTTP server for the Kensaku API.
type Server struct {
	profiles *profile.Store
	backend  client.Backend
	cache    *cache.ResultCache
	renderer *render.Renderer
	tracker  *analytics.Tracker
	checker  *spell.Checker
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. tracker may be nil
// when analytics is disabled.
func NewServer(
	profiles *profile.Store,
	backend client.Backend,
	resultCache *cache.ResultCache,
	renderer *render.Renderer,
	tracker *analytics.Tracker,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		profiles: profiles,
		backend:  backend,
		cache:    resultCache,
		renderer: renderer,
		tracker:  tracker,
		checker:  spell.NewChecker(),
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/suggest", s.handleSuggest)
	r.Post("/api/v1/facets", s.handleFacets)
	r.Get("/api/v1/profiles", s.handleProfilesList)
	r.Get("/api/v1/profiles/{name}", s.handleProfileGet)
	r.Post("/api/v1/profiles/validate", s.handleProfileValidate)
	r.Post("/api/v1/track/click", s.handleTrackClick)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops. Cached result
// pages are purged whenever the profile set changes, since ranking settings
// are part of the cache key's meaning.
func (s *Server) Start() error {
	if s.cache != nil {
		s.profiles.Subscribe(func() {
			s.cache.Purge()
			s.logger.Info("profiles changed, result cache purged")
		})
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
