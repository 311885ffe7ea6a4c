// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keyring.
//
// go-keyring is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package rest

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremyhahn/go-keyring/pkg/adapters/logger"
	"github.com/jeremyhahn/go-keyring/pkg/keyring"
	"github.com/jeremyhahn/go-keyring/pkg/metrics"
)

// Server builds the HTTP handler tree served by both listeners.
type Server struct {
	handlers *HandlerContext
	static   *StaticHandler
	logger   logger.Logger
}

// Config holds the REST server configuration.
type Config struct {
	// Keyring is the key-management service backing the API.
	Keyring *keyring.Service

	// Version is the API version string
	Version string

	// StaticDir is the root of the static asset directory. Empty
	// disables asset serving; unmatched paths then 404.
	StaticDir string

	// Logger is the logging adapter (optional)
	Logger logger.Logger
}

// NewServer creates a new REST API server.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Keyring == nil {
		return nil, fmt.Errorf("keyring service is required")
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewSlogAdapter(&logger.SlogConfig{
			Level: logger.LevelInfo,
		})
	}

	server := &Server{
		handlers: NewHandlerContext(cfg.Keyring, cfg.Version),
		logger:   log,
	}
	if cfg.StaticDir != "" {
		server.static = NewStaticHandler(cfg.StaticDir, log)
	}

	return server, nil
}

// Handler builds the router for one listener. The listener name feeds
// the per-listener HTTP metrics labels.
func (s *Server) Handler(listener string) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(s.RecoveryMiddleware())
	r.Use(s.LoggingMiddleware())
	r.Use(metrics.HTTPMiddleware(listener))
	r.Use(CORSMiddleware)

	r.Get("/health", s.handlers.HealthHandler)
	r.Head("/health", s.handlers.HealthHandler)

	// Kubernetes-style health probes
	r.Get("/health/live", s.handlers.LivenessHandler)
	r.Get("/health/ready", s.handlers.ReadinessHandler)
	r.Get("/health/startup", s.handlers.StartupHandler)

	r.Handle("/metrics", promhttp.Handler())

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Key endpoints
		r.Post("/keys", s.handlers.AddKeyHandler)
		r.Get("/keys", s.handlers.ListKeysHandler)
		r.Get("/keys/{id}", s.handlers.GetKeyHandler)
		r.Put("/keys/{id}", s.handlers.PutKeyHandler)
		r.Delete("/keys/{id}", s.handlers.DeleteKeyHandler)

		// Crypto operation endpoints
		r.Post("/keys/{id}/decrypt", s.handlers.DecryptHandler)
		r.Post("/keys/{id}/sign", s.handlers.SignHandler)
		r.Post("/keys/{id}/verify", s.handlers.VerifyHandler)
	})

	// Everything else is a static asset
	if s.static != nil {
		r.NotFound(s.static.ServeHTTP)
	}

	return r
}

// SetHealthChecker sets the health checker for the server.
func (s *Server) SetHealthChecker(checker HealthChecker) {
	s.handlers.SetHealthChecker(checker)
}
