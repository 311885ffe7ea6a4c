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

// Package server wires configuration, storage, the keyring service and
// the REST handler tree into a running dual-listener process.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jeremyhahn/go-keyring/internal/config"
	"github.com/jeremyhahn/go-keyring/internal/rest"
	"github.com/jeremyhahn/go-keyring/pkg/adapters/logger"
	"github.com/jeremyhahn/go-keyring/pkg/encryption"
	"github.com/jeremyhahn/go-keyring/pkg/health"
	"github.com/jeremyhahn/go-keyring/pkg/keyring"
	"github.com/jeremyhahn/go-keyring/pkg/metrics"
	"github.com/jeremyhahn/go-keyring/pkg/storage"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 10 * time.Second
	collectInterval = 30 * time.Second
)

// Server is the assembled keyring process.
type Server struct {
	cfg     *config.Config
	version string
	logger  logger.Logger

	store    storage.Backend
	keyring  *keyring.Service
	rest     *rest.Server
	checker  *health.Checker
	tlsConf  *tls.Config
	httpSrv  *http.Server
	httpsSrv *http.Server
}

// New assembles the server from configuration. Every failure here is a
// fatal startup error: unreachable store, undecodable master key,
// unreadable TLS certificate.
func New(cfg *config.Config, version string, log logger.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if log == nil {
		log = logger.NewSlogAdapter(nil)
	}

	store, err := newStorageBackend(cfg, log)
	if err != nil {
		return nil, err
	}

	encryptor, err := encryption.Select(cfg.Store.MasterKey, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	svc, err := keyring.New(&keyring.Config{
		Storage:   store,
		Encryptor: encryptor,
		Logger:    log,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	restSrv, err := rest.NewServer(&rest.Config{
		Keyring:   svc,
		Version:   version,
		StaticDir: cfg.Static.Dir,
		Logger:    log,
	})
	if err != nil {
		_ = svc.Close()
		return nil, err
	}

	checker := health.NewChecker()
	checker.RegisterCheck("storage", health.StorageCheck(store))
	restSrv.SetHealthChecker(checker)

	var tlsConf *tls.Config
	if cfg.TLS.Enabled {
		// Certificate load failure aborts startup.
		tlsConf, err = cfg.TLS.LoadTLSConfig()
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("failed to load TLS configuration: %w", err)
		}
	}

	if !cfg.Metrics.Enabled {
		metrics.Disable()
	}

	return &Server{
		cfg:     cfg,
		version: version,
		logger:  log,
		store:   store,
		keyring: svc,
		rest:    restSrv,
		checker: checker,
		tlsConf: tlsConf,
	}, nil
}

// Keyring exposes the key-management service, used by tests and the CLI.
func (s *Server) Keyring() *keyring.Service {
	return s.keyring
}

// Run starts both listeners and blocks until the context is canceled or
// a listener fails. Shutdown drains in-flight requests up to
// shutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	host := s.cfg.Server.Host

	httpsAddr := net.JoinHostPort(host, strconv.Itoa(s.cfg.Server.HTTPSPort))
	httpAddr := net.JoinHostPort(host, strconv.Itoa(s.cfg.Server.HTTPPort))

	if s.tlsConf != nil {
		s.httpsSrv = &http.Server{
			Addr:         httpsAddr,
			Handler:      s.rest.Handler(metrics.ListenerHTTPS),
			TLSConfig:    s.tlsConf,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		}
	}

	s.httpSrv = &http.Server{
		Addr:         httpAddr,
		Handler:      s.httpHandler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	collector := metrics.StartResourceCollector(ctx, collectInterval, s.countKeys)
	defer collector.Stop()

	g, ctx := errgroup.WithContext(ctx)

	if s.httpsSrv != nil {
		g.Go(func() error {
			s.logger.Info("Starting HTTPS listener", logger.String("addr", httpsAddr))
			if err := s.httpsSrv.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("https listener failed: %w", err)
			}
			return nil
		})
	} else {
		s.logger.Warn("TLS is disabled, HTTPS listener not started")
	}

	g.Go(func() error {
		s.logger.Info("Starting HTTP listener",
			logger.String("addr", httpAddr),
			logger.Bool("redirect", s.cfg.Server.RedirectHTTP))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http listener failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return s.shutdown()
	})

	s.checker.MarkStarted()

	err := g.Wait()
	s.checker.MarkNotStarted()
	if closeErr := s.keyring.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// httpHandler picks the plaintext listener behavior: the full API by
// default, or permanent redirects to the HTTPS equivalent when
// redirect_http is set.
func (s *Server) httpHandler() http.Handler {
	if !s.cfg.Server.RedirectHTTP || s.tlsConf == nil {
		return s.rest.Handler(metrics.ListenerHTTP)
	}
	return s.redirectHandler()
}

// redirectHandler issues 308s to the HTTPS listener, preserving path
// and query.
func (s *Server) redirectHandler() http.Handler {
	httpsPort := s.cfg.Server.HTTPSPort
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.Host)
		if err != nil {
			host = r.Host
		}
		target := "https://" + net.JoinHostPort(host, strconv.Itoa(httpsPort)) + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
	})
}

// shutdown drains both listeners.
func (s *Server) shutdown() error {
	s.logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error
	if s.httpsSrv != nil {
		if shutdownErr := s.httpsSrv.Shutdown(ctx); shutdownErr != nil {
			err = shutdownErr
		}
	}
	if s.httpSrv != nil {
		if shutdownErr := s.httpSrv.Shutdown(ctx); shutdownErr != nil && err == nil {
			err = shutdownErr
		}
	}
	return err
}

// countKeys feeds the stored-key gauge.
func (s *Server) countKeys(ctx context.Context) (int, error) {
	ids, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
