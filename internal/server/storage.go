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

package server

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jeremyhahn/go-keyring/internal/config"
	"github.com/jeremyhahn/go-keyring/pkg/adapters/logger"
	"github.com/jeremyhahn/go-keyring/pkg/storage"
	"github.com/jeremyhahn/go-keyring/pkg/storage/file"
	"github.com/jeremyhahn/go-keyring/pkg/storage/redis"
)

// newStorageBackend opens the key store selected by the configured
// location: empty for in-memory, a redis:// URL for redis, anything
// else a filesystem path. Failures here are fatal at startup.
func newStorageBackend(cfg *config.Config, log logger.Logger) (storage.Backend, error) {
	if log == nil {
		log = logger.NewSlogAdapter(nil)
	}
	location := strings.TrimSpace(cfg.Store.Location)

	switch {
	case location == "":
		log.Info("using in-memory key store")
		return storage.NewMemory(), nil

	case strings.HasPrefix(location, "redis://"), strings.HasPrefix(location, "rediss://"):
		log.Info("using redis key store", logger.String("location", location))
		backend, err := redis.New(&redis.Config{
			URL:      location,
			Resolver: newResolver(cfg.Server.Nameserver),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open redis store: %w", err)
		}
		return backend, nil

	default:
		log.Info("using file key store", logger.String("path", location))
		backend, err := file.New(location)
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		return backend, nil
	}
}

// newResolver builds a DNS resolver pinned to the configured
// nameserver, used when dialing remote stores.
func newResolver(nameserver string) *net.Resolver {
	if nameserver == "" {
		nameserver = config.DefaultNameserver
	}
	addr := net.JoinHostPort(nameserver, "53")

	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			d := net.Dialer{Timeout: 5 * time.Second}
			return d.DialContext(ctx, network, addr)
		},
	}
}
