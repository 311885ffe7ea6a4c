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

// Package redis provides a Redis-backed implementation of the
// storage.Backend interface for remote key-record storage. Records are
// kept under a configurable key prefix; a per-id revision counter gives
// each write a monotonically increasing revision number.
package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jeremyhahn/go-keyring/pkg/storage"
)

const (
	// DefaultPrefix namespaces all keyring records in the Redis keyspace.
	DefaultPrefix = "keyring"

	connectTimeout = 5 * time.Second
)

// Config contains the Redis storage configuration.
type Config struct {
	// URL is the redis:// connection URL.
	URL string

	// Prefix namespaces all records. Defaults to DefaultPrefix.
	Prefix string

	// Resolver optionally overrides DNS resolution for the connection
	// dialer. When nil the system resolver is used.
	Resolver *net.Resolver
}

// RedisStorage is a Redis-backed implementation of storage.Backend.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// New creates a new Redis storage backend and verifies connectivity.
// A connection failure is returned to the caller and is fatal at startup.
func New(cfg *Config) (storage.Backend, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("redis storage: connection URL is required")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis storage: invalid URL: %w", err)
	}

	if cfg.Resolver != nil {
		resolver := cfg.Resolver
		dialer := &net.Dialer{Timeout: connectTimeout, Resolver: resolver}
		opts.Dialer = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis storage: ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &RedisStorage{
		client: client,
		prefix: prefix,
	}, nil
}

// recordKey returns the Redis key holding the latest record for id.
func (r *RedisStorage) recordKey(id string) string {
	return r.prefix + ":record:" + id
}

// revisionKey returns the Redis key holding the revision counter for id.
func (r *RedisStorage) revisionKey(id string) string {
	return r.prefix + ":revision:" + id
}

// Get retrieves the latest revision of the value for the given id.
func (r *RedisStorage) Get(ctx context.Context, id string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.recordKey(id)).Bytes()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis storage: failed to get id %q: %w", id, err)
	}
	return data, nil
}

// Put stores the value as a new revision of the given id.
func (r *RedisStorage) Put(ctx context.Context, id string, value []byte) (bool, error) {
	if id == "" {
		return false, storage.ErrInvalidID
	}

	var existed *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		existed = pipe.Exists(ctx, r.recordKey(id))
		pipe.Set(ctx, r.recordKey(id), value, 0)
		pipe.Incr(ctx, r.revisionKey(id))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis storage: failed to put id %q: %w", id, err)
	}
	return existed.Val() > 0, nil
}

// Delete removes the id, its record and its revision counter.
func (r *RedisStorage) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := r.client.Del(ctx, r.recordKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis storage: failed to delete id %q: %w", id, err)
	}
	if err := r.client.Del(ctx, r.revisionKey(id)).Err(); err != nil {
		return false, fmt.Errorf("redis storage: failed to delete revision counter for id %q: %w", id, err)
	}
	return removed > 0, nil
}

// List returns all known identifiers by scanning the record keyspace.
func (r *RedisStorage) List(ctx context.Context) ([]string, error) {
	pattern := r.prefix + ":record:*"
	trim := len(r.prefix + ":record:")

	var ids []string
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[trim:])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis storage: scan failed: %w", err)
	}
	return ids, nil
}

// Revision returns the current revision number for the given id.
func (r *RedisStorage) Revision(ctx context.Context, id string) (uint64, error) {
	rev, err := r.client.Get(ctx, r.revisionKey(id)).Uint64()
	if err == redis.Nil {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("redis storage: failed to get revision for id %q: %w", id, err)
	}
	return rev, nil
}

// Close releases the underlying Redis client.
func (r *RedisStorage) Close() error {
	return r.client.Close()
}

// Verify interface compliance at compile time
var _ storage.Backend = (*RedisStorage)(nil)
var _ storage.Versioned = (*RedisStorage)(nil)
