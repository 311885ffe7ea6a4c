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

package storage

import (
	"context"
	"sync"
)

// MemoryBackend provides an in-memory storage implementation.
// This is useful for testing and ephemeral deployments, and is the
// default when no remote store location is configured.
// Thread-safe using a read-write mutex.
//
// Revisions are retained in order; Get returns the newest.
type MemoryBackend struct {
	data   map[string][][]byte
	mu     sync.RWMutex
	closed bool
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() (Backend, error) {
	return &MemoryBackend{
		data: make(map[string][][]byte),
	}, nil
}

// NewMemory creates a new in-memory storage backend.
// This is a convenience function that panics on error (which should never happen).
func NewMemory() Backend {
	backend, err := NewMemoryBackend()
	if err != nil {
		panic("failed to create memory backend: " + err.Error())
	}
	return backend
}

// Get retrieves the latest revision of the value for the given id.
func (m *MemoryBackend) Get(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	revs, exists := m.data[id]
	if !exists || len(revs) == 0 {
		return nil, ErrNotFound
	}

	// Return a copy to prevent modification
	latest := revs[len(revs)-1]
	result := make([]byte, len(latest))
	copy(result, latest)
	return result, nil
}

// Put stores the value as a new revision of the given id.
func (m *MemoryBackend) Put(ctx context.Context, id string, value []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if id == "" {
		return false, ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrClosed
	}

	// Store a copy to prevent modification
	data := make([]byte, len(value))
	copy(data, value)

	_, existed := m.data[id]
	m.data[id] = append(m.data[id], data)
	return existed, nil
}

// Delete removes the id and all of its revisions.
func (m *MemoryBackend) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrClosed
	}

	if _, exists := m.data[id]; !exists {
		return false, nil
	}

	delete(m.data, id)
	return true, nil
}

// List returns all known identifiers.
func (m *MemoryBackend) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

// Revision returns the current revision number for the given id.
func (m *MemoryBackend) Revision(ctx context.Context, id string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrClosed
	}

	revs, exists := m.data[id]
	if !exists {
		return 0, ErrNotFound
	}
	return uint64(len(revs)), nil
}

// Close releases any resources held by the backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	m.data = nil
	return nil
}

// Verify interface compliance at compile time
var _ Backend = (*MemoryBackend)(nil)
var _ Versioned = (*MemoryBackend)(nil)
