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

// Package storage provides an abstraction layer for the versioned key-record
// store. It supports in-memory, file-based and Redis-backed implementations
// with a common interface. Every write is recorded as a new revision of the
// identifier so backends retain history for audit, even though the current
// operation set only exposes the latest revision.
package storage

import (
	"context"
)

// Backend defines the interface for key-record storage backends.
// All implementations must be thread-safe. Operations may block on I/O
// and honor context cancellation.
type Backend interface {
	// Get retrieves the latest revision of the value for the given id.
	// Returns ErrNotFound if the id does not exist.
	Get(ctx context.Context, id string) ([]byte, error)

	// Put stores the value as a new revision of the given id.
	// Returns true if an existing entry was overwritten, false if the
	// id was newly created.
	Put(ctx context.Context, id string, value []byte) (bool, error)

	// Delete removes the id and all of its revisions.
	// Returns true if the id existed and was removed.
	Delete(ctx context.Context, id string) (bool, error)

	// List returns all known identifiers. No ordering is guaranteed.
	List(ctx context.Context) ([]string, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Versioned is implemented by backends that expose their revision counter.
// The keyring does not depend on it; it exists for diagnostics and future
// history traversal.
type Versioned interface {
	// Revision returns the current revision number for the given id,
	// or ErrNotFound if the id does not exist. Revisions start at 1.
	Revision(ctx context.Context, id string) (uint64, error)
}
