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

import "errors"

var (
	// ErrNotFound indicates the requested id does not exist in storage.
	ErrNotFound = errors.New("storage: not found")

	// ErrClosed indicates the backend has been closed and cannot be used.
	ErrClosed = errors.New("storage: backend is closed")

	// ErrInvalidID indicates an empty or malformed identifier.
	ErrInvalidID = errors.New("storage: invalid id")
)
