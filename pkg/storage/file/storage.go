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

// Package file provides a file-based implementation of the storage.Backend
// interface. Each identifier maps to a directory under the root; every write
// is stored as a numbered revision file and Get reads the newest revision.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/jeremyhahn/go-keyring/pkg/storage"
)

const (
	// Directory permissions (owner rwx only)
	dirPerms = 0700

	// Key record files are owner rw only
	filePerms = 0600
)

// FileStorage is a file-based implementation of storage.Backend.
// It stores each revision of a record as a separate file and is thread-safe.
type FileStorage struct {
	mu      sync.RWMutex
	rootDir string
	closed  bool
}

// New creates a new FileStorage instance with the specified root directory.
// The root directory is created with 0700 permissions if it doesn't exist.
func New(rootDir string) (storage.Backend, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("file storage: root directory cannot be empty")
	}

	if err := os.MkdirAll(rootDir, dirPerms); err != nil {
		return nil, fmt.Errorf("file storage: failed to create root directory: %w", err)
	}

	return &FileStorage{
		rootDir: rootDir,
	}, nil
}

// Get retrieves the latest revision of the value for the given id.
// Returns storage.ErrNotFound if the id does not exist.
func (f *FileStorage) Get(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, storage.ErrClosed
	}

	rev, err := f.latestRevision(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.revisionPath(id, rev))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("file storage: failed to read id %q: %w", id, err)
	}
	return data, nil
}

// Put stores the value as a new revision of the given id.
func (f *FileStorage) Put(ctx context.Context, id string, value []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validateID(id); err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false, storage.ErrClosed
	}

	existed := true
	rev, err := f.latestRevision(id)
	if err == storage.ErrNotFound {
		existed = false
		rev = 0
	} else if err != nil {
		return false, err
	}

	dir := f.idDir(id)
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return false, fmt.Errorf("file storage: failed to create directory for id %q: %w", id, err)
	}

	if err := writeFileAtomic(dir, f.revisionPath(id, rev+1), value); err != nil {
		return false, fmt.Errorf("file storage: failed to write id %q: %w", id, err)
	}
	return existed, nil
}

// Delete removes the id and all of its revisions.
func (f *FileStorage) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validateID(id); err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false, storage.ErrClosed
	}

	dir := f.idDir(id)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("file storage: failed to stat id %q: %w", id, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("file storage: failed to delete id %q: %w", id, err)
	}
	return true, nil
}

// List returns all known identifiers.
func (f *FileStorage) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, storage.ErrClosed
	}

	entries, err := os.ReadDir(f.rootDir)
	if err != nil {
		return nil, fmt.Errorf("file storage: failed to list root directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}

// Revision returns the current revision number for the given id.
func (f *FileStorage) Revision(ctx context.Context, id string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return 0, storage.ErrClosed
	}

	return f.latestRevision(id)
}

// Close releases any resources held by the backend.
func (f *FileStorage) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}

// idDir returns the directory holding all revisions of id.
func (f *FileStorage) idDir(id string) string {
	return filepath.Join(f.rootDir, id)
}

// revisionPath returns the file path for a specific revision of id.
func (f *FileStorage) revisionPath(id string, rev uint64) string {
	return filepath.Join(f.idDir(id), fmt.Sprintf("%08d", rev))
}

// latestRevision scans the id directory for the highest revision number.
// Callers must hold at least a read lock.
func (f *FileStorage) latestRevision(id string) (uint64, error) {
	entries, err := os.ReadDir(f.idDir(id))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("file storage: failed to read id directory %q: %w", id, err)
	}

	var latest uint64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		n, err := strconv.ParseUint(entry.Name(), 10, 64)
		if err != nil {
			continue
		}
		if n > latest {
			latest = n
		}
	}
	if latest == 0 {
		return 0, storage.ErrNotFound
	}
	return latest, nil
}

// writeFileAtomic writes value to a temp file in dir and renames it into
// place, so a crash mid-write cannot leave a torn newest revision. Temp
// names do not parse as revision numbers and are invisible to
// latestRevision.
func writeFileAtomic(dir, path string, value []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if err := tmp.Chmod(filePerms); err != nil {
		return cleanup(err)
	}
	if _, err := tmp.Write(value); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// validateID rejects identifiers that could escape the root directory.
func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return storage.ErrInvalidID
	}
	return nil
}

// Verify interface compliance at compile time
var _ storage.Backend = (*FileStorage)(nil)
var _ storage.Versioned = (*FileStorage)(nil)
