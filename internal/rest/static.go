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
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jeremyhahn/go-keyring/pkg/adapters/logger"
)

// hstsValue is sent on every asset response, one year in seconds.
const hstsValue = "max-age=31536000"

// StaticHandler serves files from a read-only asset directory. "/" maps
// to index.html. Missing and unreadable files both produce a plain 404;
// filesystem error detail never reaches the client.
type StaticHandler struct {
	root   string
	logger logger.Logger
}

// NewStaticHandler creates a static asset handler rooted at dir.
func NewStaticHandler(dir string, log logger.Logger) *StaticHandler {
	if log == nil {
		log = logger.NewSlogAdapter(nil)
	}
	return &StaticHandler{root: dir, logger: log}
}

// ServeHTTP implements http.Handler.
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Strict-Transport-Security", hstsValue)

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rel := path.Clean("/" + r.URL.Path)
	if rel == "/" {
		rel = "/index.html"
	}

	// path.Clean plus the leading slash keeps the join inside root.
	name := filepath.Join(h.root, filepath.FromSlash(rel))

	data, err := os.ReadFile(name)
	if err != nil {
		if !os.IsNotExist(err) {
			h.logger.Debug("asset read failed",
				logger.String("path", rel), logger.Error(err))
		}
		http.NotFound(w, r)
		return
	}

	ctype := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", ctype)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(data)
	}
}
