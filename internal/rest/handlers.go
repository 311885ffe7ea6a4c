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
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jeremyhahn/go-keyring/pkg/crypto/engine"
	"github.com/jeremyhahn/go-keyring/pkg/health"
	"github.com/jeremyhahn/go-keyring/pkg/keyring"
)

// maxKeyBodySize bounds the request body for key submissions. An RSA
// private JWK for any practical key size fits well within this.
const maxKeyBodySize = 1 << 20

// maxCryptoBodySize bounds decrypt/sign/verify request bodies. RSA
// payloads are at most one modulus long, so base64 plus the JSON
// envelope stays far below this.
const maxCryptoBodySize = 1 << 20

// HandlerContext holds dependencies for REST handlers.
type HandlerContext struct {
	// Keyring is the key-management service.
	Keyring *keyring.Service
	// Version is the API version
	Version string
	// HealthChecker manages health check probes
	HealthChecker HealthChecker
}

// HealthChecker defines the interface for health checking.
type HealthChecker interface {
	Live(ctx context.Context) health.CheckResult
	Ready(ctx context.Context) []health.CheckResult
	Startup(ctx context.Context) health.CheckResult
}

// NewHandlerContext creates a new handler context.
func NewHandlerContext(svc *keyring.Service, version string) *HandlerContext {
	return &HandlerContext{
		Keyring: svc,
		Version: version,
	}
}

// SetHealthChecker sets the health checker for the handler context.
func (h *HandlerContext) SetHealthChecker(checker HealthChecker) {
	h.HealthChecker = checker
}

// HealthHandler handles GET /health requests.
func (h *HandlerContext) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "healthy",
		Version: h.Version,
	}
	writeJSON(w, resp, http.StatusOK)
}

// AddKeyHandler handles POST /api/v1/keys requests. The request body is
// the private key as a JWK document.
func (h *HandlerContext) AddKeyHandler(w http.ResponseWriter, r *http.Request) {
	keyJSON, err := io.ReadAll(io.LimitReader(r.Body, maxKeyBodySize))
	if err != nil {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}

	id, err := h.Keyring.Add(r.Context(), keyJSON)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, AddKeyResponse{KeyID: id}, http.StatusCreated)
}

// PutKeyHandler handles PUT /api/v1/keys/{id} requests, replacing the
// key material stored under an existing id.
func (h *HandlerContext) PutKeyHandler(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "id")
	if keyID == "" {
		writeError(w, ErrMissingKeyID, http.StatusBadRequest)
		return
	}

	keyJSON, err := io.ReadAll(io.LimitReader(r.Body, maxKeyBodySize))
	if err != nil {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}

	replaced, err := h.Keyring.Put(r.Context(), keyID, keyJSON)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, PutKeyResponse{KeyID: keyID, Replaced: replaced}, http.StatusOK)
}

// DeleteKeyHandler handles DELETE /api/v1/keys/{id} requests.
func (h *HandlerContext) DeleteKeyHandler(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "id")
	if keyID == "" {
		writeError(w, ErrMissingKeyID, http.StatusBadRequest)
		return
	}

	deleted, err := h.Keyring.Delete(r.Context(), keyID)
	if err != nil {
		handleError(w, err)
		return
	}
	if !deleted {
		writeError(w, fmt.Errorf("unknown key id"), http.StatusNotFound)
		return
	}

	writeJSON(w, DeleteKeyResponse{KeyID: keyID, Deleted: true}, http.StatusOK)
}

// ListKeysHandler handles GET /api/v1/keys requests.
func (h *HandlerContext) ListKeysHandler(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Keyring.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	writeJSON(w, ListKeysResponse{KeyIDs: ids, Count: len(ids)}, http.StatusOK)
}

// GetKeyHandler handles GET /api/v1/keys/{id} requests, exporting the
// public projection. The format query parameter selects the encoding:
// "json" (default) for JWK, "pem" for a PKIX PEM block.
func (h *HandlerContext) GetKeyHandler(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "id")
	if keyID == "" {
		writeError(w, ErrMissingKeyID, http.StatusBadRequest)
		return
	}

	pub, err := h.Keyring.Get(r.Context(), keyID)
	if err != nil {
		handleError(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json", "jwk":
		data, err := h.Keyring.ToJSON(pub)
		if err != nil {
			handleError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case "pem":
		data, err := h.Keyring.ToPEM(pub)
		if err != nil {
			handleError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/x-pem-file")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	default:
		writeError(w, fmt.Errorf("unsupported format: %s", format), http.StatusBadRequest)
	}
}

// DecryptHandler handles POST /api/v1/keys/{id}/decrypt requests.
func (h *HandlerContext) DecryptHandler(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "id")
	if keyID == "" {
		writeError(w, ErrMissingKeyID, http.StatusBadRequest)
		return
	}

	var req DecryptRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxCryptoBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}

	scheme, err := engine.ParseScheme(req.Padding, req.Hash)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	ciphertext, err := base64.StdEncoding.DecodeString(req.Ciphertext)
	if err != nil {
		writeError(w, fmt.Errorf("ciphertext is not valid base64"), http.StatusBadRequest)
		return
	}

	plaintext, err := h.Keyring.Decrypt(r.Context(), keyID, scheme, ciphertext)
	if err != nil {
		handleError(w, err)
		return
	}

	resp := DecryptResponse{Plaintext: base64.StdEncoding.EncodeToString(plaintext)}
	writeJSON(w, resp, http.StatusOK)
}

// SignHandler handles POST /api/v1/keys/{id}/sign requests.
func (h *HandlerContext) SignHandler(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "id")
	if keyID == "" {
		writeError(w, ErrMissingKeyID, http.StatusBadRequest)
		return
	}

	var req SignRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxCryptoBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}

	scheme, err := engine.ParseScheme(req.Padding, req.Hash)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	message, err := base64.StdEncoding.DecodeString(req.Message)
	if err != nil {
		writeError(w, fmt.Errorf("message is not valid base64"), http.StatusBadRequest)
		return
	}

	signature, err := h.Keyring.Sign(r.Context(), keyID, scheme, message)
	if err != nil {
		handleError(w, err)
		return
	}

	resp := SignResponse{Signature: base64.StdEncoding.EncodeToString(signature)}
	writeJSON(w, resp, http.StatusOK)
}

// VerifyHandler handles POST /api/v1/keys/{id}/verify requests. A
// signature that does not check out is a 200 with valid=false; only
// malformed requests and unknown ids are errors.
func (h *HandlerContext) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "id")
	if keyID == "" {
		writeError(w, ErrMissingKeyID, http.StatusBadRequest)
		return
	}

	var req VerifyRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxCryptoBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}

	scheme, err := engine.ParseScheme(req.Padding, req.Hash)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	message, err := base64.StdEncoding.DecodeString(req.Message)
	if err != nil {
		writeError(w, fmt.Errorf("message is not valid base64"), http.StatusBadRequest)
		return
	}
	signature, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		writeError(w, fmt.Errorf("signature is not valid base64"), http.StatusBadRequest)
		return
	}

	if err := h.Keyring.Verify(r.Context(), keyID, scheme, message, signature); err != nil {
		if keyring.CodeOf(err) == keyring.CodeCrypto {
			writeJSON(w, VerifyResponse{Valid: false}, http.StatusOK)
			return
		}
		handleError(w, err)
		return
	}

	writeJSON(w, VerifyResponse{Valid: true}, http.StatusOK)
}
