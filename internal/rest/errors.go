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
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/jeremyhahn/go-keyring/pkg/keyring"
)

// Errors surfaced directly by the HTTP layer, before a request reaches
// the keyring service.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrMissingKeyID   = errors.New("missing key id")
	ErrInternalError  = errors.New("internal server error")
)

// writeJSON encodes data as the response body with the given status.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error, statusCode int) {
	writeJSON(w, ErrorResponse{Error: err.Error(), Code: statusCode}, statusCode)
}

func writeErrorWithMessage(w http.ResponseWriter, err error, message string, statusCode int) {
	writeJSON(w, ErrorResponse{
		Error:   err.Error(),
		Message: message,
		Code:    statusCode,
	}, statusCode)
}

// mapErrorToStatusCode maps keyring failure codes to HTTP status codes.
// Crypto failures are client errors: a bad ciphertext or signature is a
// property of the request, not of the server.
func mapErrorToStatusCode(err error) int {
	switch keyring.CodeOf(err) {
	case keyring.CodeValidation, keyring.CodeCrypto:
		return http.StatusBadRequest
	case keyring.CodeNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// handleError writes the response for a keyring service error.
func handleError(w http.ResponseWriter, err error) {
	statusCode := mapErrorToStatusCode(err)
	// Backend detail stays server-side; the client sees the generic error.
	if statusCode == http.StatusInternalServerError {
		err = ErrInternalError
	}
	writeError(w, err, statusCode)
}
