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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-keyring/pkg/keyring"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", keyring.E(keyring.CodeValidation, "bad key", nil), http.StatusBadRequest},
		{"not found", keyring.E(keyring.CodeNotFound, "unknown id", nil), http.StatusNotFound},
		{"crypto", keyring.E(keyring.CodeCrypto, "bad padding", nil), http.StatusBadRequest},
		{"storage", keyring.E(keyring.CodeStorage, "io failure", nil), http.StatusInternalServerError},
		{"config", keyring.E(keyring.CodeConfig, "bad config", nil), http.StatusInternalServerError},
		{"plain error", errors.New("anything"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapErrorToStatusCode(tt.err))
		})
	}
}

func TestHandleError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	handleError(rec, keyring.E(keyring.CodeStorage, "redis connection refused at 10.0.0.5", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrInternalError.Error(), resp.Error)
	assert.NotContains(t, resp.Error, "redis")
}

func TestHandleError_ClientErrorsPassThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	handleError(rec, keyring.E(keyring.CodeNotFound, "unknown key id", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "unknown key id")
}

func TestWriteErrorWithMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	writeErrorWithMessage(rec, ErrInvalidRequest, "body must be JSON", http.StatusBadRequest)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "body must be JSON", resp.Message)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
