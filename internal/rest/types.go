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

// AddKeyResponse is the response for POST /api/v1/keys.
type AddKeyResponse struct {
	KeyID string `json:"key_id"`
}

// PutKeyResponse is the response for PUT /api/v1/keys/{id}.
type PutKeyResponse struct {
	KeyID    string `json:"key_id"`
	Replaced bool   `json:"replaced"`
}

// DeleteKeyResponse is the response for DELETE /api/v1/keys/{id}.
type DeleteKeyResponse struct {
	KeyID   string `json:"key_id"`
	Deleted bool   `json:"deleted"`
}

// ListKeysResponse is the response for GET /api/v1/keys.
type ListKeysResponse struct {
	KeyIDs []string `json:"key_ids"`
	Count  int      `json:"count"`
}

// DecryptRequest is the request body for POST /api/v1/keys/{id}/decrypt.
// Ciphertext is base64 (standard encoding).
type DecryptRequest struct {
	Padding    string `json:"padding"`
	Hash       string `json:"hash,omitempty"`
	Ciphertext string `json:"ciphertext"`
}

// DecryptResponse carries the recovered plaintext, base64 encoded.
type DecryptResponse struct {
	Plaintext string `json:"plaintext"`
}

// SignRequest is the request body for POST /api/v1/keys/{id}/sign.
// Message is base64 (standard encoding).
type SignRequest struct {
	Padding string `json:"padding"`
	Hash    string `json:"hash,omitempty"`
	Message string `json:"message"`
}

// SignResponse carries the signature, base64 encoded.
type SignResponse struct {
	Signature string `json:"signature"`
}

// VerifyRequest is the request body for POST /api/v1/keys/{id}/verify.
// Message and Signature are base64 (standard encoding).
type VerifyRequest struct {
	Padding   string `json:"padding"`
	Hash      string `json:"hash,omitempty"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// VerifyResponse reports whether the signature checked out.
type VerifyResponse struct {
	Valid bool `json:"valid"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is the uniform error body for all API failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
