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

package keyring

import (
	"errors"
	"fmt"
)

// Code classifies keyring failures for machine consumption. API clients
// distinguish failure kinds only by this field.
type Code string

const (
	// CodeValidation indicates malformed key material, JSON, padding or data.
	CodeValidation Code = "validation_error"

	// CodeNotFound indicates an unknown KeyId.
	CodeNotFound Code = "not_found"

	// CodeCrypto indicates a padding/size mismatch, verification failure
	// or hash disagreement.
	CodeCrypto Code = "crypto_error"

	// CodeStorage indicates a backend I/O failure.
	CodeStorage Code = "storage_error"

	// CodeConfig indicates a fatal startup configuration failure.
	CodeConfig Code = "config_error"
)

// Error is the structured failure payload carried by all keyring
// operations. It wraps the underlying cause for diagnostics while the
// Code and Message form the stable client-visible contract.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("keyring: %s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("keyring: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// E builds a structured Error. The cause may be nil.
func E(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// CodeOf extracts the failure code from an error chain. Errors that did
// not originate in the keyring return an empty Code.
func CodeOf(err error) Code {
	var kerr *Error
	if errors.As(err, &kerr) {
		return kerr.Code
	}
	return ""
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
