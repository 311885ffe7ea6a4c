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

package engine

import "errors"

var (
	// ErrMessageTooLarge indicates the message exceeds the capacity of
	// the key and padding scheme combination.
	ErrMessageTooLarge = errors.New("engine: message too large for key and padding scheme")

	// ErrInvalidCiphertext indicates the ciphertext length is
	// incompatible with the key modulus.
	ErrInvalidCiphertext = errors.New("engine: ciphertext length incompatible with key")

	// ErrDecryptionFailed indicates padding removal or integrity
	// checking failed during decryption.
	ErrDecryptionFailed = errors.New("engine: decryption failed")

	// ErrVerificationFailed indicates the signature did not verify.
	ErrVerificationFailed = errors.New("engine: signature verification failed")

	// ErrUnsupportedPadding indicates an unknown padding name or a
	// padding that is not valid for the requested operation.
	ErrUnsupportedPadding = errors.New("engine: unsupported padding scheme")

	// ErrUnsupportedHash indicates an unknown or unavailable hash algorithm.
	ErrUnsupportedHash = errors.New("engine: unsupported hash algorithm")

	// ErrKeyRequired indicates a nil key was supplied.
	ErrKeyRequired = errors.New("engine: key is required")

	// ErrKeyTooSmall indicates the key modulus is too small for the
	// padding scheme overhead.
	ErrKeyTooSmall = errors.New("engine: key too small for padding scheme")
)
