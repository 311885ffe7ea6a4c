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

package jwk

import "errors"

var (
	// ErrMalformedJWK indicates the JWK JSON is invalid or structurally incomplete.
	ErrMalformedJWK = errors.New("jwk: malformed key")

	// ErrUnsupportedKeyType indicates a kty other than RSA.
	ErrUnsupportedKeyType = errors.New("jwk: unsupported key type")

	// ErrNotPrivate indicates a private key operation on a public-only JWK.
	ErrNotPrivate = errors.New("jwk: key has no private components")
)
