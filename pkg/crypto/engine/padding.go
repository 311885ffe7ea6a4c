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

import (
	"crypto"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"fmt"
	"strings"
)

// Padding identifies the padding transform applied before raw RSA
// exponentiation. The set is closed; OAEP and PSS additionally carry a
// hash algorithm in the Scheme.
type Padding int

const (
	// PaddingNone is raw modular exponentiation without padding.
	// Explicitly insecure; intended only for controlled testing.
	PaddingNone Padding = iota

	// PaddingPKCS1 is RSAES-PKCS1-v1.5 for encryption and
	// RSASSA-PKCS1-v1.5 for signatures.
	PaddingPKCS1

	// PaddingOAEP is RSAES-OAEP; encryption only.
	PaddingOAEP

	// PaddingPSS is RSASSA-PSS; signatures only.
	PaddingPSS
)

// String returns the canonical configuration name of the padding.
func (p Padding) String() string {
	switch p {
	case PaddingNone:
		return "none"
	case PaddingPKCS1:
		return "pkcs1"
	case PaddingOAEP:
		return "oaep"
	case PaddingPSS:
		return "pss"
	default:
		return "unknown"
	}
}

// Scheme combines a padding transform with the hash algorithm used by
// OAEP and PSS. The hash must agree between the producing and consuming
// sides; a mismatch surfaces as a decryption or verification failure.
type Scheme struct {
	Padding Padding
	Hash    crypto.Hash
}

// DefaultHash is applied when a scheme that requires a hash is parsed
// without an explicit hash name.
const DefaultHash = crypto.SHA256

// ParseScheme builds a Scheme from wire-format padding and hash names.
// Recognized paddings: none, pkcs1, oaep, pss. Recognized hashes:
// sha1, sha256, sha384, sha512 (empty selects DefaultHash for OAEP/PSS).
func ParseScheme(padding, hash string) (Scheme, error) {
	var p Padding
	switch strings.ToLower(padding) {
	case "none", "raw":
		p = PaddingNone
	case "pkcs1", "pkcs1v15":
		p = PaddingPKCS1
	case "oaep":
		p = PaddingOAEP
	case "pss":
		p = PaddingPSS
	default:
		return Scheme{}, fmt.Errorf("%w: %q", ErrUnsupportedPadding, padding)
	}

	h, err := parseHash(hash)
	if err != nil {
		return Scheme{}, err
	}
	if h == 0 && (p == PaddingOAEP || p == PaddingPSS) {
		h = DefaultHash
	}

	return Scheme{Padding: p, Hash: h}, nil
}

// parseHash maps a wire-format hash name to a crypto.Hash.
func parseHash(hash string) (crypto.Hash, error) {
	switch strings.ToLower(hash) {
	case "":
		return 0, nil
	case "sha1", "sha-1":
		return crypto.SHA1, nil
	case "sha256", "sha-256":
		return crypto.SHA256, nil
	case "sha384", "sha-384":
		return crypto.SHA384, nil
	case "sha512", "sha-512":
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedHash, hash)
	}
}

// hash resolves the effective digest algorithm for the scheme, falling
// back to DefaultHash where the scheme left it unset.
func (s Scheme) hash() (crypto.Hash, error) {
	h := s.Hash
	if h == 0 {
		h = DefaultHash
	}
	if !h.Available() {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedHash, h)
	}
	return h, nil
}
