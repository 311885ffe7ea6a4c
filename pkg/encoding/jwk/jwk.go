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

// Package jwk implements the JSON Web Key representation (RFC 7517) used
// as the wire and at-rest encoding for keyring records. Only RSA keys are
// supported; a record must carry the public components and, for private
// keys, a private exponent or a full CRT parameter set.
package jwk

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
)

// JWK represents an RSA JSON Web Key.
type JWK struct {
	// Common fields
	Kty string `json:"kty"`           // Key Type (required, "RSA")
	Use string `json:"use,omitempty"` // Public Key Use (sig, enc)
	Kid string `json:"kid,omitempty"` // Key ID

	// RSA public key fields (RFC 7518 Section 6.3.1)
	N string `json:"n,omitempty"` // Modulus (base64url)
	E string `json:"e,omitempty"` // Exponent (base64url)

	// RSA private key fields (RFC 7518 Section 6.3.2)
	D  string `json:"d,omitempty"`  // Private Exponent
	P  string `json:"p,omitempty"`  // First Prime Factor
	Q  string `json:"q,omitempty"`  // Second Prime Factor
	DP string `json:"dp,omitempty"` // First Factor CRT Exponent
	DQ string `json:"dq,omitempty"` // Second Factor CRT Exponent
	QI string `json:"qi,omitempty"` // First CRT Coefficient
}

// KeyTypeRSA is the only kty value the keyring accepts.
const KeyTypeRSA = "RSA"

// Parse decodes and validates a JWK from its JSON encoding.
func Parse(data []byte) (*JWK, error) {
	var key JWK
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJWK, err)
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return &key, nil
}

// Validate checks the structural requirements: kty must be RSA, the
// public components must be present, and a private key must carry either
// a private exponent or the complete CRT parameter set.
func (k *JWK) Validate() error {
	if k.Kty != KeyTypeRSA {
		return fmt.Errorf("%w: kty %q", ErrUnsupportedKeyType, k.Kty)
	}
	if k.N == "" || k.E == "" {
		return fmt.Errorf("%w: modulus and public exponent are required", ErrMalformedJWK)
	}
	if k.IsPrivate() {
		if k.D == "" && !k.hasCRT() {
			return fmt.Errorf("%w: private key requires private exponent or CRT parameters", ErrMalformedJWK)
		}
	}
	return nil
}

// IsPrivate reports whether the JWK carries any private component.
func (k *JWK) IsPrivate() bool {
	return k.D != "" || k.P != "" || k.Q != "" || k.DP != "" || k.DQ != "" || k.QI != ""
}

// hasCRT reports whether the full CRT parameter set is present.
func (k *JWK) hasCRT() bool {
	return k.P != "" && k.Q != ""
}

// Public returns the public-only projection of the JWK. The kid and use
// fields are retained; private components are dropped.
func (k *JWK) Public() *JWK {
	return &JWK{
		Kty: k.Kty,
		Use: k.Use,
		Kid: k.Kid,
		N:   k.N,
		E:   k.E,
	}
}

// PublicKey converts the JWK to an *rsa.PublicKey.
func (k *JWK) PublicKey() (*rsa.PublicKey, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}

	n, err := decodeBigInt(k.N)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid modulus: %v", ErrMalformedJWK, err)
	}
	e, err := decodeBigInt(k.E)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid public exponent: %v", ErrMalformedJWK, err)
	}
	if !e.IsInt64() || e.Int64() <= 1 {
		return nil, fmt.Errorf("%w: public exponent out of range", ErrMalformedJWK)
	}

	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

// PrivateKey converts the JWK to an *rsa.PrivateKey. When only CRT
// parameters are present the private exponent is reconstructed from them.
func (k *JWK) PrivateKey() (*rsa.PrivateKey, error) {
	if !k.IsPrivate() {
		return nil, ErrNotPrivate
	}

	pub, err := k.PublicKey()
	if err != nil {
		return nil, err
	}

	priv := &rsa.PrivateKey{PublicKey: *pub}

	if k.D != "" {
		d, err := decodeBigInt(k.D)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid private exponent: %v", ErrMalformedJWK, err)
		}
		priv.D = d
	}

	if k.hasCRT() {
		p, err := decodeBigInt(k.P)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid prime p: %v", ErrMalformedJWK, err)
		}
		q, err := decodeBigInt(k.Q)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid prime q: %v", ErrMalformedJWK, err)
		}
		priv.Primes = []*big.Int{p, q}

		if priv.D == nil {
			d, err := privateExponentFromPrimes(pub, p, q)
			if err != nil {
				return nil, err
			}
			priv.D = d
		}
	}

	if priv.D == nil {
		return nil, fmt.Errorf("%w: private exponent could not be determined", ErrMalformedJWK)
	}

	// Consistency checks require the prime factorization; D-only keys
	// are accepted as-is and operate without CRT speedups.
	if len(priv.Primes) == 2 {
		if err := priv.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedJWK, err)
		}
		priv.Precompute()
	}
	return priv, nil
}

// FromPublicKey creates a public JWK from an RSA public key.
func FromPublicKey(pub *rsa.PublicKey, kid string) *JWK {
	return &JWK{
		Kty: KeyTypeRSA,
		Kid: kid,
		N:   encodeBigInt(pub.N),
		E:   encodeBigInt(big.NewInt(int64(pub.E))),
	}
}

// FromPrivateKey creates a private JWK from an RSA private key, including
// CRT parameters when they are available.
func FromPrivateKey(priv *rsa.PrivateKey, kid string) *JWK {
	key := FromPublicKey(&priv.PublicKey, kid)
	key.D = encodeBigInt(priv.D)

	if len(priv.Primes) >= 2 {
		key.P = encodeBigInt(priv.Primes[0])
		key.Q = encodeBigInt(priv.Primes[1])
		if priv.Precomputed.Dp != nil {
			key.DP = encodeBigInt(priv.Precomputed.Dp)
			key.DQ = encodeBigInt(priv.Precomputed.Dq)
			key.QI = encodeBigInt(priv.Precomputed.Qinv)
		}
	}
	return key
}

// Marshal encodes the JWK as compact JSON.
func (k *JWK) Marshal() ([]byte, error) {
	return json.Marshal(k)
}

// privateExponentFromPrimes computes d = e^-1 mod phi(n), with
// phi(n) = (p-1)(q-1), when the JWK supplied only CRT parameters.
func privateExponentFromPrimes(pub *rsa.PublicKey, p, q *big.Int) (*big.Int, error) {
	one := big.NewInt(1)
	pMinus1 := new(big.Int).Sub(p, one)
	qMinus1 := new(big.Int).Sub(q, one)
	phi := new(big.Int).Mul(pMinus1, qMinus1)

	d := new(big.Int).ModInverse(big.NewInt(int64(pub.E)), phi)
	if d == nil {
		return nil, fmt.Errorf("%w: public exponent not invertible", ErrMalformedJWK)
	}
	return d, nil
}

// encodeBigInt encodes a big integer as base64url without padding.
func encodeBigInt(n *big.Int) string {
	return base64.RawURLEncoding.EncodeToString(n.Bytes())
}

// decodeBigInt decodes a base64url-encoded big integer.
func decodeBigInt(s string) (*big.Int, error) {
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty value")
	}
	return new(big.Int).SetBytes(data), nil
}
