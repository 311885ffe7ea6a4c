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

// Package engine implements the padding-aware RSA operation set used by
// the keyring: encrypt/decrypt under None, PKCS1v1.5 and OAEP, and
// sign/verify under None, PKCS1v1.5 and PSS. All functions are stateless
// and operate on in-memory keys; callers own key loading and scheduling.
//
// Size validation happens before any transform: a message that does not
// fit the key/scheme combination fails with ErrMessageTooLarge, never a
// silent truncation.
package engine

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"math/big"
)

const (
	// pkcs1Overhead is the minimum RSAES-PKCS1-v1.5 padding overhead
	// (0x00 0x02, at least eight nonzero pad bytes, 0x00).
	pkcs1Overhead = 11

	// oaepOverhead is the fixed OAEP overhead beyond the two hash
	// outputs (the leading 0x00 byte and the 0x01 separator).
	oaepOverhead = 2
)

// MaxMessageSize returns the largest plaintext, in bytes, that the given
// public key accepts under the scheme for encryption.
func MaxMessageSize(pub *rsa.PublicKey, scheme Scheme) (int, error) {
	if pub == nil {
		return 0, ErrKeyRequired
	}
	k := pub.Size()

	switch scheme.Padding {
	case PaddingNone:
		// The raw integer must stay below the modulus; k-1 bytes always do.
		return k - 1, nil
	case PaddingPKCS1:
		if k < pkcs1Overhead {
			return 0, ErrKeyTooSmall
		}
		return k - pkcs1Overhead, nil
	case PaddingOAEP:
		h, err := scheme.hash()
		if err != nil {
			return 0, err
		}
		max := k - 2*h.Size() - oaepOverhead
		if max <= 0 {
			return 0, ErrKeyTooSmall
		}
		return max, nil
	default:
		return 0, ErrUnsupportedPadding
	}
}

// Encrypt encrypts msg for the public key under the scheme.
// PSS is a signature scheme and is rejected.
func Encrypt(pub *rsa.PublicKey, scheme Scheme, msg []byte) ([]byte, error) {
	if pub == nil {
		return nil, ErrKeyRequired
	}

	max, err := MaxMessageSize(pub, scheme)
	if err != nil {
		return nil, err
	}
	if len(msg) > max {
		return nil, ErrMessageTooLarge
	}

	switch scheme.Padding {
	case PaddingNone:
		return rawEncrypt(pub, msg)
	case PaddingPKCS1:
		ct, err := rsa.EncryptPKCS1v15(rand.Reader, pub, msg)
		if err != nil {
			return nil, wrapSize(err)
		}
		return ct, nil
	case PaddingOAEP:
		h, err := scheme.hash()
		if err != nil {
			return nil, err
		}
		ct, err := rsa.EncryptOAEP(h.New(), rand.Reader, pub, msg, nil)
		if err != nil {
			return nil, wrapSize(err)
		}
		return ct, nil
	default:
		return nil, ErrUnsupportedPadding
	}
}

// Decrypt decrypts ciphertext with the private key under the scheme.
// A hash mismatch between the producing and consuming sides fails with
// ErrDecryptionFailed.
func Decrypt(priv *rsa.PrivateKey, scheme Scheme, ciphertext []byte) ([]byte, error) {
	if priv == nil {
		return nil, ErrKeyRequired
	}
	k := priv.Size()

	switch scheme.Padding {
	case PaddingNone:
		return rawDecrypt(priv, ciphertext)
	case PaddingPKCS1:
		if len(ciphertext) != k {
			return nil, ErrInvalidCiphertext
		}
		pt, err := rsa.DecryptPKCS1v15(rand.Reader, priv, ciphertext)
		if err != nil {
			return nil, ErrDecryptionFailed
		}
		return pt, nil
	case PaddingOAEP:
		if len(ciphertext) != k {
			return nil, ErrInvalidCiphertext
		}
		h, err := scheme.hash()
		if err != nil {
			return nil, err
		}
		pt, err := rsa.DecryptOAEP(h.New(), rand.Reader, priv, ciphertext, nil)
		if err != nil {
			return nil, ErrDecryptionFailed
		}
		return pt, nil
	default:
		return nil, ErrUnsupportedPadding
	}
}

// Sign signs msg with the private key under the scheme. For PKCS1 and
// PSS the message is digested with the scheme hash first; PSS uses a
// fresh random salt per signature.
func Sign(priv *rsa.PrivateKey, scheme Scheme, msg []byte) ([]byte, error) {
	if priv == nil {
		return nil, ErrKeyRequired
	}

	switch scheme.Padding {
	case PaddingNone:
		return rawSign(priv, msg)
	case PaddingPKCS1:
		h, err := scheme.hash()
		if err != nil {
			return nil, err
		}
		return rsa.SignPKCS1v15(rand.Reader, priv, h, digest(h, msg))
	case PaddingPSS:
		h, err := scheme.hash()
		if err != nil {
			return nil, err
		}
		opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto, Hash: h}
		return rsa.SignPSS(rand.Reader, priv, h, digest(h, msg), opts)
	default:
		return nil, ErrUnsupportedPadding
	}
}

// Verify checks the signature over msg with the public key under the
// scheme. PSS verification recovers the salt length embedded in the
// signature rather than assuming the value used at signing time.
func Verify(pub *rsa.PublicKey, scheme Scheme, msg, signature []byte) error {
	if pub == nil {
		return ErrKeyRequired
	}

	switch scheme.Padding {
	case PaddingNone:
		return rawVerify(pub, msg, signature)
	case PaddingPKCS1:
		h, err := scheme.hash()
		if err != nil {
			return err
		}
		if err := rsa.VerifyPKCS1v15(pub, h, digest(h, msg), signature); err != nil {
			return ErrVerificationFailed
		}
		return nil
	case PaddingPSS:
		h, err := scheme.hash()
		if err != nil {
			return err
		}
		opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto, Hash: h}
		if err := rsa.VerifyPSS(pub, h, digest(h, msg), signature, opts); err != nil {
			return ErrVerificationFailed
		}
		return nil
	default:
		return ErrUnsupportedPadding
	}
}

// digest hashes msg with h. Callers have validated h.Available().
func digest(h crypto.Hash, msg []byte) []byte {
	hasher := h.New()
	hasher.Write(msg)
	return hasher.Sum(nil)
}

// wrapSize maps the standard library's message-size error onto the
// engine's size-class error and passes everything else through.
func wrapSize(err error) error {
	if errors.Is(err, rsa.ErrMessageTooLong) {
		return ErrMessageTooLarge
	}
	return err
}

// rawEncrypt computes msg^e mod n. The result is left-padded to the
// modulus size so ciphertext length is stable.
func rawEncrypt(pub *rsa.PublicKey, msg []byte) ([]byte, error) {
	m := new(big.Int).SetBytes(msg)
	if m.Cmp(pub.N) >= 0 {
		return nil, ErrMessageTooLarge
	}
	c := new(big.Int).Exp(m, big.NewInt(int64(pub.E)), pub.N)
	return c.FillBytes(make([]byte, pub.Size())), nil
}

// rawDecrypt computes ct^d mod n. Leading zero bytes of the original
// message are not preserved; raw mode is for controlled testing only.
func rawDecrypt(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) > priv.Size() {
		return nil, ErrInvalidCiphertext
	}
	c := new(big.Int).SetBytes(ciphertext)
	if c.Cmp(priv.N) >= 0 {
		return nil, ErrInvalidCiphertext
	}
	m := new(big.Int).Exp(c, priv.D, priv.N)
	return m.Bytes(), nil
}

// rawSign computes msg^d mod n without digesting or padding.
func rawSign(priv *rsa.PrivateKey, msg []byte) ([]byte, error) {
	m := new(big.Int).SetBytes(msg)
	if m.Cmp(priv.N) >= 0 {
		return nil, ErrMessageTooLarge
	}
	s := new(big.Int).Exp(m, priv.D, priv.N)
	return s.FillBytes(make([]byte, priv.Size())), nil
}

// rawVerify checks sig^e mod n == msg.
func rawVerify(pub *rsa.PublicKey, msg, signature []byte) error {
	if len(signature) > pub.Size() {
		return ErrVerificationFailed
	}
	s := new(big.Int).SetBytes(signature)
	if s.Cmp(pub.N) >= 0 {
		return ErrVerificationFailed
	}
	m := new(big.Int).SetBytes(msg)
	recovered := new(big.Int).Exp(s, big.NewInt(int64(pub.E)), pub.N)
	if recovered.Cmp(m) != 0 {
		return ErrVerificationFailed
	}
	return nil
}
