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

// Package encryption provides the at-rest encryption layer applied to key
// records before they reach storage. Two implementations exist: a null
// (identity) encryptor used when no master key is configured, and a keyed
// AES-256-GCM encryptor. The implementation is selected once at startup.
//
// This layer never validates plaintext; a ciphertext that decrypts to
// garbage is detected downstream when the keyring parses the record.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/jeremyhahn/go-keyring/pkg/adapters/logger"
)

// hkdfInfo binds the derived key to its purpose. Changing it invalidates
// every record written under the old derivation.
const hkdfInfo = "go-keyring/at-rest/v1"

// MasterEncryptor encrypts serialized key records before persistence.
// Both operations are total for well-formed input; Decrypt of a tampered
// ciphertext fails with an error in keyed mode.
type MasterEncryptor interface {
	// Encrypt returns the ciphertext for the given plaintext.
	Encrypt(plaintext []byte) ([]byte, error)

	// Decrypt returns the plaintext for the given ciphertext.
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Select chooses the encryptor implementation from the configured master
// key. An empty key selects the null encryptor and logs a single warning
// about the degraded state; otherwise the key must be hex-encoded.
func Select(masterKeyHex string, log logger.Logger) (MasterEncryptor, error) {
	if masterKeyHex == "" {
		log.Warn("no master key configured, key records will be stored unencrypted")
		return NewNull(), nil
	}

	key, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("encryption: master key is not valid hex: %w", err)
	}
	return NewAESGCM(key)
}

// NullEncryptor is the identity transform, used when no master key is
// configured. Storage content is unprotected in this mode.
type NullEncryptor struct{}

// NewNull creates a null encryptor.
func NewNull() *NullEncryptor {
	return &NullEncryptor{}
}

// Encrypt returns the plaintext unchanged.
func (e *NullEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	return plaintext, nil
}

// Decrypt returns the ciphertext unchanged.
func (e *NullEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	return ciphertext, nil
}

// AESGCMEncryptor encrypts records with AES-256-GCM. The AES key is
// derived from the configured master secret with HKDF-SHA256 so the raw
// secret is never used directly as cipher key material. A random nonce is
// prepended to each ciphertext.
type AESGCMEncryptor struct {
	aead cipher.AEAD
}

// NewAESGCM creates a keyed encryptor from the raw master secret.
func NewAESGCM(masterKey []byte) (*AESGCMEncryptor, error) {
	if len(masterKey) == 0 {
		return nil, fmt.Errorf("encryption: master key cannot be empty")
	}

	derived := make([]byte, 32)
	kdf := hkdf.New(sha256.New, masterKey, nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, derived); err != nil {
		return nil, fmt.Errorf("encryption: key derivation failed: %w", err)
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("encryption: failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("encryption: failed to create GCM: %w", err)
	}

	return &AESGCMEncryptor{aead: aead}, nil
}

// Encrypt seals the plaintext with a fresh random nonce.
// Output layout: [nonce][ciphertext+tag].
func (e *AESGCMEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("encryption: failed to generate nonce: %w", err)
	}
	return e.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func (e *AESGCMEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("encryption: ciphertext shorter than nonce")
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("encryption: decryption failed: %w", err)
	}
	return plaintext, nil
}

// Verify interface compliance at compile time
var _ MasterEncryptor = (*NullEncryptor)(nil)
var _ MasterEncryptor = (*AESGCMEncryptor)(nil)
