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

// Package keyring implements the key-management service at the core of
// go-keyring: an encrypted store of RSA private keys together with the
// padding-aware cryptographic operation set that uses them.
//
// Records are serialized as JWK, passed through the configured at-rest
// encryptor and written to a versioned storage backend. Public
// projections are always recomputed from the authoritative private
// record, never stored independently.
package keyring

import (
	"context"
	"crypto/rsa"
	"errors"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/jeremyhahn/go-keyring/pkg/adapters/logger"
	"github.com/jeremyhahn/go-keyring/pkg/crypto/engine"
	"github.com/jeremyhahn/go-keyring/pkg/encoding"
	"github.com/jeremyhahn/go-keyring/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-keyring/pkg/encryption"
	"github.com/jeremyhahn/go-keyring/pkg/metrics"
	"github.com/jeremyhahn/go-keyring/pkg/storage"
)

// PublicKey is the public-only projection of a stored key record.
type PublicKey struct {
	KeyID string
	Key   *rsa.PublicKey
}

// Config assembles the service's collaborators. Storage and Encryptor
// are chosen once at startup by the bootstrap code.
type Config struct {
	// Storage is the versioned key-record store.
	Storage storage.Backend

	// Encryptor is the at-rest encryption strategy.
	Encryptor encryption.MasterEncryptor

	// Logger receives operational diagnostics.
	Logger logger.Logger

	// MaxConcurrentCryptoOps bounds concurrently executing RSA
	// operations so large-key work cannot starve request handling.
	// Defaults to GOMAXPROCS.
	MaxConcurrentCryptoOps int
}

// Service orchestrates storage, at-rest encryption and the crypto engine
// to provide the public key-management operation set.
type Service struct {
	store     storage.Backend
	encryptor encryption.MasterEncryptor
	logger    logger.Logger
	cryptoSem *semaphore.Weighted
}

// New creates the keyring service. Storage must already be open; a nil
// backend is a fatal configuration error.
func New(cfg *Config) (*Service, error) {
	if cfg == nil || cfg.Storage == nil {
		return nil, E(CodeConfig, "storage backend is required", nil)
	}

	encryptor := cfg.Encryptor
	if encryptor == nil {
		encryptor = encryption.NewNull()
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewSlogAdapter(nil)
	}

	maxOps := cfg.MaxConcurrentCryptoOps
	if maxOps <= 0 {
		maxOps = runtime.GOMAXPROCS(0)
	}

	return &Service{
		store:     cfg.Storage,
		encryptor: encryptor,
		logger:    log,
		cryptoSem: semaphore.NewWeighted(int64(maxOps)),
	}, nil
}

// Add validates, serializes, encrypts and stores a new private key,
// returning the freshly assigned KeyId.
func (s *Service) Add(ctx context.Context, keyJSON []byte) (string, error) {
	key, err := jwk.Parse(keyJSON)
	if err != nil {
		metrics.RecordOperation(metrics.OpAdd, metrics.StatusError)
		return "", E(CodeValidation, "malformed key", err)
	}
	if !key.IsPrivate() {
		metrics.RecordOperation(metrics.OpAdd, metrics.StatusError)
		return "", E(CodeValidation, "key record requires private components", nil)
	}
	if _, err := key.PrivateKey(); err != nil {
		metrics.RecordOperation(metrics.OpAdd, metrics.StatusError)
		return "", E(CodeValidation, "invalid private key", err)
	}

	id := uuid.NewString()
	key.Kid = id

	if err := s.writeRecord(ctx, id, key); err != nil {
		metrics.RecordOperation(metrics.OpAdd, metrics.StatusError)
		return "", err
	}

	metrics.RecordOperation(metrics.OpAdd, metrics.StatusSuccess)
	s.logger.Debug("key added", logger.String("key_id", id))
	return id, nil
}

// Put replaces the content of an existing key record. The identifier is
// immutable; unknown ids fail with CodeNotFound.
func (s *Service) Put(ctx context.Context, id string, keyJSON []byte) (bool, error) {
	key, err := jwk.Parse(keyJSON)
	if err != nil {
		metrics.RecordOperation(metrics.OpPut, metrics.StatusError)
		return false, E(CodeValidation, "malformed key", err)
	}
	if !key.IsPrivate() {
		metrics.RecordOperation(metrics.OpPut, metrics.StatusError)
		return false, E(CodeValidation, "key record requires private components", nil)
	}
	if _, err := key.PrivateKey(); err != nil {
		metrics.RecordOperation(metrics.OpPut, metrics.StatusError)
		return false, E(CodeValidation, "invalid private key", err)
	}

	// Existence check and write are not atomic; concurrent writers on
	// the same id race with last-writer-wins semantics.
	if _, err := s.store.Get(ctx, id); err != nil {
		metrics.RecordOperation(metrics.OpPut, metrics.StatusError)
		if errors.Is(err, storage.ErrNotFound) {
			return false, E(CodeNotFound, "unknown key id", nil)
		}
		return false, E(CodeStorage, "storage lookup failed", err)
	}

	key.Kid = id
	if err := s.writeRecord(ctx, id, key); err != nil {
		metrics.RecordOperation(metrics.OpPut, metrics.StatusError)
		return false, err
	}

	metrics.RecordOperation(metrics.OpPut, metrics.StatusSuccess)
	s.logger.Debug("key replaced", logger.String("key_id", id))
	return true, nil
}

// Delete removes a key record. It reports whether an entry existed and
// was removed; storage failures surface as errors.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	existed, err := s.store.Delete(ctx, id)
	if err != nil {
		metrics.RecordOperation(metrics.OpDelete, metrics.StatusError)
		return false, E(CodeStorage, "storage delete failed", err)
	}
	metrics.RecordOperation(metrics.OpDelete, metrics.StatusSuccess)
	if existed {
		s.logger.Debug("key deleted", logger.String("key_id", id))
	}
	return existed, nil
}

// Get returns the public projection of a stored key. Absent ids,
// undecryptable ciphertexts and unparsable records uniformly return
// CodeNotFound so clients gain no oracle about ciphertext validity; the
// concrete cause is logged at debug level for diagnostics.
func (s *Service) Get(ctx context.Context, id string) (*PublicKey, error) {
	record, err := s.readRecord(ctx, id)
	if err != nil {
		metrics.RecordOperation(metrics.OpGet, metrics.StatusError)
		return nil, err
	}

	pub, err := record.PublicKey()
	if err != nil {
		s.logger.Debug("stored record has invalid public components",
			logger.String("key_id", id), logger.Error(err))
		metrics.RecordOperation(metrics.OpGet, metrics.StatusError)
		return nil, E(CodeNotFound, "unknown key id", nil)
	}

	metrics.RecordOperation(metrics.OpGet, metrics.StatusSuccess)
	return &PublicKey{KeyID: id, Key: pub}, nil
}

// List enumerates all known key identifiers, not their contents.
func (s *Service) List(ctx context.Context) ([]string, error) {
	ids, err := s.store.List(ctx)
	if err != nil {
		metrics.RecordOperation(metrics.OpList, metrics.StatusError)
		return nil, E(CodeStorage, "storage list failed", err)
	}
	metrics.RecordOperation(metrics.OpList, metrics.StatusSuccess)
	return ids, nil
}

// Decrypt decrypts ciphertext with the private key at id under the
// given scheme.
func (s *Service) Decrypt(ctx context.Context, id string, scheme engine.Scheme, ciphertext []byte) ([]byte, error) {
	priv, err := s.privateKey(ctx, id)
	if err != nil {
		metrics.RecordOperation(metrics.OpDecrypt, metrics.StatusError)
		return nil, err
	}

	if err := s.cryptoSem.Acquire(ctx, 1); err != nil {
		metrics.RecordOperation(metrics.OpDecrypt, metrics.StatusError)
		return nil, E(CodeCrypto, "operation canceled", err)
	}
	defer s.cryptoSem.Release(1)

	start := time.Now()
	plaintext, err := engine.Decrypt(priv, scheme, ciphertext)
	metrics.ObserveOperationDuration(metrics.OpDecrypt, time.Since(start).Seconds())
	if err != nil {
		metrics.RecordOperation(metrics.OpDecrypt, metrics.StatusError)
		return nil, E(CodeCrypto, "decryption failed", err)
	}

	metrics.RecordOperation(metrics.OpDecrypt, metrics.StatusSuccess)
	return plaintext, nil
}

// Sign signs a message with the private key at id under the given scheme.
func (s *Service) Sign(ctx context.Context, id string, scheme engine.Scheme, message []byte) ([]byte, error) {
	priv, err := s.privateKey(ctx, id)
	if err != nil {
		metrics.RecordOperation(metrics.OpSign, metrics.StatusError)
		return nil, err
	}

	if err := s.cryptoSem.Acquire(ctx, 1); err != nil {
		metrics.RecordOperation(metrics.OpSign, metrics.StatusError)
		return nil, E(CodeCrypto, "operation canceled", err)
	}
	defer s.cryptoSem.Release(1)

	start := time.Now()
	signature, err := engine.Sign(priv, scheme, message)
	metrics.ObserveOperationDuration(metrics.OpSign, time.Since(start).Seconds())
	if err != nil {
		metrics.RecordOperation(metrics.OpSign, metrics.StatusError)
		return nil, E(CodeCrypto, "signing failed", err)
	}

	metrics.RecordOperation(metrics.OpSign, metrics.StatusSuccess)
	return signature, nil
}

// Verify checks a signature with the public half of the key at id under
// the given scheme.
func (s *Service) Verify(ctx context.Context, id string, scheme engine.Scheme, message, signature []byte) error {
	pub, err := s.Get(ctx, id)
	if err != nil {
		metrics.RecordOperation(metrics.OpVerify, metrics.StatusError)
		return err
	}

	if err := s.cryptoSem.Acquire(ctx, 1); err != nil {
		metrics.RecordOperation(metrics.OpVerify, metrics.StatusError)
		return E(CodeCrypto, "operation canceled", err)
	}
	defer s.cryptoSem.Release(1)

	start := time.Now()
	err = engine.Verify(pub.Key, scheme, message, signature)
	metrics.ObserveOperationDuration(metrics.OpVerify, time.Since(start).Seconds())
	if err != nil {
		metrics.RecordOperation(metrics.OpVerify, metrics.StatusError)
		return E(CodeCrypto, "verification failed", err)
	}

	metrics.RecordOperation(metrics.OpVerify, metrics.StatusSuccess)
	return nil
}

// ToJSON renders the public projection as a JWK document. Pure; no side
// effects.
func (s *Service) ToJSON(pub *PublicKey) ([]byte, error) {
	if pub == nil || pub.Key == nil {
		return nil, E(CodeValidation, "public key is required", nil)
	}
	data, err := jwk.FromPublicKey(pub.Key, pub.KeyID).Marshal()
	if err != nil {
		return nil, E(CodeValidation, "failed to encode public key", err)
	}
	return data, nil
}

// ToPEM renders the public projection as a PKIX/PEM block. Pure; no side
// effects.
func (s *Service) ToPEM(pub *PublicKey) ([]byte, error) {
	if pub == nil || pub.Key == nil {
		return nil, E(CodeValidation, "public key is required", nil)
	}
	data, err := encoding.PublicKeyToPEM(pub.Key)
	if err != nil {
		return nil, E(CodeValidation, "failed to encode public key", err)
	}
	return data, nil
}

// Close releases the underlying storage backend.
func (s *Service) Close() error {
	return s.store.Close()
}

// writeRecord serializes, encrypts and persists a key record.
func (s *Service) writeRecord(ctx context.Context, id string, key *jwk.JWK) error {
	plaintext, err := key.Marshal()
	if err != nil {
		return E(CodeValidation, "failed to serialize key record", err)
	}

	ciphertext, err := s.encryptor.Encrypt(plaintext)
	if err != nil {
		return E(CodeStorage, "at-rest encryption failed", err)
	}

	if _, err := s.store.Put(ctx, id, ciphertext); err != nil {
		return E(CodeStorage, "storage write failed", err)
	}
	return nil
}

// readRecord fetches, decrypts and parses a key record. All failure
// modes except genuine backend I/O errors collapse to CodeNotFound.
func (s *Service) readRecord(ctx context.Context, id string) (*jwk.JWK, error) {
	blob, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, E(CodeNotFound, "unknown key id", nil)
		}
		return nil, E(CodeStorage, "storage lookup failed", err)
	}

	plaintext, err := s.encryptor.Decrypt(blob)
	if err != nil {
		s.logger.Debug("stored record failed at-rest decryption",
			logger.String("key_id", id), logger.Error(err))
		return nil, E(CodeNotFound, "unknown key id", nil)
	}

	record, err := jwk.Parse(plaintext)
	if err != nil {
		s.logger.Debug("stored record failed to parse",
			logger.String("key_id", id), logger.Error(err))
		return nil, E(CodeNotFound, "unknown key id", nil)
	}
	return record, nil
}

// privateKey loads the private key for crypto operations. Unknown ids
// fail with CodeNotFound; corrupt records are conflated the same way as
// in Get.
func (s *Service) privateKey(ctx context.Context, id string) (*rsa.PrivateKey, error) {
	record, err := s.readRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	priv, err := record.PrivateKey()
	if err != nil {
		s.logger.Debug("stored record has invalid private components",
			logger.String("key_id", id), logger.Error(err))
		return nil, E(CodeNotFound, "unknown key id", nil)
	}
	return priv, nil
}
