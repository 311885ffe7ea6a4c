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
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-keyring/pkg/crypto/engine"
	"github.com/jeremyhahn/go-keyring/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-keyring/pkg/encryption"
	"github.com/jeremyhahn/go-keyring/pkg/metrics"
	"github.com/jeremyhahn/go-keyring/pkg/storage"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		var err error
		testKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
	})
	return testKey
}

func testKeyJSON(t *testing.T) []byte {
	t.Helper()
	data, err := jwk.FromPrivateKey(testRSAKey(t), "").Marshal()
	require.NoError(t, err)
	return data
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := New(&Config{Storage: storage.NewMemory()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestService_AddAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Add(ctx, testKeyJSON(t))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	pub, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, pub.KeyID)
	assert.Equal(t, testRSAKey(t).PublicKey.N, pub.Key.N)
	assert.Equal(t, testRSAKey(t).PublicKey.E, pub.Key.E)
}

func TestService_Add_AssignsDistinctIDs(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id1, err := svc.Add(ctx, testKeyJSON(t))
	require.NoError(t, err)
	id2, err := svc.Add(ctx, testKeyJSON(t))
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
}

func TestService_Add_RejectsMalformed(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, []byte("not json"))
	require.Error(t, err)
	assert.Equal(t, CodeValidation, CodeOf(err))
}

func TestService_Add_RejectsPublicOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	pubJSON, err := jwk.FromPublicKey(&testRSAKey(t).PublicKey, "").Marshal()
	require.NoError(t, err)

	_, err = svc.Add(ctx, pubJSON)
	require.Error(t, err)
	assert.Equal(t, CodeValidation, CodeOf(err))
}

func TestService_Get_UnknownID(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestService_Get_CorruptRecordIsNotFound(t *testing.T) {
	// A record that fails at-rest decryption must be indistinguishable
	// from an absent one.
	store := storage.NewMemory()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	enc, err := encryption.NewAESGCM(key)
	require.NoError(t, err)

	svc, err := New(&Config{Storage: store, Encryptor: enc})
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	ctx := context.Background()
	id, err := svc.Add(ctx, testKeyJSON(t))
	require.NoError(t, err)

	_, err = store.Put(ctx, id, []byte("garbage ciphertext"))
	require.NoError(t, err)

	_, err = svc.Get(ctx, id)
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestService_Put_ReplacesExisting(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Add(ctx, testKeyJSON(t))
	require.NoError(t, err)

	replacement, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	replacementJSON, err := jwk.FromPrivateKey(replacement, "").Marshal()
	require.NoError(t, err)

	ok, err := svc.Put(ctx, id, replacementJSON)
	require.NoError(t, err)
	assert.True(t, ok)

	pub, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, replacement.PublicKey.N, pub.Key.N)
}

func TestService_Put_UnknownID(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Put(context.Background(), "no-such-id", testKeyJSON(t))
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestService_Delete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Add(ctx, testKeyJSON(t))
	require.NoError(t, err)

	existed, err := svc.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = svc.Get(ctx, id)
	assert.Equal(t, CodeNotFound, CodeOf(err))

	existed, err = svc.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestService_List(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ids, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	id1, err := svc.Add(ctx, testKeyJSON(t))
	require.NoError(t, err)
	id2, err := svc.Add(ctx, testKeyJSON(t))
	require.NoError(t, err)

	ids, err = svc.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{id1, id2}, ids)
}

func TestService_SignAndVerify(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Add(ctx, testKeyJSON(t))
	require.NoError(t, err)

	message := []byte("audit record 42")
	scheme := engine.Scheme{Padding: engine.PaddingPSS, Hash: crypto.SHA256}

	sig, err := svc.Sign(ctx, id, scheme, message)
	require.NoError(t, err)

	require.NoError(t, svc.Verify(ctx, id, scheme, message, sig))

	err = svc.Verify(ctx, id, scheme, []byte("tampered"), sig)
	require.Error(t, err)
	assert.Equal(t, CodeCrypto, CodeOf(err))
}

func TestService_Sign_PKCS1(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Add(ctx, testKeyJSON(t))
	require.NoError(t, err)

	message := []byte("pkcs1 signed message")
	scheme := engine.Scheme{Padding: engine.PaddingPKCS1, Hash: crypto.SHA256}

	sig, err := svc.Sign(ctx, id, scheme, message)
	require.NoError(t, err)

	// Cross-check against the standard library verifier.
	digest := sha256.Sum256(message)
	require.NoError(t, rsa.VerifyPKCS1v15(&testRSAKey(t).PublicKey, crypto.SHA256, digest[:], sig))
}

func TestService_Decrypt(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Add(ctx, testKeyJSON(t))
	require.NoError(t, err)

	plaintext := []byte("wrapped data key")
	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, &testRSAKey(t).PublicKey, plaintext, nil)
	require.NoError(t, err)

	scheme := engine.Scheme{Padding: engine.PaddingOAEP, Hash: crypto.SHA256}
	got, err := svc.Decrypt(ctx, id, scheme, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestService_Decrypt_UnknownID(t *testing.T) {
	svc := newTestService(t)

	scheme := engine.Scheme{Padding: engine.PaddingOAEP, Hash: crypto.SHA256}
	_, err := svc.Decrypt(context.Background(), "no-such-id", scheme, []byte("ct"))
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestService_Decrypt_BadCiphertext(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Add(ctx, testKeyJSON(t))
	require.NoError(t, err)

	scheme := engine.Scheme{Padding: engine.PaddingOAEP, Hash: crypto.SHA256}
	_, err = svc.Decrypt(ctx, id, scheme, []byte("too short"))
	require.Error(t, err)
	assert.Equal(t, CodeCrypto, CodeOf(err))
}

func TestService_ToJSONAndToPEM(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Add(ctx, testKeyJSON(t))
	require.NoError(t, err)

	pub, err := svc.Get(ctx, id)
	require.NoError(t, err)

	jsonData, err := svc.ToJSON(pub)
	require.NoError(t, err)
	parsed, err := jwk.Parse(jsonData)
	require.NoError(t, err)
	assert.False(t, parsed.IsPrivate())
	assert.Equal(t, id, parsed.Kid)

	pemData, err := svc.ToPEM(pub)
	require.NoError(t, err)
	assert.Contains(t, string(pemData), "BEGIN PUBLIC KEY")
}

func TestService_ToJSON_NilKey(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ToJSON(nil)
	require.Error(t, err)
	assert.Equal(t, CodeValidation, CodeOf(err))
}

func TestService_EncryptedAtRest(t *testing.T) {
	// With a master key configured the stored blob must not contain the
	// serialized JWK.
	store := storage.NewMemory()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	enc, err := encryption.NewAESGCM(key)
	require.NoError(t, err)

	svc, err := New(&Config{Storage: store, Encryptor: enc})
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	ctx := context.Background()
	id, err := svc.Add(ctx, testKeyJSON(t))
	require.NoError(t, err)

	blob, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.NotContains(t, string(blob), `"kty"`)
}

func TestService_ConcurrentOperations(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Add(ctx, testKeyJSON(t))
	require.NoError(t, err)

	message := []byte("concurrent signing")
	scheme := engine.Scheme{Padding: engine.PaddingPKCS1, Hash: crypto.SHA256}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sig, err := svc.Sign(ctx, id, scheme, message)
			if err != nil {
				errs <- err
				return
			}
			errs <- svc.Verify(ctx, id, scheme, message, sig)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestNew_RequiresStorage(t *testing.T) {
	_, err := New(&Config{})
	require.Error(t, err)
	assert.Equal(t, CodeConfig, CodeOf(err))

	_, err = New(nil)
	require.Error(t, err)
	assert.Equal(t, CodeConfig, CodeOf(err))
}

// tracingBackend wraps every backend error, the way an instrumented
// store would.
type tracingBackend struct {
	storage.Backend
}

func (b *tracingBackend) Get(ctx context.Context, id string) ([]byte, error) {
	data, err := b.Backend.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("traced: %w", err)
	}
	return data, nil
}

func TestService_WrappedNotFoundStaysNotFound(t *testing.T) {
	svc, err := New(&Config{Storage: &tracingBackend{Backend: storage.NewMemory()}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	ctx := context.Background()

	_, err = svc.Get(ctx, "missing")
	assert.Equal(t, CodeNotFound, CodeOf(err))

	_, err = svc.Put(ctx, "missing", testKeyJSON(t))
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func operationDurationSamples(t *testing.T, operation string) uint64 {
	t.Helper()
	obs, err := metrics.OperationDuration.GetMetricWithLabelValues(operation)
	require.NoError(t, err)
	m := &dto.Metric{}
	require.NoError(t, obs.(prometheus.Metric).Write(m))
	return m.GetHistogram().GetSampleCount()
}

func TestService_SignObservesDuration(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Add(ctx, testKeyJSON(t))
	require.NoError(t, err)

	scheme, err := engine.ParseScheme("pss", "sha256")
	require.NoError(t, err)

	before := operationDurationSamples(t, metrics.OpSign)
	_, err = svc.Sign(ctx, id, scheme, []byte("timed message"))
	require.NoError(t, err)
	after := operationDurationSamples(t, metrics.OpSign)

	assert.Greater(t, after, before)
}
