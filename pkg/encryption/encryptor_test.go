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

package encryption

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/jeremyhahn/go-keyring/pkg/adapters/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullEncryptor_RoundTrip(t *testing.T) {
	e := NewNull()

	inputs := [][]byte{
		nil,
		{},
		[]byte("plaintext"),
		bytes.Repeat([]byte{0xff}, 4096),
	}
	for _, input := range inputs {
		ct, err := e.Encrypt(input)
		require.NoError(t, err)
		pt, err := e.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, input, pt)
	}
}

func TestAESGCMEncryptor_RoundTrip(t *testing.T) {
	e, err := NewAESGCM([]byte("master-secret"))
	require.NoError(t, err)

	inputs := [][]byte{
		{},
		[]byte("x"),
		[]byte(`{"kty":"RSA","n":"...","e":"AQAB"}`),
		bytes.Repeat([]byte{0x42}, 8192),
	}
	for _, input := range inputs {
		ct, err := e.Encrypt(input)
		require.NoError(t, err)
		assert.NotEqual(t, input, ct)

		pt, err := e.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, input, pt)
	}
}

func TestAESGCMEncryptor_NonDeterministicCiphertext(t *testing.T) {
	e, err := NewAESGCM([]byte("master-secret"))
	require.NoError(t, err)

	ct1, err := e.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)
	ct2, err := e.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)
	assert.NotEqual(t, ct1, ct2, "nonce must randomize ciphertexts")
}

func TestAESGCMEncryptor_TamperedCiphertext(t *testing.T) {
	e, err := NewAESGCM([]byte("master-secret"))
	require.NoError(t, err)

	ct, err := e.Encrypt([]byte("plaintext"))
	require.NoError(t, err)
	ct[len(ct)-1] ^= 0x01

	_, err = e.Decrypt(ct)
	assert.Error(t, err)
}

func TestAESGCMEncryptor_ShortCiphertext(t *testing.T) {
	e, err := NewAESGCM([]byte("master-secret"))
	require.NoError(t, err)

	_, err = e.Decrypt([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestAESGCMEncryptor_EmptyKey(t *testing.T) {
	_, err := NewAESGCM(nil)
	assert.Error(t, err)
}

func TestAESGCMEncryptor_WrongKey(t *testing.T) {
	e1, err := NewAESGCM([]byte("key-one"))
	require.NoError(t, err)
	e2, err := NewAESGCM([]byte("key-two"))
	require.NoError(t, err)

	ct, err := e1.Encrypt([]byte("plaintext"))
	require.NoError(t, err)

	_, err = e2.Decrypt(ct)
	assert.Error(t, err)
}

func TestSelect_NullMode_WarnsOnce(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewSlogAdapter(&logger.SlogConfig{
		Handler: slog.NewTextHandler(&buf, nil),
	})

	e, err := Select("", log)
	require.NoError(t, err)
	assert.IsType(t, &NullEncryptor{}, e)

	warnings := strings.Count(buf.String(), "no master key configured")
	assert.Equal(t, 1, warnings, "null mode must emit exactly one warning")
}

func TestSelect_KeyedMode(t *testing.T) {
	log := logger.NewSlogAdapter(nil)

	e, err := Select("00112233445566778899aabbccddeeff", log)
	require.NoError(t, err)
	assert.IsType(t, &AESGCMEncryptor{}, e)
}

func TestSelect_InvalidHex(t *testing.T) {
	log := logger.NewSlogAdapter(nil)

	_, err := Select("not-hex", log)
	assert.Error(t, err)
}
