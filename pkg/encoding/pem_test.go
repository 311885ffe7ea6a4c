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

package encoding

import (
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicKeyPEM_RoundTrip(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pemData, err := PublicKeyToPEM(&key.PublicKey)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pemData), "-----BEGIN PUBLIC KEY-----"))

	decoded, err := PublicKeyFromPEM(pemData)
	require.NoError(t, err)
	assert.Equal(t, 0, key.N.Cmp(decoded.N))
	assert.Equal(t, key.E, decoded.E)
}

func TestPublicKeyToPEM_Nil(t *testing.T) {
	_, err := PublicKeyToPEM(nil)
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestPublicKeyFromPEM_Invalid(t *testing.T) {
	_, err := PublicKeyFromPEM([]byte("not pem"))
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = PublicKeyFromPEM([]byte("-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n"))
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}
