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

package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestCertificate generates a self-signed certificate pair on disk.
func writeTestCertificate(t *testing.T) (certFile, keyFile string) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "keyring-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		IsCA:         true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)

	dir := t.TempDir()
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")

	require.NoError(t, os.WriteFile(certFile,
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600))
	require.NoError(t, os.WriteFile(keyFile,
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0600))
	return certFile, keyFile
}

func TestLoadTLSConfig_Disabled(t *testing.T) {
	cfg := &TLSConfig{Enabled: false}
	tlsCfg, err := cfg.LoadTLSConfig()
	require.NoError(t, err)
	assert.Nil(t, tlsCfg)
}

func TestLoadTLSConfig_LoadsCertificate(t *testing.T) {
	certFile, keyFile := writeTestCertificate(t)

	cfg := &TLSConfig{
		Enabled:  true,
		CertFile: certFile,
		KeyFile:  keyFile,
	}
	tlsCfg, err := cfg.LoadTLSConfig()
	require.NoError(t, err)
	require.NotNil(t, tlsCfg)
	assert.Len(t, tlsCfg.Certificates, 1)
	assert.Equal(t, uint16(tls.VersionTLS12), tlsCfg.MinVersion)
}

func TestLoadTLSConfig_MissingCertIsError(t *testing.T) {
	cfg := &TLSConfig{
		Enabled:  true,
		CertFile: "/no/such/cert.pem",
		KeyFile:  "/no/such/key.pem",
	}
	_, err := cfg.LoadTLSConfig()
	require.Error(t, err)
}

func TestLoadTLSConfig_MinVersion(t *testing.T) {
	certFile, keyFile := writeTestCertificate(t)

	cfg := &TLSConfig{
		Enabled:    true,
		CertFile:   certFile,
		KeyFile:    keyFile,
		MinVersion: "TLS1.3",
	}
	tlsCfg, err := cfg.LoadTLSConfig()
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), tlsCfg.MinVersion)
}

func TestLoadTLSConfig_UnknownCipherSuite(t *testing.T) {
	certFile, keyFile := writeTestCertificate(t)

	cfg := &TLSConfig{
		Enabled:      true,
		CertFile:     certFile,
		KeyFile:      keyFile,
		CipherSuites: []string{"TLS_BOGUS_SUITE"},
	}
	_, err := cfg.LoadTLSConfig()
	require.Error(t, err)
}

func TestParseClientAuthType(t *testing.T) {
	tests := []struct {
		in   string
		want tls.ClientAuthType
		ok   bool
	}{
		{"", tls.NoClientCert, true},
		{"none", tls.NoClientCert, true},
		{"request", tls.RequestClientCert, true},
		{"require", tls.RequireAnyClientCert, true},
		{"verify", tls.VerifyClientCertIfGiven, true},
		{"require_and_verify", tls.RequireAndVerifyClientCert, true},
		{"bogus", tls.NoClientCert, false},
	}

	for _, tt := range tests {
		got, err := parseClientAuthType(tt.in)
		if tt.ok {
			require.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got, tt.in)
		} else {
			require.Error(t, err, tt.in)
		}
	}
}

func TestLoadTLSConfig_UnsupportedVersion(t *testing.T) {
	certFile, keyFile := writeTestCertificate(t)

	cfg := &TLSConfig{
		Enabled:    true,
		CertFile:   certFile,
		KeyFile:    keyFile,
		MinVersion: "TLS1.0",
	}
	_, err := cfg.LoadTLSConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported TLS version")
}

func TestLoadTLSConfig_NamedCipherSuite(t *testing.T) {
	certFile, keyFile := writeTestCertificate(t)

	cfg := &TLSConfig{
		Enabled:      true,
		CertFile:     certFile,
		KeyFile:      keyFile,
		CipherSuites: []string{"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384"},
	}
	tlsCfg, err := cfg.LoadTLSConfig()
	require.NoError(t, err)
	require.Len(t, tlsCfg.CipherSuites, 1)
	assert.Equal(t, uint16(tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384), tlsCfg.CipherSuites[0])
}
