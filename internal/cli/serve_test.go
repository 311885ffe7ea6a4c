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

package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-keyring/internal/config"
)

func TestApplyOverridesFromFlags(t *testing.T) {
	require.NoError(t, serveCmd.Flags().Set("host", "10.0.0.5"))
	require.NoError(t, serveCmd.Flags().Set("https-port", "9443"))
	require.NoError(t, serveCmd.Flags().Set("store", "/var/lib/keyring"))
	t.Cleanup(resetServeFlags)

	v, err := newServeViper(serveCmd)
	require.NoError(t, err)

	cfg := config.Default()
	applyOverrides(cfg, v)

	assert.Equal(t, "10.0.0.5", cfg.Server.Host)
	assert.Equal(t, 9443, cfg.Server.HTTPSPort)
	assert.Equal(t, "/var/lib/keyring", cfg.Store.Location)
	// Untouched settings keep their defaults.
	assert.Equal(t, config.Default().Server.HTTPPort, cfg.Server.HTTPPort)
}

func TestApplyOverridesFromEnvironment(t *testing.T) {
	t.Setenv("KEYRING_LOG_LEVEL", "debug")
	t.Setenv("KEYRING_REDIRECT_HTTP", "true")

	v, err := newServeViper(serveCmd)
	require.NoError(t, err)

	cfg := config.Default()
	applyOverrides(cfg, v)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Server.RedirectHTTP)
}

func TestApplyOverridesUntouchedFlagDefaultDoesNotOverride(t *testing.T) {
	v, err := newServeViper(serveCmd)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Metrics.Enabled = false
	applyOverrides(cfg, v)

	// The --metrics flag defaults to true, but an unset flag must not
	// clobber the config file value.
	assert.False(t, cfg.Metrics.Enabled)
}

func TestServeBindingsMatchFlags(t *testing.T) {
	for _, flag := range serveBindings {
		assert.NotNil(t, serveCmd.Flags().Lookup(flag), "missing flag %q", flag)
	}
}

// resetServeFlags clears Changed state so tests do not leak flag
// values into each other.
func resetServeFlags() {
	flags := serveCmd.Flags()
	for _, name := range []string{"host", "https-port", "http-port", "redirect-http",
		"store", "static-dir", "log-level", "log-format", "metrics"} {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		_ = flags.Set(name, f.DefValue)
		f.Changed = false
	}
}
