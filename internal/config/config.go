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

// Package config defines the server configuration: a YAML file with
// KEYRING_* environment variable overrides layered on top.
package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultNameserver is used for remote-store DNS resolution when the
// config does not name one.
const DefaultNameserver = "8.8.8.8"

// Config represents the complete server configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
	TLS     TLSConfig     `yaml:"tls"`
	Static  StaticConfig  `yaml:"static"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig contains listener-level settings
type ServerConfig struct {
	Host      string `yaml:"host"`
	HTTPSPort int    `yaml:"https_port"`
	HTTPPort  int    `yaml:"http_port"`

	// RedirectHTTP switches the plaintext listener from serving the
	// API to issuing permanent redirects to the HTTPS equivalent URL.
	RedirectHTTP bool `yaml:"redirect_http"`

	// Nameserver is the DNS server used to resolve remote store
	// addresses. Defaults to DefaultNameserver.
	Nameserver string `yaml:"nameserver"`
}

// StoreConfig controls key-record persistence
type StoreConfig struct {
	// Location selects the backend: empty for in-memory, a redis://
	// URL for redis, anything else is a filesystem path.
	Location string `yaml:"location"`

	// MasterKey is the hex-encoded at-rest encryption key. Empty
	// selects the null encryptor (no at-rest confidentiality).
	MasterKey string `yaml:"master_key"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TLSConfig controls TLS/SSL settings for the HTTPS listener
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Client certificate verification (mTLS)
	ClientAuth string   `yaml:"client_auth"` // none, request, require, verify, require_and_verify
	ClientCAs  []string `yaml:"client_cas"`  // Additional client CA certificates

	// TLS version and cipher suites
	MinVersion   string   `yaml:"min_version"`   // TLS1.2, TLS1.3
	MaxVersion   string   `yaml:"max_version"`   // TLS1.2, TLS1.3
	CipherSuites []string `yaml:"cipher_suites"` // Specific cipher suites to allow
}

// StaticConfig controls static asset serving
type StaticConfig struct {
	// Dir is the read-only asset directory. Empty disables asset
	// serving.
	Dir string `yaml:"dir"`
}

// MetricsConfig controls metrics collection
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPSPort:  8443,
			HTTPPort:   8080,
			Nameserver: DefaultNameserver,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from a YAML file and applies environment
// variable overrides. An empty path yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 - Config file path is provided by admin/user
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills fields the file and environment left empty.
func (c *Config) applyDefaults() {
	if c.Server.HTTPSPort == 0 {
		c.Server.HTTPSPort = 8443
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Server.Nameserver == "" {
		c.Server.Nameserver = DefaultNameserver
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("KEYRING_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("KEYRING_HTTPS_PORT"); port != "" {
		cfg.Server.HTTPSPort = overridePort("KEYRING_HTTPS_PORT", port, cfg.Server.HTTPSPort)
	}
	if port := os.Getenv("KEYRING_HTTP_PORT"); port != "" {
		cfg.Server.HTTPPort = overridePort("KEYRING_HTTP_PORT", port, cfg.Server.HTTPPort)
	}
	if redirect := os.Getenv("KEYRING_REDIRECT_HTTP"); redirect != "" {
		value, err := strconv.ParseBool(redirect)
		if err != nil {
			log.Printf("Warning: invalid KEYRING_REDIRECT_HTTP value %q, keeping %v",
				redirect, cfg.Server.RedirectHTTP)
		} else {
			cfg.Server.RedirectHTTP = value
		}
	}
	if ns := os.Getenv("KEYRING_NAMESERVER"); ns != "" {
		cfg.Server.Nameserver = ns
	}

	if location := os.Getenv("KEYRING_STORE_LOCATION"); location != "" {
		cfg.Store.Location = location
	}
	if masterKey := os.Getenv("KEYRING_MASTER_KEY"); masterKey != "" {
		cfg.Store.MasterKey = masterKey
	}

	if level := os.Getenv("KEYRING_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("KEYRING_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	if dir := os.Getenv("KEYRING_STATIC_DIR"); dir != "" {
		cfg.Static.Dir = dir
	}

	if certFile := os.Getenv("KEYRING_TLS_CERT_FILE"); certFile != "" {
		cfg.TLS.CertFile = certFile
		cfg.TLS.Enabled = true
	}
	if keyFile := os.Getenv("KEYRING_TLS_KEY_FILE"); keyFile != "" {
		cfg.TLS.KeyFile = keyFile
		cfg.TLS.Enabled = true
	}
}

// overridePort parses an env port override, keeping the fallback on
// bad values.
func overridePort(name, value string, fallback int) int {
	port, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid %s value %q, using default %d: %v", name, value, fallback, err)
		return fallback
	}
	if port < 1 || port > 65535 {
		log.Printf("Warning: invalid %s value %q (out of range 1-65535), using default %d", name, value, fallback)
		return fallback
	}
	return port
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.HTTPSPort < 1 || c.Server.HTTPSPort > 65535 {
		return fmt.Errorf("invalid https port: %d", c.Server.HTTPSPort)
	}
	if c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d", c.Server.HTTPPort)
	}
	if c.Server.HTTPPort == c.Server.HTTPSPort {
		return fmt.Errorf("http and https ports must differ: %d", c.Server.HTTPPort)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, error, or fatal)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true, "text": true, "console": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json, text, or console)", c.Logging.Format)
	}

	if c.TLS.Enabled {
		if c.TLS.CertFile == "" {
			return fmt.Errorf("TLS cert_file is required when TLS is enabled")
		}
		if c.TLS.KeyFile == "" {
			return fmt.Errorf("TLS key_file is required when TLS is enabled")
		}
	}

	if c.Store.MasterKey != "" {
		key, err := hex.DecodeString(c.Store.MasterKey)
		if err != nil {
			return fmt.Errorf("master_key is not valid hex: %w", err)
		}
		// The cipher key is HKDF-derived, so any secret length works,
		// but short secrets defeat the point.
		if len(key) < 16 {
			return fmt.Errorf("master_key must decode to at least 16 bytes, got %d", len(key))
		}
	}

	return nil
}
