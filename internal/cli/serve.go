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
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-keyring/internal/config"
	"github.com/jeremyhahn/go-keyring/internal/server"
	"github.com/jeremyhahn/go-keyring/pkg/adapters/logger"
)

const defaultConfigPath = "/etc/keyring/config.yaml"

// serveCmd starts the HTTP/HTTPS listeners.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the keyring server",
	Long: `Start the keyring server with both HTTP and HTTPS listeners.

Configuration is merged from three layers, highest precedence first:
command-line flags, KEYRING_* environment variables, then the YAML
config file.`,
	RunE: runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.String("host", "", "bind address for both listeners")
	flags.Int("https-port", 0, "HTTPS listener port")
	flags.Int("http-port", 0, "HTTP listener port")
	flags.Bool("redirect-http", false, "redirect HTTP requests to the HTTPS listener")
	flags.String("store", "", "key store location: empty for in-memory, a directory path, or a redis:// URL")
	flags.String("static-dir", "", "directory of static assets served on unmatched routes")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")
	flags.Bool("metrics", true, "enable Prometheus metrics collection")
}

func runServe(cmd *cobra.Command, args []string) error {
	v, err := newServeViper(cmd)
	if err != nil {
		return err
	}

	path := configFile
	if path == "" {
		if _, statErr := os.Stat(defaultConfigPath); statErr == nil {
			path = defaultConfigPath
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	applyOverrides(cfg, v)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.NewSlogAdapter(&logger.SlogConfig{
		Level:  logger.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
	})

	log.Info("Starting keyring server",
		logger.String("version", Version),
		logger.String("config", path))

	srv, err := server.New(cfg, Version, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

// serveBindings maps viper keys to serve flags. The env replacer turns
// each key into its KEYRING_* variable, matching the names the config
// loader honors.
var serveBindings = map[string]string{
	"host":            "host",
	"https.port":      "https-port",
	"http.port":       "http-port",
	"redirect.http":   "redirect-http",
	"store.location":  "store",
	"static.dir":      "static-dir",
	"log.level":       "log-level",
	"log.format":      "log-format",
	"metrics.enabled": "metrics",
}

// newServeViper builds the flag/env override layer. A key reads as set
// only when its flag was passed or its environment variable is
// present, so untouched settings keep their config-file values.
func newServeViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("KEYRING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, flag := range serveBindings {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %q: %w", flag, err)
		}
	}
	return v, nil
}

func applyOverrides(cfg *config.Config, v *viper.Viper) {
	if v.IsSet("host") {
		cfg.Server.Host = v.GetString("host")
	}
	if v.IsSet("https.port") {
		cfg.Server.HTTPSPort = v.GetInt("https.port")
	}
	if v.IsSet("http.port") {
		cfg.Server.HTTPPort = v.GetInt("http.port")
	}
	if v.IsSet("redirect.http") {
		cfg.Server.RedirectHTTP = v.GetBool("redirect.http")
	}
	if v.IsSet("store.location") {
		cfg.Store.Location = v.GetString("store.location")
	}
	if v.IsSet("static.dir") {
		cfg.Static.Dir = v.GetString("static.dir")
	}
	if v.IsSet("log.level") {
		cfg.Logging.Level = v.GetString("log.level")
	}
	if v.IsSet("log.format") {
		cfg.Logging.Format = v.GetString("log.format")
	}
	if v.IsSet("metrics.enabled") {
		cfg.Metrics.Enabled = v.GetBool("metrics.enabled")
	}
}
