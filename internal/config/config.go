// Package config loads server configuration from a JSON file and
// JLCPCB_* environment variables. Env always wins over the file, and the
// file over built-in defaults.
package config

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

type Config struct {
	Server  ServerConfig
	Catalog CatalogConfig
	Fetch   FetchConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type CatalogConfig struct {
	// DBPath points at a pre-built jlcparts SQLite database. The server
	// only ever reads it.
	DBPath string
}

type FetchConfig struct {
	// Timeout bounds outbound image and datasheet fetches.
	Timeout time.Duration
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{Port: 4050},
		Fetch:  FetchConfig{Timeout: 30 * time.Second},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads configuration from the JSON file at
// $XDG_CONFIG_HOME/jlcpcb-parts-mcp/config.json (if present) with
// environment overrides applied on top:
//
//	JLCPCB_DB_PATH        catalog database path (required)
//	JLCPCB_PORT           HTTP transport port
//	JLCPCB_LOG_LEVEL      debug | info | warn | error
//	JLCPCB_FETCH_TIMEOUT  Go duration, e.g. 15s
func Load() (Config, error) {
	return loadWith(fileBackend{path: configFilePath()}, envLookup)
}

func loadWith(b backend, getenv func(string) string) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	if err := applyEnvOverrides(&cfg, getenv); err != nil {
		return Config{}, err
	}

	if cfg.Catalog.DBPath == "" {
		return Config{}, fmt.Errorf("missing required config: catalog database path. " +
			"Set the JLCPCB_DB_PATH environment variable to a jlcparts SQLite database")
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config, getenv func(string) string) error {
	if v := getenv("JLCPCB_DB_PATH"); v != "" {
		cfg.Catalog.DBPath = v
	}
	if v := getenv("JLCPCB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid JLCPCB_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := getenv("JLCPCB_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv("JLCPCB_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid JLCPCB_FETCH_TIMEOUT %q: %w", v, err)
		}
		cfg.Fetch.Timeout = d
	}
	return nil
}

// KV is one effective configuration entry for display.
type KV struct {
	Key   string
	Value string
}

// ShowAll flattens the effective config into sorted key/value pairs.
func ShowAll(cfg Config) []KV {
	kvs := []KV{
		{"catalog.db_path", cfg.Catalog.DBPath},
		{"fetch.timeout", cfg.Fetch.Timeout.String()},
		{"log.level", cfg.Log.Level},
		{"server.port", strconv.Itoa(cfg.Server.Port)},
	}
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].Key < kvs[j].Key })
	return kvs
}
