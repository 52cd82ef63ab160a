package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// backend supplies file-level configuration values before env overrides.
type backend interface {
	load() (fileConfig, bool, error)
}

// fileConfig mirrors the JSON file shape. Fields are pointers so an
// absent key leaves the default untouched.
type fileConfig struct {
	DBPath       *string `json:"db_path"`
	Port         *int    `json:"port"`
	LogLevel     *string `json:"log_level"`
	FetchTimeout *string `json:"fetch_timeout"`
}

type fileBackend struct {
	path string
}

func (b fileBackend) load() (fileConfig, bool, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return fileConfig{}, false, nil
	}
	if err != nil {
		return fileConfig{}, false, fmt.Errorf("reading config file %s: %w", b.path, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fileConfig{}, false, fmt.Errorf("parsing config file %s: %w", b.path, err)
	}
	return fc, true, nil
}

func applyBackend(cfg *Config, b backend) error {
	fc, ok, err := b.load()
	if err != nil || !ok {
		return err
	}

	if fc.DBPath != nil {
		cfg.Catalog.DBPath = *fc.DBPath
	}
	if fc.Port != nil {
		cfg.Server.Port = *fc.Port
	}
	if fc.LogLevel != nil {
		cfg.Log.Level = *fc.LogLevel
	}
	if fc.FetchTimeout != nil {
		d, err := time.ParseDuration(*fc.FetchTimeout)
		if err != nil {
			return fmt.Errorf("invalid fetch_timeout in config file: %w", err)
		}
		cfg.Fetch.Timeout = d
	}
	return nil
}

func configFilePath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "jlcpcb-parts-mcp", "config.json")
}

func envLookup(key string) string {
	return os.Getenv(key)
}
