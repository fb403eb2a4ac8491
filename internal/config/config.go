// Package config loads server configuration from an optional TOML file.
//
// The embedded sample_config.toml is the single source of defaults: it is
// parsed first, then the user's file (if any) is parsed over it, so the
// sample can never drift from the real default values.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig []byte

// Server holds HTTP listener configuration.
type Server struct {
	Port int `toml:"port"`
}

// Data locates the three JSON documents the stores rewrite wholesale.
type Data struct {
	Dir             string `toml:"dir"`
	PiecesFile      string `toml:"pieces_file"`
	UsersFile       string `toml:"users_file"`
	DiscussionsFile string `toml:"discussions_file"`
}

// IMSLP configures the external catalog client.
type IMSLP struct {
	BaseURL               string `toml:"base_url"`
	UserAgent             string `toml:"user_agent"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	SearchLimit           int    `toml:"search_limit"`
}

// RequestTimeout returns the configured per-call timeout as a Duration.
func (i IMSLP) RequestTimeout() time.Duration {
	return time.Duration(i.RequestTimeoutSeconds) * time.Second
}

// Config is the full server configuration.
type Config struct {
	Server Server `toml:"server"`
	Data   Data   `toml:"data"`
	IMSLP  IMSLP  `toml:"imslp"`
}

// PiecesPath returns the absolute-ish path of the pieces document.
func (c Config) PiecesPath() string { return filepath.Join(c.Data.Dir, c.Data.PiecesFile) }

// UsersPath returns the path of the users document.
func (c Config) UsersPath() string { return filepath.Join(c.Data.Dir, c.Data.UsersFile) }

// DiscussionsPath returns the path of the discussions document.
func (c Config) DiscussionsPath() string {
	return filepath.Join(c.Data.Dir, c.Data.DiscussionsFile)
}

// Default returns the configuration encoded in the embedded sample file.
func Default() (Config, error) {
	var cfg Config
	if err := toml.Unmarshal(sampleConfig, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing embedded defaults: %w", err)
	}
	return cfg, nil
}

// Load returns the defaults overlaid with the TOML file at path. A missing
// file is not an error and yields the defaults as-is; a present but malformed
// file is.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if c.IMSLP.RequestTimeoutSeconds <= 0 {
		return errors.New("config: imslp request_timeout_seconds must be positive")
	}
	if c.IMSLP.SearchLimit <= 0 {
		return errors.New("config: imslp search_limit must be positive")
	}
	if c.Data.Dir == "" {
		return errors.New("config: data dir must not be empty")
	}
	return nil
}
