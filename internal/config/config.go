// Package config loads memtower settings: the CLI's TOML file and the
// server's environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/matzehuels/memtower/pkg/errors"
)

const appName = "memtower"

// File is the CLI configuration file. Command-line flags override it.
//
//	[layout]
//	target_width = 10000.0
//	height_cap = 10000.0
//	shape = "auto"
//
//	[rules]
//	path = "~/rules.yaml"
//	case_sensitive = false
//
//	[cache]
//	url = "redis://localhost:6379/0"
type File struct {
	Layout LayoutSection `toml:"layout"`
	Rules  RulesSection  `toml:"rules"`
	Cache  CacheSection  `toml:"cache"`
}

type LayoutSection struct {
	TargetWidth float64 `toml:"target_width"`
	HeightCap   float64 `toml:"height_cap"`
	Shape       string  `toml:"shape"`
}

type RulesSection struct {
	Path          string `toml:"path"`
	CaseSensitive bool   `toml:"case_sensitive"`
}

type CacheSection struct {
	// URL selects the backend; see cache.Open. Empty means the local file
	// cache.
	URL      string `toml:"url"`
	Disabled bool   `toml:"disabled"`
}

// DefaultPath returns $XDG_CONFIG_HOME/memtower/config.toml, falling back
// to ~/.config.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// LoadFile reads a config file. A missing file yields the zero File unless
// required is set.
func LoadFile(path string, required bool) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return f, nil
		}
		if os.IsNotExist(err) {
			return f, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return f, fmt.Errorf("read config: %w", err)
	}
	meta, err := toml.Decode(string(data), &f)
	if err != nil {
		return f, errors.Wrap(errors.ErrCodeInvalidInput, err, "config file %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return f, errors.New(errors.ErrCodeInvalidInput, "config file %s: unknown key %s", path, undecoded[0])
	}
	f.Rules.Path = expandHome(f.Rules.Path)
	return f, nil
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// CacheDir returns $XDG_CACHE_HOME/memtower, falling back to ~/.cache.
func CacheDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Server is the HTTP server configuration, read from the environment.
type Server struct {
	Addr          string        `env:"MEMTOWER_ADDR"            envDefault:":8080"`
	CacheURL      string        `env:"MEMTOWER_CACHE_URL"`
	KeyPrefix     string        `env:"MEMTOWER_KEY_PREFIX"`
	Rules         string        `env:"MEMTOWER_RULES"`
	CaseSensitive bool          `env:"MEMTOWER_CASE_SENSITIVE"`
	MaxBodyBytes  int64         `env:"MEMTOWER_MAX_BODY_BYTES"  envDefault:"67108864"`
	ReadTimeout   time.Duration `env:"MEMTOWER_READ_TIMEOUT"    envDefault:"30s"`
	WriteTimeout  time.Duration `env:"MEMTOWER_WRITE_TIMEOUT"   envDefault:"2m"`
}

// LoadServer parses the server configuration from the process environment.
func LoadServer() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.validate()
}

// LoadServerFrom parses the server configuration from environ instead of
// the process environment.
func LoadServerFrom(environ map[string]string) (Server, error) {
	var cfg Server
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Server) validate() error {
	if c.MaxBodyBytes <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "MEMTOWER_MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}
	return nil
}
