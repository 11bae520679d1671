package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/tubesort/config.yaml"

// Config holds all tubesort configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Browser BrowserConfig `yaml:"browser"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`
}

type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxRequestSize int64  `yaml:"max_request_size"`
}

type BrowserConfig struct {
	CDPURL         string   `yaml:"cdp_url"`
	VideoHosts     []string `yaml:"video_hosts"`
	CommandDelayMS int      `yaml:"command_delay_ms"`
}

type CacheConfig struct {
	MaxAgeDays int `yaml:"max_age_days"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Addr returns the host:port the HTTP bridge listens on.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DBPath returns the expanded path of the SQLite database file.
func (c StorageConfig) DBPath() (string, error) {
	dir, err := ExpandPath(c.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.SQLiteFile), nil
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate rejects values no command can work with. An empty host list
// falls back to DefaultVideoHosts.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Cache.MaxAgeDays < 0 {
		return fmt.Errorf("cache.max_age_days must not be negative")
	}
	if c.Browser.CommandDelayMS < 0 {
		return fmt.Errorf("browser.command_delay_ms must not be negative")
	}
	if len(c.Browser.VideoHosts) == 0 {
		c.Browser.VideoHosts = DefaultVideoHosts()
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q unknown", c.Logging.Level)
	}
	return nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// EnvConfigPath names the environment variable that overrides
// DefaultConfigPath.
const EnvConfigPath = "TUBESORT_CONFIG"

// Path returns the config file used when none is given on the command line.
func Path() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return ExpandPath(p)
	}
	return ExpandPath(DefaultConfigPath)
}

// LoadOrCreate loads the config from Path, writing defaults there first
// when the file does not exist yet.
func LoadOrCreate() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

const defaultHeader = "# tubesort configuration. Missing keys fall back to built-in defaults.\n"

// LoadOrCreateAt loads the config at path. A missing file is created with
// the defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	_, err := os.Stat(path)
	if err == nil {
		return Load(path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("checking config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes c to path as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
