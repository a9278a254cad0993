package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration
type Config struct {
	Version int           `toml:"version"`
	Backend BackendConfig `toml:"backend"`
	Viewer  ViewerConfig  `toml:"viewer"`
	Feed    FeedConfig    `toml:"feed"`
	Cache   CacheConfig   `toml:"cache"`
}

type BackendConfig struct {
	BaseURL        string `toml:"base_url"`
	AuthToken      string `toml:"auth_token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type ViewerConfig struct {
	UserID  int64 `toml:"user_id"`
	IsStaff bool  `toml:"is_staff"`
}

type FeedConfig struct {
	RefreshIntervalMinutes int  `toml:"refresh_interval_minutes"`
	ReplyConcurrency       int  `toml:"reply_concurrency"`
	FetchLinkPreviews      bool `toml:"fetch_link_previews"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"` // empty means <cache dir>/snapshots.db
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Backend: BackendConfig{
			BaseURL:        "http://localhost:8000/api",
			TimeoutSeconds: 15,
		},
		Feed: FeedConfig{
			RefreshIntervalMinutes: 5,
			ReplyConcurrency:       3,
			FetchLinkPreviews:      true,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "groupfeed"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the platform-appropriate cache directory
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "groupfeed"), nil
}

// DBPath resolves the snapshot database path, applying the default when unset.
func (c *Config) DBPath() (string, error) {
	if c.Cache.DBPath != "" {
		return c.Cache.DBPath, nil
	}
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "snapshots.db"), nil
}

// Load reads config from disk
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
