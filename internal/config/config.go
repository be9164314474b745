// Package config provides configuration loading and structs for the Kensaku gateway.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Search    SearchConfig    `yaml:"search"`
	Cache     CacheConfig     `yaml:"cache"`
	Profiles  ProfilesConfig  `yaml:"profiles"`
	Analytics AnalyticsConfig `yaml:"analytics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// BackendConfig holds search engine connection settings.
type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SearchConfig holds request-shaping settings.
type SearchConfig struct {
	DebounceMillis int  `yaml:"debounce_ms"`
	DefaultLimit   int  `yaml:"default_limit"`
	MaxLimit       int  `yaml:"max_limit"`
	SpellChecking  bool `yaml:"spell_checking"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Capacity   int `yaml:"capacity"`
	TTLSeconds int `yaml:"ttl_seconds"`
}

// ProfilesConfig holds search profile loading settings.
type ProfilesConfig struct {
	Directory string `yaml:"directory"`
	Default   string `yaml:"default"`
	HotReload *bool  `yaml:"hot_reload"`
}

// HotReloadOrDefault returns whether profile files are watched for changes;
// defaults to true when unset.
func (p *ProfilesConfig) HotReloadOrDefault() bool {
	if p.HotReload != nil {
		return *p.HotReload
	}
	return true
}

// AnalyticsConfig holds event store settings.
type AnalyticsConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Profiles.Directory = expandPath(cfg.Profiles.Directory, configDir)
	cfg.Analytics.DatabasePath = expandPath(cfg.Analytics.DatabasePath, configDir)

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
