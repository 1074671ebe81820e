package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix marks environment variables that override file settings.
const EnvPrefix = "OPSCONSOLE_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides. Nested keys use a double underscore:
// OPSCONSOLE_SERVER__PORT -> server.port.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	if c.Storage.AuditDB == "" {
		return fmt.Errorf("storage.audit_db is required")
	}
	if c.Storage.TrackingDB == "" {
		return fmt.Errorf("storage.tracking_db is required")
	}
	if filepath.Clean(c.Storage.AuditDB) == filepath.Clean(c.Storage.TrackingDB) {
		return fmt.Errorf("storage.audit_db and storage.tracking_db must be different files")
	}

	f := c.Feed
	if f.MaxLimit < 1 {
		return fmt.Errorf("feed.max_limit must be positive")
	}
	if f.DefaultLimit < 1 || f.DefaultLimit > f.MaxLimit {
		return fmt.Errorf("feed.default_limit must be between 1 and feed.max_limit (%d)", f.MaxLimit)
	}
	if f.MaxWindow < f.MaxLimit {
		return fmt.Errorf("feed.max_window must be at least feed.max_limit (%d)", f.MaxLimit)
	}
	if f.SourceTimeout <= 0 {
		return fmt.Errorf("feed.source_timeout must be positive")
	}

	for _, p := range c.Tracking.Exclude {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid tracking.exclude pattern %q", p)
		}
	}

	if c.Retention.AuditDays < 0 || c.Retention.TrackingDays < 0 {
		return fmt.Errorf("retention days must be non-negative")
	}

	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	return nil
}
