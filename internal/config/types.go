package config

import (
	"time"

	"github.com/ziadkadry99/ops-console/internal/logging"
)

// Config is the top-level ops-console configuration, corresponding to .opsconsole.yml.
type Config struct {
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Storage   StorageConfig   `yaml:"storage" koanf:"storage"`
	Feed      FeedConfig      `yaml:"feed" koanf:"feed"`
	Tracking  TrackingConfig  `yaml:"tracking" koanf:"tracking"`
	Retention RetentionConfig `yaml:"retention" koanf:"retention"`
	Log       logging.Config  `yaml:"log" koanf:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// StorageConfig points at the two event databases. They must be
// different files: the audit trail and the tracking log never share a
// database.
type StorageConfig struct {
	AuditDB    string `yaml:"audit_db" koanf:"audit_db"`
	TrackingDB string `yaml:"tracking_db" koanf:"tracking_db"`
}

// FeedConfig tunes the activity feed.
type FeedConfig struct {
	DefaultLimit  int           `yaml:"default_limit" koanf:"default_limit"`
	MaxLimit      int           `yaml:"max_limit" koanf:"max_limit"`
	MaxWindow     int           `yaml:"max_window" koanf:"max_window"`
	SourceTimeout time.Duration `yaml:"source_timeout" koanf:"source_timeout"`
}

// TrackingConfig controls the route-visit middleware.
type TrackingConfig struct {
	Enabled bool     `yaml:"enabled" koanf:"enabled"`
	Exclude []string `yaml:"exclude" koanf:"exclude"`
}

// RetentionConfig sets how many days of each log prune keeps. Zero keeps
// everything.
type RetentionConfig struct {
	AuditDays    int `yaml:"audit_days" koanf:"audit_days"`
	TrackingDays int `yaml:"tracking_days" koanf:"tracking_days"`
}

// DefaultTrackingExcludes are request paths never recorded as visits.
var DefaultTrackingExcludes = []string{
	"/healthz",
	"/metrics",
	"/api/activity",
	"/api/tracking",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Storage: StorageConfig{
			AuditDB:    "data/audit.db",
			TrackingDB: "data/tracking.db",
		},
		Feed: FeedConfig{
			DefaultLimit:  50,
			MaxLimit:      200,
			MaxWindow:     10000,
			SourceTimeout: 5 * time.Second,
		},
		Tracking: TrackingConfig{
			Enabled: true,
			Exclude: append([]string(nil), DefaultTrackingExcludes...),
		},
		Retention: RetentionConfig{
			AuditDays:    365,
			TrackingDays: 90,
		},
		Log: logging.DefaultConfig(),
	}
}
