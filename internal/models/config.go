// Package models contains the data structures used throughout volguard.
package models

import "time"

// Config holds the complete configuration for the backup daemon.
type Config struct {
	Destinations []string
	Schedule     ScheduleConfig
	Retention    RetentionPolicy
	Docker       DockerConfig
	Notify       *NotifyConfig  // nil if not configured
	Metrics      *MetricsConfig // nil if not configured
}

// ScheduleConfig controls when backup cycles run.
type ScheduleConfig struct {
	Interval time.Duration
	Cron     string // optional cron expression; takes precedence over Interval
}

// RetentionPolicy controls pruning of old archives per destination.
// Immutable for the process lifetime.
type RetentionPolicy struct {
	Enabled  bool
	MaxAge   time.Duration
	MinCount int // most-recent archives never deleted, regardless of age
}

// DockerConfig holds volume discovery and archiver settings.
type DockerConfig struct {
	VolumeLabel string   // optional label filter, e.g. "volguard.backup=true"
	Include     []string // optional volume name allowlist
	Exclude     []string // optional volume name denylist
	Image       string   // helper image used to create archives
}

// NotifyConfig holds webhook notification configuration.
type NotifyConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// MetricsConfig holds the optional Prometheus listener settings.
type MetricsConfig struct {
	ListenAddr string
}
