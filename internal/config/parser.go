// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/tbruckner/volguard/internal/models"
)

const envPrefix = "VOLGUARD"

// Parser handles configuration loading from file and environment.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser. Every key can be overridden
// through the environment with a VOLGUARD_ prefix (dots become underscores),
// so the daemon runs from environment alone when no file is given.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path, with environment overrides.
func (p *Parser) LoadFile(path string) (*models.Config, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a string (useful for testing).
func (p *Parser) LoadReader(content string) (*models.Config, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

// LoadEnv loads configuration from the environment only.
func (p *Parser) LoadEnv() (*models.Config, error) {
	return p.parse()
}

func (p *Parser) parse() (*models.Config, error) {
	cfg := &models.Config{}

	// Destinations (required). Accept both YAML lists and a single
	// comma-separated string, which is what the env override yields.
	cfg.Destinations = splitList(p.v.GetStringSlice("destinations"))
	if len(cfg.Destinations) == 0 {
		return nil, fmt.Errorf("destinations is required")
	}

	// Schedule: a cron expression or a fixed interval. The interval is
	// accepted either as a duration string or as raw milliseconds.
	cfg.Schedule = models.ScheduleConfig{
		Cron: p.v.GetString("schedule.cron"),
	}
	if ms := p.v.GetInt64("schedule.interval_ms"); ms > 0 {
		cfg.Schedule.Interval = time.Duration(ms) * time.Millisecond
	} else {
		cfg.Schedule.Interval = p.v.GetDuration("schedule.interval")
	}

	// Retention policy.
	cfg.Retention = models.RetentionPolicy{
		Enabled:  p.v.GetBool("retention.enabled"),
		MaxAge:   p.v.GetDuration("retention.max_age"),
		MinCount: p.v.GetInt("retention.min_count"),
	}

	// Docker discovery and archiver settings.
	cfg.Docker = models.DockerConfig{
		VolumeLabel: p.v.GetString("docker.volume_label"),
		Include:     splitList(p.v.GetStringSlice("docker.include")),
		Exclude:     splitList(p.v.GetStringSlice("docker.exclude")),
		Image:       p.v.GetString("docker.image"),
	}
	if cfg.Docker.Image == "" {
		cfg.Docker.Image = "alpine:3.20"
	}

	// Optional notification config.
	if endpoint := p.expandEnv(p.v.GetString("notify.endpoint")); endpoint != "" {
		cfg.Notify = &models.NotifyConfig{
			Endpoint: endpoint,
			Timeout:  p.v.GetDuration("notify.timeout"),
		}
		if cfg.Notify.Timeout == 0 {
			cfg.Notify.Timeout = 30 * time.Second
		}
	}

	// Optional metrics listener.
	if addr := p.v.GetString("metrics.listen_addr"); addr != "" {
		cfg.Metrics = &models.MetricsConfig{ListenAddr: addr}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// splitList flattens comma-separated entries and trims whitespace.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate performs fail-fast validation on the loaded configuration.
func Validate(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if len(cfg.Destinations) == 0 {
		return fmt.Errorf("destinations is required")
	}

	if cfg.Schedule.Cron == "" && cfg.Schedule.Interval <= 0 {
		return fmt.Errorf("schedule.interval or schedule.cron is required")
	}
	if cfg.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(cfg.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron is invalid: %w", err)
		}
	}

	if cfg.Retention.MinCount < 0 {
		return fmt.Errorf("retention.min_count must be >= 0")
	}
	if cfg.Retention.Enabled && cfg.Retention.MaxAge <= 0 {
		return fmt.Errorf("retention.max_age must be > 0 when retention is enabled")
	}

	if cfg.Notify != nil {
		u, err := url.Parse(cfg.Notify.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("notify.endpoint must be a valid URL: %q", cfg.Notify.Endpoint)
		}
	}

	return nil
}
