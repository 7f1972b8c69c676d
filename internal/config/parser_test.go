package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbruckner/volguard/internal/models"
)

func TestParser_LoadReader_MinimalConfig(t *testing.T) {
	yaml := `
destinations:
  - /mnt/backup
schedule:
  interval: 6h
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, []string{"/mnt/backup"}, cfg.Destinations)
	assert.Equal(t, 6*time.Hour, cfg.Schedule.Interval)
	// Check defaults
	assert.Equal(t, "alpine:3.20", cfg.Docker.Image)
	assert.False(t, cfg.Retention.Enabled)
	assert.Nil(t, cfg.Notify)
	assert.Nil(t, cfg.Metrics)
}

func TestParser_LoadReader_FullConfig(t *testing.T) {
	yaml := `
destinations:
  - /mnt/backup1
  - /mnt/backup2

schedule:
  cron: "0 3 * * *"

retention:
  enabled: true
  max_age: 168h
  min_count: 3

notify:
  endpoint: "https://hooks.example.com/T123"
  timeout: 10s

docker:
  volume_label: "volguard.backup=true"
  include:
    - pgdata
    - redis
  exclude:
    - scratch
  image: "busybox:1.36"

metrics:
  listen_addr: ":9090"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, []string{"/mnt/backup1", "/mnt/backup2"}, cfg.Destinations)
	assert.Equal(t, "0 3 * * *", cfg.Schedule.Cron)
	assert.True(t, cfg.Retention.Enabled)
	assert.Equal(t, 168*time.Hour, cfg.Retention.MaxAge)
	assert.Equal(t, 3, cfg.Retention.MinCount)
	require.NotNil(t, cfg.Notify)
	assert.Equal(t, "https://hooks.example.com/T123", cfg.Notify.Endpoint)
	assert.Equal(t, 10*time.Second, cfg.Notify.Timeout)
	assert.Equal(t, "volguard.backup=true", cfg.Docker.VolumeLabel)
	assert.Equal(t, []string{"pgdata", "redis"}, cfg.Docker.Include)
	assert.Equal(t, []string{"scratch"}, cfg.Docker.Exclude)
	assert.Equal(t, "busybox:1.36", cfg.Docker.Image)
	require.NotNil(t, cfg.Metrics)
	assert.Equal(t, ":9090", cfg.Metrics.ListenAddr)
}

func TestParser_LoadReader_IntervalMilliseconds(t *testing.T) {
	yaml := `
destinations:
  - /mnt/backup
schedule:
  interval_ms: 90000
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Schedule.Interval)
}

func TestParser_LoadReader_CommaSeparatedDestinations(t *testing.T) {
	yaml := `
destinations: "/mnt/backup1, /mnt/backup2"
schedule:
  interval: 1h
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, []string{"/mnt/backup1", "/mnt/backup2"}, cfg.Destinations)
}

func TestParser_EnvOnly(t *testing.T) {
	t.Setenv("VOLGUARD_DESTINATIONS", "/mnt/backup1,/mnt/backup2")
	t.Setenv("VOLGUARD_SCHEDULE_INTERVAL_MS", "300000")
	t.Setenv("VOLGUARD_RETENTION_ENABLED", "true")
	t.Setenv("VOLGUARD_RETENTION_MAX_AGE", "72h")
	t.Setenv("VOLGUARD_RETENTION_MIN_COUNT", "2")
	t.Setenv("VOLGUARD_NOTIFY_ENDPOINT", "https://hooks.example.com/T123")

	parser := NewParser()
	cfg, err := parser.LoadEnv()

	require.NoError(t, err)
	assert.Equal(t, []string{"/mnt/backup1", "/mnt/backup2"}, cfg.Destinations)
	assert.Equal(t, 5*time.Minute, cfg.Schedule.Interval)
	assert.True(t, cfg.Retention.Enabled)
	assert.Equal(t, 72*time.Hour, cfg.Retention.MaxAge)
	assert.Equal(t, 2, cfg.Retention.MinCount)
	require.NotNil(t, cfg.Notify)
	assert.Equal(t, "https://hooks.example.com/T123", cfg.Notify.Endpoint)
}

func TestParser_NotifyEndpointEnvExpansion(t *testing.T) {
	t.Setenv("HOOK_URL", "https://hooks.example.com/secret")

	yaml := `
destinations:
  - /mnt/backup
schedule:
  interval: 1h
notify:
  endpoint: "${HOOK_URL}"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	require.NotNil(t, cfg.Notify)
	assert.Equal(t, "https://hooks.example.com/secret", cfg.Notify.Endpoint)
}

func TestParser_LoadReader_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing destinations",
			yaml:    "schedule:\n  interval: 1h\n",
			wantErr: "destinations is required",
		},
		{
			name:    "missing schedule",
			yaml:    "destinations:\n  - /mnt/backup\n",
			wantErr: "schedule.interval or schedule.cron is required",
		},
		{
			name:    "bad cron",
			yaml:    "destinations:\n  - /mnt/backup\nschedule:\n  cron: \"often\"\n",
			wantErr: "schedule.cron is invalid",
		},
		{
			name:    "negative min count",
			yaml:    "destinations:\n  - /mnt/backup\nschedule:\n  interval: 1h\nretention:\n  enabled: true\n  max_age: 24h\n  min_count: -1\n",
			wantErr: "retention.min_count",
		},
		{
			name:    "retention enabled without max age",
			yaml:    "destinations:\n  - /mnt/backup\nschedule:\n  interval: 1h\nretention:\n  enabled: true\n",
			wantErr: "retention.max_age",
		},
		{
			name:    "bad notify endpoint",
			yaml:    "destinations:\n  - /mnt/backup\nschedule:\n  interval: 1h\nnotify:\n  endpoint: \"not a url\"\n",
			wantErr: "notify.endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser()
			_, err := parser.LoadReader(tt.yaml)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_NilConfig(t *testing.T) {
	err := Validate(nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration is nil")
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := &models.Config{
		Destinations: []string{"/mnt/backup"},
		Schedule:     models.ScheduleConfig{Interval: time.Hour},
		Retention:    models.RetentionPolicy{Enabled: true, MaxAge: 24 * time.Hour, MinCount: 1},
	}

	assert.NoError(t, Validate(cfg))
}
