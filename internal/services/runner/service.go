// Package runner orchestrates one backup cycle: volume discovery, per-volume
// archiving into every destination, and retention pruning.
package runner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbruckner/volguard/internal/metrics"
	"github.com/tbruckner/volguard/internal/models"
	"github.com/tbruckner/volguard/internal/services/archiver"
	"github.com/tbruckner/volguard/internal/services/docker"
	"github.com/tbruckner/volguard/internal/services/pruner"
)

// Service defines the interface for running backup cycles.
type Service interface {
	RunCycle(ctx context.Context, cfg models.Config) *models.CycleReport
}

// Impl implements the runner Service interface.
type Impl struct {
	listerSvc   docker.Service
	archiverSvc archiver.Service
	prunerSvc   pruner.Service
	registry    *metrics.Registry
	logger      zerolog.Logger
	now         func() time.Time
}

// New creates a new cycle runner wired to the local Docker daemon.
func New(logger zerolog.Logger, registry *metrics.Registry) (*Impl, error) {
	listerSvc, err := docker.New(logger)
	if err != nil {
		return nil, err
	}
	archiverSvc, err := archiver.New(logger)
	if err != nil {
		return nil, err
	}

	return &Impl{
		listerSvc:   listerSvc,
		archiverSvc: archiverSvc,
		prunerSvc:   pruner.New(logger),
		registry:    registry,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// NewWithServices creates a new cycle runner with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	listerSvc docker.Service,
	archiverSvc archiver.Service,
	prunerSvc pruner.Service,
	registry *metrics.Registry,
	now func() time.Time,
) *Impl {
	if now == nil {
		now = time.Now
	}
	return &Impl{
		listerSvc:   listerSvc,
		archiverSvc: archiverSvc,
		prunerSvc:   prunerSvc,
		registry:    registry,
		logger:      logger,
		now:         now,
	}
}

// RunCycle executes one full backup cycle and returns the accumulated report.
// Every unit of work captures its own outcome as a report line; a failure in
// one volume, destination, or file never prevents unrelated work from
// completing. Only a failure of volume discovery itself ends the cycle early.
func (s *Impl) RunCycle(ctx context.Context, cfg models.Config) *models.CycleReport {
	report := models.NewCycleReport()

	s.logger.Info().
		Int("destinations", len(cfg.Destinations)).
		Bool("retention", cfg.Retention.Enabled).
		Msg("starting backup cycle")

	volumes, err := s.listerSvc.List(ctx, cfg.Docker)
	if err != nil {
		s.logger.Error().Err(err).Msg("volume discovery failed")
		report.Append(fmt.Sprintf("ERROR: volume discovery failed: %v", err))
		return report
	}

	if len(volumes) == 0 {
		s.logger.Info().Msg("no volumes to back up")
		report.Append("No volumes found to back up.")
		return report
	}

	// Destinations are re-validated every cycle so a transiently unmounted
	// directory heals itself on the next run.
	var valid []string
	for _, dest := range cfg.Destinations {
		if info, err := os.Stat(dest); err != nil || !info.IsDir() {
			s.logger.Warn().Str("destination", dest).Msg("destination missing, excluded this cycle")
			report.Append(fmt.Sprintf("WARNING: destination %s does not exist, excluded from this cycle", dest))
			continue
		}
		valid = append(valid, dest)
	}

	if len(valid) == 0 {
		report.Append("No valid destinations remain, no backups attempted.")
	} else {
		for _, vol := range volumes {
			for _, dest := range valid {
				report.Append(s.backupPair(ctx, cfg, vol, dest))
			}
		}
	}

	// Retention runs over every configured destination, including ones that
	// failed validation above: a still-missing directory simply yields zero
	// candidates there.
	if cfg.Retention.Enabled {
		for _, dest := range cfg.Destinations {
			events := s.prunerSvc.Prune(dest, cfg.Retention, s.now())
			report.AppendAll(s.renderPruneEvents(events))
		}
	}

	s.logger.Info().Int("events", report.Len()).Msg("backup cycle completed")
	return report
}

// backupPair archives one volume into one destination and returns exactly one
// report line describing the outcome.
func (s *Impl) backupPair(ctx context.Context, cfg models.Config, vol, dest string) string {
	result, err := s.archiverSvc.Archive(ctx, cfg.Docker, vol, dest)
	if err != nil {
		s.recordArchive("failed")
		return fmt.Sprintf("ERROR: backing up volume %s to %s failed: %v", vol, dest, err)
	}
	if result.Error != nil {
		s.recordArchive("failed")
		return fmt.Sprintf("ERROR: backing up volume %s to %s failed: %v", vol, dest, result.Error)
	}

	// The archiver only reports that the helper ran; the postconditions on
	// the file itself are checked here.
	info, err := os.Stat(result.Path)
	if err != nil {
		s.recordArchive("failed")
		return fmt.Sprintf("ERROR: archive for volume %s was not created at %s", vol, result.Path)
	}
	if info.Size() == 0 {
		s.recordArchive("empty")
		return fmt.Sprintf("WARNING: archive for volume %s at %s was created but is empty", vol, result.Path)
	}

	s.recordArchive("success")
	return fmt.Sprintf("Backed up volume %s to %s (%s)", vol, result.Path, formatBytes(info.Size()))
}

func (s *Impl) renderPruneEvents(events []models.PruneEvent) []string {
	var lines []string
	for _, ev := range events {
		switch ev.Cause {
		case models.PruneDeleted:
			s.recordPrune(true)
			lines = append(lines, fmt.Sprintf("Deleted expired archive %s", ev.Path))
		case models.PrunePermissionDenied:
			s.recordPrune(false)
			lines = append(lines, fmt.Sprintf("ERROR: permission denied deleting expired archive %s", ev.Path))
		case models.PruneFileBusy:
			s.recordPrune(false)
			lines = append(lines, fmt.Sprintf("ERROR: expired archive %s is in use and could not be deleted", ev.Path))
		default:
			s.recordPrune(false)
			lines = append(lines, fmt.Sprintf("ERROR: deleting expired archive %s failed: %v", ev.Path, ev.Error))
		}
	}
	return lines
}

func (s *Impl) recordArchive(status string) {
	if s.registry != nil {
		s.registry.RecordArchive(status)
	}
}

func (s *Impl) recordPrune(deleted bool) {
	if s.registry == nil {
		return
	}
	if deleted {
		s.registry.RecordPruneDeletion()
	} else {
		s.registry.RecordPruneFailure()
	}
}

// formatBytes formats bytes into human-readable form.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
