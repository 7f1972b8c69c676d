// Package pruner deletes expired volume archives under a retention policy.
package pruner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbruckner/volguard/internal/models"
)

// Service defines the interface for retention pruning.
type Service interface {
	Prune(destDir string, policy models.RetentionPolicy, now time.Time) []models.PruneEvent
}

// Impl implements the Service interface against the local filesystem.
type Impl struct {
	logger zerolog.Logger
}

// New creates a new pruner service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger}
}

// Prune deletes archives in destDir older than policy.MaxAge, oldest first,
// while always retaining the policy.MinCount most recent archives. A missing
// directory yields no candidates and no events. Each deletion failure is
// recorded as its own event and does not stop the remaining deletions.
func (s *Impl) Prune(destDir string, policy models.RetentionPolicy, now time.Time) []models.PruneEvent {
	candidates := s.scan(destDir)
	if len(candidates) == 0 {
		return nil
	}

	// Oldest first.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	var expired []models.ArchiveFile
	for _, f := range candidates {
		if now.Sub(f.CreatedAt) > policy.MaxAge {
			expired = append(expired, f)
		}
	}

	// The deletion cap is computed from the total candidate count so the
	// MinCount most recent archives survive regardless of age. The cap is
	// applied to the expired subset; archives within MaxAge are never
	// deleted even when more than the cap would allow.
	limit := len(candidates) - policy.MinCount
	if limit < 0 {
		limit = 0
	}
	if len(expired) > limit {
		expired = expired[:limit]
	}

	var events []models.PruneEvent
	for _, f := range expired {
		events = append(events, s.remove(f))
	}

	s.logger.Info().
		Str("destination", destDir).
		Int("candidates", len(candidates)).
		Int("deleted", countDeleted(events)).
		Msg("retention pruning completed")

	return events
}

// scan enumerates archive files in destDir. A missing directory is treated
// as an empty enumeration.
func (s *Impl) scan(destDir string) []models.ArchiveFile {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Err(err).Str("destination", destDir).Msg("failed to read destination")
		}
		return nil
	}

	var files []models.ArchiveFile
	for _, entry := range entries {
		if entry.IsDir() || !models.IsArchiveFileName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, models.ArchiveFile{
			Path:      filepath.Join(destDir, entry.Name()),
			Volume:    models.VolumeFromArchiveName(entry.Name()),
			CreatedAt: info.ModTime(),
			Size:      info.Size(),
		})
	}
	return files
}

func (s *Impl) remove(f models.ArchiveFile) models.PruneEvent {
	err := os.Remove(f.Path)
	if err == nil {
		s.logger.Debug().Str("file", f.Path).Msg("archive deleted")
		return models.PruneEvent{Path: f.Path, Cause: models.PruneDeleted}
	}

	event := models.PruneEvent{Path: f.Path, Error: err}
	switch {
	case errors.Is(err, fs.ErrPermission):
		event.Cause = models.PrunePermissionDenied
	case errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.ETXTBSY):
		event.Cause = models.PruneFileBusy
	default:
		event.Cause = models.PruneIOError
	}

	s.logger.Warn().Err(err).Str("file", f.Path).Msg("failed to delete archive")
	return event
}

func countDeleted(events []models.PruneEvent) int {
	n := 0
	for _, e := range events {
		if e.Cause == models.PruneDeleted {
			n++
		}
	}
	return n
}
