package models

import (
	"fmt"
	"regexp"
	"time"
)

// ArchiveTimeLayout is the timestamp layout embedded in archive file names.
const ArchiveTimeLayout = "2006-01-02_15-04-05"

// archiveNamePattern matches archive files produced by the archiver:
// {volume}_{yyyy-MM-dd_HH-mm-ss}_{token}.tar. Volume names may themselves
// contain underscores; the fixed-width timestamp keeps the match unambiguous.
var archiveNamePattern = regexp.MustCompile(`^(.+)_(\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2})_([0-9a-f]{8})\.tar$`)

// ArchiveFileName builds the on-disk name for an archive of the given volume.
// The timestamp is for human readability and collision avoidance only; age
// computations use filesystem metadata.
func ArchiveFileName(volume string, created time.Time, token string) string {
	return fmt.Sprintf("%s_%s_%s.tar", volume, created.Format(ArchiveTimeLayout), token)
}

// IsArchiveFileName reports whether name matches the archive naming scheme.
func IsArchiveFileName(name string) bool {
	return archiveNamePattern.MatchString(name)
}

// VolumeFromArchiveName extracts the volume identifier from an archive file
// name, or "" if the name does not match the scheme.
func VolumeFromArchiveName(name string) string {
	m := archiveNamePattern.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}

// ArchiveFile describes one backup archive found in a destination.
type ArchiveFile struct {
	Path      string
	Volume    string
	CreatedAt time.Time // from filesystem metadata
	Size      int64
}

// ArchiveResult holds the result of one volume archive operation.
type ArchiveResult struct {
	Path     string
	Size     int64
	Duration time.Duration
	Error    error
}

// PruneCause classifies why a deletion failed, for message clarity only.
type PruneCause int

const (
	PruneDeleted PruneCause = iota
	PrunePermissionDenied
	PruneFileBusy
	PruneIOError
)

// PruneEvent records one deletion attempt during retention pruning.
type PruneEvent struct {
	Path  string
	Cause PruneCause
	Error error // nil when Cause is PruneDeleted
}

// NotifyResult holds the result of a notification delivery attempt.
type NotifyResult struct {
	Sent  bool
	Error error
}
