// Package archiver creates tar archives of container volumes using a
// short-lived helper container.
package archiver

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/google/uuid"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/rs/zerolog"

	"github.com/tbruckner/volguard/internal/models"
)

const (
	sourceMount = "/backup/source"
	targetMount = "/backup/target"
)

// Service defines the interface for creating volume archives.
type Service interface {
	Archive(ctx context.Context, cfg models.DockerConfig, volumeName, destDir string) (*models.ArchiveResult, error)
}

// ContainerAPIClient is the subset of the Docker API client used to run the
// helper container.
type ContainerAPIClient interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
}

// Impl implements the Service interface by running a tar command in a
// container that mounts the volume read-only next to the destination.
type Impl struct {
	client ContainerAPIClient
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a new archiver connected to the local Docker daemon.
func New(logger zerolog.Logger) (*Impl, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	return &Impl{client: cli, logger: logger, now: time.Now}, nil
}

// NewWithClient creates a new archiver with a custom client (for testing).
func NewWithClient(logger zerolog.Logger, cli ContainerAPIClient, now func() time.Time) *Impl {
	if now == nil {
		now = time.Now
	}
	return &Impl{client: cli, logger: logger, now: now}
}

// Archive writes one tar archive of volumeName into destDir and returns the
// path it wrote. The caller is responsible for verifying the file afterwards;
// Archive only reports whether the helper container ran to completion.
func (s *Impl) Archive(ctx context.Context, cfg models.DockerConfig, volumeName, destDir string) (*models.ArchiveResult, error) {
	start := s.now()
	token := uuid.NewString()[:8]
	fileName := models.ArchiveFileName(volumeName, start, token)
	result := &models.ArchiveResult{Path: filepath.Join(destDir, fileName)}

	s.logger.Info().
		Str("volume", volumeName).
		Str("destination", destDir).
		Str("file", fileName).
		Msg("creating volume archive")

	containerCfg := &container.Config{
		Image: cfg.Image,
		Cmd:   []string{"tar", "cf", path.Join(targetMount, fileName), "-C", sourceMount, "."},
		Labels: map[string]string{
			"volguard.volume": volumeName,
		},
	}
	hostCfg := &container.HostConfig{
		Binds: []string{
			volumeName + ":" + sourceMount + ":ro",
			destDir + ":" + targetMount,
		},
	}

	created, err := s.client.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, "")
	if cerrdefs.IsNotFound(err) {
		if pullErr := s.pullImage(ctx, cfg.Image); pullErr != nil {
			result.Error = pullErr
			return result, nil
		}
		created, err = s.client.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, "")
	}
	if err != nil {
		result.Error = fmt.Errorf("failed to create archive container: %w", err)
		return result, nil
	}

	defer func() {
		if rmErr := s.client.ContainerRemove(context.WithoutCancel(ctx), created.ID, container.RemoveOptions{Force: true}); rmErr != nil {
			s.logger.Warn().Err(rmErr).Str("container_id", created.ID).Msg("failed to remove archive container")
		}
	}()

	if err := s.client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		result.Error = fmt.Errorf("failed to start archive container: %w", err)
		return result, nil
	}

	waitCh, errCh := s.client.ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	select {
	case status := <-waitCh:
		if status.Error != nil {
			result.Error = fmt.Errorf("archive container failed: %s", status.Error.Message)
			return result, nil
		}
		if status.StatusCode != 0 {
			result.Error = fmt.Errorf("archive container exited with status %d", status.StatusCode)
			return result, nil
		}
	case err := <-errCh:
		result.Error = fmt.Errorf("waiting for archive container: %w", err)
		return result, nil
	case <-ctx.Done():
		result.Error = ctx.Err()
		return result, nil
	}

	result.Duration = s.now().Sub(start)
	s.logger.Info().
		Str("volume", volumeName).
		Str("file", fileName).
		Dur("duration", result.Duration).
		Msg("volume archive created")

	return result, nil
}

func (s *Impl) pullImage(ctx context.Context, ref string) error {
	s.logger.Info().Str("image", ref).Msg("pulling archive helper image")

	rc, err := s.client.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	defer func() { _ = rc.Close() }()

	// The pull is complete once the progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}

	return nil
}
