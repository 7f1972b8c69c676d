// Package docker provides discovery of local container-storage volumes.
package docker

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/rs/zerolog"

	"github.com/tbruckner/volguard/internal/models"
)

// Service defines the interface for volume discovery.
type Service interface {
	List(ctx context.Context, cfg models.DockerConfig) ([]string, error)
}

// VolumeAPIClient is the subset of the Docker API client used for discovery.
type VolumeAPIClient interface {
	VolumeList(ctx context.Context, options volume.ListOptions) (volume.ListResponse, error)
}

// Impl implements the Service interface using the Docker API.
type Impl struct {
	client VolumeAPIClient
	logger zerolog.Logger
}

// New creates a new volume discovery service connected to the local daemon.
func New(logger zerolog.Logger) (*Impl, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	return &Impl{client: cli, logger: logger}, nil
}

// NewWithClient creates a new volume discovery service with a custom client (for testing).
func NewWithClient(logger zerolog.Logger, cli VolumeAPIClient) *Impl {
	return &Impl{client: cli, logger: logger}
}

// List returns the names of locally available volumes, filtered by the
// configured label and include/exclude lists, in sorted order. An empty
// result is valid and not an error.
func (s *Impl) List(ctx context.Context, cfg models.DockerConfig) ([]string, error) {
	opts := volume.ListOptions{}
	if cfg.VolumeLabel != "" {
		opts.Filters = filters.NewArgs(filters.Arg("label", cfg.VolumeLabel))
	}

	resp, err := s.client.VolumeList(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list volumes: %w", err)
	}

	var names []string
	for _, vol := range resp.Volumes {
		if vol == nil {
			continue
		}
		if len(cfg.Include) > 0 && !slices.Contains(cfg.Include, vol.Name) {
			continue
		}
		if slices.Contains(cfg.Exclude, vol.Name) {
			continue
		}
		names = append(names, vol.Name)
	}
	sort.Strings(names)

	s.logger.Debug().Int("count", len(names)).Msg("volumes discovered")
	return names, nil
}
