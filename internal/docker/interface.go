// Package docker provides a thin Docker Engine client for the doctor command.
package docker

import (
	"context"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/system"
	"github.com/docker/docker/api/types/volume"
)

// EngineAPI defines the Docker client operations stevedore uses.
// The interface enables mocking without a running Docker daemon.
type EngineAPI interface {
	// Ping tests the connection to the Docker daemon.
	Ping(ctx context.Context) (types.Ping, error)

	// Info returns system-wide information about the Docker daemon.
	Info(ctx context.Context) (system.Info, error)

	// VolumeList returns the volumes known to the daemon.
	VolumeList(ctx context.Context, options volume.ListOptions) (volume.ListResponse, error)

	// Close closes the client connection.
	Close() error
}
