package docker

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/system"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
)

// Client wraps the Docker SDK client.
type Client struct {
	api EngineAPI
}

// NewClient creates a new Docker client connection from the environment.
func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	return &Client{api: cli}, nil
}

// NewClientWithAPI creates a Docker client with a custom API implementation.
// This is primarily used for testing with mock implementations.
func NewClientWithAPI(api EngineAPI) *Client {
	return &Client{api: api}
}

// Ping tests the connection to the Docker daemon.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := c.api.Ping(ctx); err != nil {
		return fmt.Errorf("ping docker: %w", err)
	}

	return nil
}

// Info returns system-wide information about the Docker daemon.
func (c *Client) Info(ctx context.Context) (system.Info, error) {
	return c.api.Info(ctx)
}

// MissingVolumes returns the subset of names not present on the daemon.
// Used to flag external volumes that must be created before deployment.
func (c *Client) MissingVolumes(ctx context.Context, names []string) ([]string, error) {
	resp, err := c.api.VolumeList(ctx, volume.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list volumes: %w", err)
	}

	existing := make(map[string]bool, len(resp.Volumes))
	for _, vol := range resp.Volumes {
		existing[vol.Name] = true
	}

	var missing []string
	for _, name := range names {
		if !existing[name] {
			missing = append(missing, name)
		}
	}

	return missing, nil
}

// Close closes the Docker client connection.
func (c *Client) Close() error {
	if c.api != nil {
		return c.api.Close()
	}
	return nil
}
