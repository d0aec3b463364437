package docker

import (
	"context"
	"errors"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/system"
	"github.com/docker/docker/api/types/volume"
)

var (
	errMockPing = errors.New("mock: ping failed")
	errMockList = errors.New("mock: volume list failed")
)

// MockEngineAPI is a mock implementation of EngineAPI for testing.
type MockEngineAPI struct {
	PingFunc       func(ctx context.Context) (types.Ping, error)
	InfoFunc       func(ctx context.Context) (system.Info, error)
	VolumeListFunc func(ctx context.Context, options volume.ListOptions) (volume.ListResponse, error)
	CloseFunc      func() error

	PingCalls       int
	InfoCalls       int
	VolumeListCalls int
	CloseCalls      int
}

func (m *MockEngineAPI) Ping(ctx context.Context) (types.Ping, error) {
	m.PingCalls++
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return types.Ping{APIVersion: "1.45"}, nil
}

func (m *MockEngineAPI) Info(ctx context.Context) (system.Info, error) {
	m.InfoCalls++
	if m.InfoFunc != nil {
		return m.InfoFunc(ctx)
	}
	return system.Info{}, nil
}

func (m *MockEngineAPI) VolumeList(ctx context.Context, options volume.ListOptions) (volume.ListResponse, error) {
	m.VolumeListCalls++
	if m.VolumeListFunc != nil {
		return m.VolumeListFunc(ctx, options)
	}
	return volume.ListResponse{}, nil
}

func (m *MockEngineAPI) Close() error {
	m.CloseCalls++
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// makeVolumeList builds a ListResponse holding the given volume names.
func makeVolumeList(names ...string) volume.ListResponse {
	resp := volume.ListResponse{}
	for _, name := range names {
		resp.Volumes = append(resp.Volumes, &volume.Volume{Name: name, Driver: "local"})
	}
	return resp
}

var _ EngineAPI = (*MockEngineAPI)(nil)
