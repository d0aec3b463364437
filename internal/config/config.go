// Package config handles project discovery and configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// TemplateFileName is the base template at the project root.
const TemplateFileName = "stevedore.yml"

// Config holds the stevedore project configuration.
type Config struct {
	// Root is the project root directory (contains stevedore.yml).
	Root string

	// TemplateFile is the path to the base template.
	TemplateFile string
}

// FindRoot searches upward from the current directory to find the project
// root, identified by the presence of stevedore.yml.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return FindRootFrom(dir)
}

// FindRootFrom searches upward from dir for the project root.
func FindRootFrom(dir string) (string, error) {
	for {
		candidate := filepath.Join(dir, TemplateFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("project root not found (no %s in this or any parent directory)", TemplateFileName)
}

// Load finds the project root and returns a Config.
func Load() (*Config, error) {
	root, err := FindRoot()
	if err != nil {
		return nil, err
	}
	return ForRoot(root), nil
}

// ForRoot returns a Config anchored at the given root directory.
func ForRoot(root string) *Config {
	return &Config{
		Root:         root,
		TemplateFile: filepath.Join(root, TemplateFileName),
	}
}

// OverlaysDir returns the path to the overlays directory.
func (c *Config) OverlaysDir() string {
	return filepath.Join(c.Root, "overlays")
}

// RenderedDir returns the path to the rendered output directory.
func (c *Config) RenderedDir() string {
	return filepath.Join(c.Root, "rendered")
}

// StateDir returns the path to the tool state directory.
func (c *Config) StateDir() string {
	return filepath.Join(c.Root, ".stevedore")
}

// SnapshotsDir returns the path to the snapshots directory.
func (c *Config) SnapshotsDir() string {
	return filepath.Join(c.StateDir(), "snapshots")
}

// DefaultEnvFile returns the path to the default environment source, or an
// empty string if the project has none.
func (c *Config) DefaultEnvFile() string {
	path := filepath.Join(c.Root, ".env")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// Overlay resolves an overlay name ("prod") or path to a file path.
func (c *Config) Overlay(name string) string {
	if filepath.Ext(name) != "" {
		return name
	}
	return filepath.Join(c.OverlaysDir(), name+".yml")
}
