// Package preflight provides environment checks for the doctor command.
package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/docker/go-connections/nat"
	"github.com/go-git/go-git/v5"

	"github.com/harborline/stevedore/internal/descriptor"
)

// BinaryCheck represents a binary dependency and its purpose.
type BinaryCheck struct {
	Name        string
	Required    bool   // false = warning only
	InstallHint string // e.g., "brew install age" or "https://..."
}

// requiredBinaries must be present for rendered descriptors to be usable.
var requiredBinaries = []BinaryCheck{
	{
		Name:        "docker",
		Required:    true,
		InstallHint: "Install Docker: https://docs.docker.com/get-docker/",
	},
}

// optionalBinaries enhance the workflow but nothing breaks without them.
// SOPS decryption runs in-process, so only the age key tooling is listed.
var optionalBinaries = []BinaryCheck{
	{
		Name:        "age",
		Required:    false,
		InstallHint: "Install age: brew install age",
	},
	{
		Name:        "git",
		Required:    false,
		InstallHint: "Install git: https://git-scm.com/downloads",
	},
}

// CheckRequiredBinaries returns missing required binaries.
func CheckRequiredBinaries() []BinaryCheck {
	var missing []BinaryCheck

	for _, bin := range requiredBinaries {
		if _, err := exec.LookPath(bin.Name); err != nil {
			missing = append(missing, bin)
		}
	}

	return missing
}

// CheckOptionalBinaries returns missing optional binaries.
func CheckOptionalBinaries() []BinaryCheck {
	var missing []BinaryCheck

	for _, bin := range optionalBinaries {
		if _, err := exec.LookPath(bin.Name); err != nil {
			missing = append(missing, bin)
		}
	}

	return missing
}

// CheckBinaries performs the binary checks and splits the results into
// warnings (optional) and errors (required).
func CheckBinaries() (warnings []string, errors []string) {
	for _, bin := range CheckRequiredBinaries() {
		errors = append(errors, bin.Name+": "+bin.InstallHint)
	}
	for _, bin := range CheckOptionalBinaries() {
		warnings = append(warnings, bin.Name+": "+bin.InstallHint)
	}

	return warnings, errors
}

// IsBinaryAvailable checks if a specific binary is available in PATH.
func IsBinaryAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// CheckBuildContexts returns a warning for every service whose build context
// does not exist on disk, relative to the project root.
func CheckBuildContexts(projectRoot string, d *descriptor.Descriptor) []string {
	var warnings []string

	for _, svc := range d.Services {
		if svc.Build == nil {
			continue
		}

		ctx := svc.Build.Context
		if !filepath.IsAbs(ctx) {
			ctx = filepath.Join(projectRoot, ctx)
		}

		info, err := os.Stat(ctx)
		if err != nil || !info.IsDir() {
			warnings = append(warnings, fmt.Sprintf("service %s: build context %s does not exist", svc.Name, svc.Build.Context))
		}
	}

	return warnings
}

// CheckHostPortCollisions returns a warning for every host port published by
// more than one service. Port specs that fail to parse are skipped; the
// schema validator reports those separately.
func CheckHostPortCollisions(d *descriptor.Descriptor) []string {
	owners := make(map[string][]string)

	for _, svc := range d.Services {
		seen := make(map[string]bool)
		for _, spec := range svc.Ports {
			mappings, err := nat.ParsePortSpec(spec)
			if err != nil {
				continue
			}
			for _, m := range mappings {
				hostPort := m.Binding.HostPort
				if hostPort == "" || seen[hostPort] {
					continue
				}
				seen[hostPort] = true
				owners[hostPort] = append(owners[hostPort], svc.Name)
			}
		}
	}

	ports := make([]string, 0, len(owners))
	for port, services := range owners {
		if len(services) > 1 {
			ports = append(ports, port)
		}
	}
	sort.Strings(ports)

	var warnings []string
	for _, port := range ports {
		warnings = append(warnings, fmt.Sprintf("host port %s published by multiple services: %s", port, strings.Join(owners[port], ", ")))
	}

	return warnings
}

// WorktreeStatus describes the git state of the project root.
type WorktreeStatus struct {
	// Tracked is false when the project is not inside a git repository.
	Tracked bool
	// Clean is true when the worktree has no uncommitted changes.
	Clean bool
}

// CheckWorktree inspects the git worktree containing the project root.
// A dirty worktree means rendered output may not match committed templates.
func CheckWorktree(projectRoot string) (WorktreeStatus, error) {
	repo, err := git.PlainOpenWithOptions(projectRoot, &git.PlainOpenOptions{DetectDotGit: true})
	if err == git.ErrRepositoryNotExists {
		return WorktreeStatus{}, nil
	}
	if err != nil {
		return WorktreeStatus{}, fmt.Errorf("open repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return WorktreeStatus{}, fmt.Errorf("open worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return WorktreeStatus{}, fmt.Errorf("worktree status: %w", err)
	}

	return WorktreeStatus{Tracked: true, Clean: status.IsClean()}, nil
}
