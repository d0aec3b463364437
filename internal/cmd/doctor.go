package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harborline/stevedore/internal/config"
	"github.com/harborline/stevedore/internal/descriptor"
	"github.com/harborline/stevedore/internal/docker"
	"github.com/harborline/stevedore/internal/envfile"
	"github.com/harborline/stevedore/internal/preflight"
	"github.com/harborline/stevedore/internal/ui"
)

const doctorCheckTimeout = 10 * time.Second

// doctorCmd represents the doctor command.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check binaries, docker daemon, ports, and build contexts",
	Long: `Run pre-flight checks against the current project.

Checks performed:
  1. Project template parses
  2. Required and optional binaries
  3. Build contexts exist on disk
  4. No two services publish the same host port
  5. Git worktree is clean
  6. Docker daemon is reachable and external volumes exist

Errors mean render output would be undeployable; warnings are advisory.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var errors, warnings int

	// Template
	ui.Blue.Println("--- Template ---")
	d, err := descriptor.LoadFile(cfg.TemplateFile)
	if err != nil {
		ui.Red.Printf("  x %v\n", err)
		errors++
	} else {
		ui.Green.Printf("  * %s: %d service(s), %d volume(s)\n", config.TemplateFileName, len(d.Services), len(d.Volumes))
	}
	fmt.Println()

	// Binaries
	ui.Blue.Println("--- Binaries ---")
	binWarnings, binErrors := preflight.CheckBinaries()
	for _, msg := range binErrors {
		ui.Red.Printf("  x %s\n", msg)
		errors++
	}
	for _, msg := range binWarnings {
		ui.Yellow.Printf("  ! %s\n", msg)
		warnings++
	}
	if len(binErrors) == 0 && len(binWarnings) == 0 {
		ui.Green.Println("  * All binaries present")
	}
	fmt.Println()

	if d != nil {
		// Build contexts
		ui.Blue.Println("--- Build Contexts ---")
		ctxWarnings := preflight.CheckBuildContexts(cfg.Root, d)
		for _, msg := range ctxWarnings {
			ui.Yellow.Printf("  ! %s\n", msg)
			warnings++
		}
		if len(ctxWarnings) == 0 {
			ui.Green.Println("  * All build contexts exist")
		}
		fmt.Println()

		// Host ports
		ui.Blue.Println("--- Host Ports ---")
		portWarnings := preflight.CheckHostPortCollisions(resolveForDoctor(cfg, d))
		for _, msg := range portWarnings {
			ui.Red.Printf("  x %s\n", msg)
			errors++
		}
		if len(portWarnings) == 0 {
			ui.Green.Println("  * No host port collisions")
		}
		fmt.Println()
	}

	// Git worktree
	ui.Blue.Println("--- Git Worktree ---")
	status, err := preflight.CheckWorktree(cfg.Root)
	switch {
	case err != nil:
		ui.Yellow.Printf("  ! %v\n", err)
		warnings++
	case !status.Tracked:
		ui.Yellow.Println("  ! Project is not in a git repository")
		warnings++
	case !status.Clean:
		ui.Yellow.Println("  ! Worktree has uncommitted changes; rendered output may not match git")
		warnings++
	default:
		ui.Green.Println("  * Worktree is clean")
	}
	fmt.Println()

	// Docker daemon
	ui.Blue.Println("--- Docker ---")
	errors += checkDocker(cmd.Context(), d)
	fmt.Println()

	// Summary
	ui.Blue.Println("--- Summary ---")
	if errors > 0 {
		ui.Red.Printf("  Errors: %d\n", errors)
	}
	if warnings > 0 {
		ui.Yellow.Printf("  Warnings: %d\n", warnings)
	}
	if errors == 0 && warnings == 0 {
		ui.Green.Println("  * All checks passed")
	}

	if errors > 0 {
		return fmt.Errorf("%d check(s) failed", errors)
	}
	return nil
}

// resolveForDoctor substitutes variables from the project's default env file
// so port specs are concrete. Unresolved placeholders are fine here; specs
// that still fail to parse are skipped by the collision check.
func resolveForDoctor(cfg *config.Config, d *descriptor.Descriptor) *descriptor.Descriptor {
	vars := envfile.Source{}
	if def := cfg.DefaultEnvFile(); def != "" {
		if src, err := envfile.Load(def); err == nil {
			vars = src
		}
	}

	resolved, _, err := descriptor.Resolve(d, vars)
	if err != nil {
		return d
	}
	return resolved
}

func checkDocker(ctx context.Context, d *descriptor.Descriptor) int {
	client, err := docker.NewClient()
	if err != nil {
		ui.Red.Printf("  x Docker client: %v\n", err)
		return 1
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, doctorCheckTimeout)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		ui.Red.Printf("  x Daemon unreachable: %v\n", err)
		return 1
	}
	ui.Green.Println("  * Daemon is reachable")

	if d == nil {
		return 0
	}

	var external []string
	for _, vol := range d.Volumes {
		if vol.External {
			external = append(external, vol.Name)
		}
	}
	if len(external) == 0 {
		return 0
	}

	missing, err := client.MissingVolumes(ctx, external)
	if err != nil {
		ui.Red.Printf("  x Volume check: %v\n", err)
		return 1
	}
	if len(missing) > 0 {
		errors := 0
		for _, name := range missing {
			ui.Red.Printf("  x External volume missing: %s\n", name)
			errors++
		}
		return errors
	}

	ui.Green.Println("  * All external volumes exist")
	return 0
}
