// Package cmd provides the CLI commands for stevedore.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "stevedore",
	Short: "Render and validate Docker Compose deployment descriptors",
	Long: `stevedore - deployment descriptors without the hand-editing

Templates live in git, secrets live in env files, and rendered
docker-compose.yml output is deterministic byte for byte.

SETUP
  init                  Scaffold a new project (stevedore.yml, overlays, .env)

RENDERING
  render [template]     Resolve variables and emit the final descriptor
    --env-file, -e      Environment source (repeatable, later wins)
    --overlay, -f       Overlay to merge on top of the base template
    --output, -o        Write to a file instead of stdout
    --dry-run, -n       Print to stdout even when --output is set
  lint [template]       Parse, resolve, and validate without emitting

DIAGNOSTICS
  doctor                Check binaries, docker daemon, ports, and build contexts

SNAPSHOTS
  snapshots list        List snapshots of the rendered directory
  snapshots restore     Roll the rendered directory back to a snapshot

MAINTENANCE
  update                Update stevedore to the latest release`,
	Version:      version,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate("stevedore version {{.Version}}\n")
}
