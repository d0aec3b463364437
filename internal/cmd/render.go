package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harborline/stevedore/internal/descriptor"
	"github.com/harborline/stevedore/internal/fileutil"
	"github.com/harborline/stevedore/internal/lock"
	"github.com/harborline/stevedore/internal/snapshot"
	"github.com/harborline/stevedore/internal/ui"
)

var (
	renderEnvFiles []string
	renderOverlays []string
	renderOutput   string
	renderDryRun   bool
)

// renderCmd represents the render command.
var renderCmd = &cobra.Command{
	Use:   "render [template]",
	Short: "Resolve variables and emit the final descriptor",
	Long: `Render a deployment descriptor template to concrete YAML.

The pipeline loads the template, merges any overlays on top, substitutes
${VAR} placeholders from the environment sources, validates the result,
and emits deterministic YAML. Key order follows the template, so the same
inputs always produce byte-identical output.

If no template is given, stevedore.yml at the project root is used.
The project's .env file (when present) is always the first environment
source; --env-file sources are layered on top, later files winning.

Examples:
  # Render the project template to stdout
  stevedore render

  # Production render with secrets
  stevedore render -f prod -e .env.production -e secrets.sops.env

  # Write into the rendered/ directory for the GitOps flow
  stevedore render -f prod -o rendered/docker-compose.yml

  # Preview what -o would write
  stevedore render -f prod -o rendered/docker-compose.yml --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringArrayVarP(&renderEnvFiles, "env-file", "e", nil, "Environment source file (repeatable, later files override earlier)")
	renderCmd.Flags().StringArrayVarP(&renderOverlays, "overlay", "f", nil, "Overlay name or path to merge on top of the template (repeatable)")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Output file (prints to stdout if not set)")
	renderCmd.Flags().BoolVarP(&renderDryRun, "dry-run", "n", false, "Print to stdout even when --output is set")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	templateArg := ""
	if len(args) > 0 {
		templateArg = args[0]
	}

	cfg, templatePath, err := resolveProject(templateArg)
	if err != nil {
		return err
	}

	resolved, err := buildDescriptor(cfg, templatePath, renderOverlays, renderEnvFiles)
	if err != nil {
		return err
	}

	if err := validateDescriptor(resolved); err != nil {
		return err
	}

	data, err := descriptor.Emit(resolved)
	if err != nil {
		return err
	}

	if renderOutput == "" || renderDryRun {
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	}

	outPath, err := filepath.Abs(renderOutput)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	write := func() error {
		if err := fileutil.WriteAtomic(outPath, data, 0644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}

	// Standalone renders outside a project skip snapshots and locking.
	if cfg == nil {
		if err := write(); err != nil {
			return err
		}
		ui.Success("Rendered %s", renderOutput)
		return nil
	}

	err = lock.WithLock(cfg.Root, "render", func() error {
		name, err := snapshot.Create(cfg.Root)
		if err != nil {
			return fmt.Errorf("snapshot rendered output: %w", err)
		}
		if name != "" {
			ui.Info("Snapshot: %s", name)
		}
		return write()
	})
	if err != nil {
		return err
	}

	ui.Success("Rendered %s", renderOutput)
	return nil
}
