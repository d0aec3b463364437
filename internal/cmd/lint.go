package cmd

import (
	"github.com/spf13/cobra"

	"github.com/harborline/stevedore/internal/ui"
)

var (
	lintEnvFiles []string
	lintOverlays []string
)

// lintCmd represents the lint command.
var lintCmd = &cobra.Command{
	Use:   "lint [template]",
	Short: "Parse, resolve, and validate without emitting",
	Long: `Run the full render pipeline but discard the output.

Lint catches everything render would reject: malformed YAML, unresolved
${VAR} placeholders, duplicate service names, bad port mappings, unknown
dependencies, dependency cycles, and mounts naming undeclared volumes.
All violations are reported in one pass.

Examples:
  stevedore lint
  stevedore lint -f prod -e .env.production`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLint,
}

func init() {
	lintCmd.Flags().StringArrayVarP(&lintEnvFiles, "env-file", "e", nil, "Environment source file (repeatable, later files override earlier)")
	lintCmd.Flags().StringArrayVarP(&lintOverlays, "overlay", "f", nil, "Overlay name or path to merge on top of the template (repeatable)")

	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	templateArg := ""
	if len(args) > 0 {
		templateArg = args[0]
	}

	cfg, templatePath, err := resolveProject(templateArg)
	if err != nil {
		return err
	}

	resolved, err := buildDescriptor(cfg, templatePath, lintOverlays, lintEnvFiles)
	if err != nil {
		return err
	}

	if err := validateDescriptor(resolved); err != nil {
		return err
	}

	ui.Success("%d service(s), %d volume(s), no problems found", len(resolved.Services), len(resolved.Volumes))
	return nil
}
