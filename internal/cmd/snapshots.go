package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harborline/stevedore/internal/config"
	"github.com/harborline/stevedore/internal/lock"
	"github.com/harborline/stevedore/internal/snapshot"
	"github.com/harborline/stevedore/internal/ui"
)

// snapshotsCmd groups the snapshot subcommands.
var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Manage snapshots of the rendered directory",
	Long: `Every render that writes into the project snapshots the previous
rendered output first. These commands list the snapshots and roll back.`,
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotsList,
}

var snapshotsRestoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Roll the rendered directory back to a snapshot",
	Long: `Replace the rendered directory with a snapshot's contents.

The current rendered output is backed up first, so a restore is itself
reversible.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeSnapshotNames,
	RunE:              runSnapshotsRestore,
}

func init() {
	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsRestoreCmd)
	rootCmd.AddCommand(snapshotsCmd)
}

func runSnapshotsList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	snapshots, err := snapshot.List(cfg.Root)
	if err != nil {
		return err
	}

	if len(snapshots) == 0 {
		ui.Info("No snapshots yet. They are created when render overwrites existing output.")
		return nil
	}

	out := cmd.OutOrStdout()
	for _, snap := range snapshots {
		fmt.Fprintf(out, "%s  %s  %d file(s)\n", snap.Name, snap.Created.Format("2006-01-02 15:04:05"), snap.FileCount)
	}
	return nil
}

func runSnapshotsRestore(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	name := args[0]
	err = lock.WithLock(cfg.Root, "restore", func() error {
		return snapshot.Restore(cfg.Root, name)
	})
	if err != nil {
		return err
	}

	ui.Success("Restored %s", name)
	return nil
}

// completeSnapshotNames completes snapshot names for the restore command.
func completeSnapshotNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	snapshots, err := snapshot.List(cfg.Root)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var names []string
	for _, snap := range snapshots {
		if strings.HasPrefix(snap.Name, toComplete) {
			names = append(names, snap.Name)
		}
	}

	return names, cobra.ShellCompDirectiveNoFileComp
}
