package cmd

import (
	"github.com/spf13/cobra"
)

// cleanupCmd represents the cleanup command.
var cleanupCmd = newCleanupCmd()

func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove files nothing references",
		Long: `Build the dependency graph and remove source files that nothing
references and that are not entry points. Deleted files are backed up
first; directories the deletions emptied are swept afterwards, except
protected roots.`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			workflow, ui, err := buildWorkflow(cmd)
			if err != nil {
				return err
			}

			report, err := workflow.Cleanup(cmd.Context())
			if err != nil {
				return yieldOrError(err)
			}

			if err := ui.DisplayPlan(cmd.Context(), nil, report.Unused); err != nil {
				return err
			}

			return ui.DisplayReport(cmd.Context(), report)
		},
	}
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
