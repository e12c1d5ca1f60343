package cmd

import (
	"github.com/spf13/cobra"
)

// updateCmd represents the update command.
var updateCmd = newUpdateCmd()

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Update project dependencies through the package manager",
		Long: `Run the project's package manager (detected from the lockfile) to update
dependencies, streaming its output. Repeated failures push the operation
into exponential cooldown; with --dry-run only the outdated list is
shown.`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			workflow, ui, err := buildWorkflow(cmd)
			if err != nil {
				return err
			}

			report, err := workflow.Update(cmd.Context())
			if err != nil {
				return yieldOrError(err)
			}

			return ui.DisplayReport(cmd.Context(), report)
		},
	}
}

func init() {
	rootCmd.AddCommand(updateCmd)
}
