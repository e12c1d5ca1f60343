package cmd

import (
	"github.com/spf13/cobra"
)

// deployFixCmd represents the deploy-fix command.
var deployFixCmd = newDeployFixCmd()

func newDeployFixCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy-fix",
		Short: "Build the project and repair recognized failure causes",
		Long: `Run the project build and, when it fails, classify the output against
the known failure table (type errors, out of memory, engine mismatch,
dependency resolution) and apply the matching repairs. At most one issue
per type is handled per run; failed repairs back off exponentially.`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			workflow, ui, err := buildWorkflow(cmd)
			if err != nil {
				return err
			}

			report, err := workflow.DeployFix(cmd.Context())

			if uiErr := ui.DisplayIssues(cmd.Context(), report.Issues); uiErr != nil {
				return uiErr
			}

			if err != nil {
				return yieldOrError(err)
			}

			return ui.DisplayReport(cmd.Context(), report)
		},
	}
}

func init() {
	rootCmd.AddCommand(deployFixCmd)
}
