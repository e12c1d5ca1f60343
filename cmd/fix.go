package cmd

import (
	"github.com/spf13/cobra"
)

// fixCmd represents the fix command.
var fixCmd = newFixCmd()

func newFixCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fix",
		Short: "Detect and repair known bug patterns",
		Long: `Scan source files for known bug patterns (debugger statements, stray
console logging, loose equality and friends) and repair the ones the
active safety mode allows. Aborts, changing nothing, when the number of
affected files exceeds the mode's change budget.`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			workflow, ui, err := buildWorkflow(cmd)
			if err != nil {
				return err
			}

			report, err := workflow.Fix(cmd.Context())

			// The scan results are worth showing even when the budget refused them.
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
	rootCmd.AddCommand(fixCmd)
}
