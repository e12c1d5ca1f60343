package cmd

import (
	"github.com/spf13/cobra"
)

// fullCmd represents the full command.
var fullCmd = newFullCmd()

func newFullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "full",
		Short: "Run the whole maintenance sequence",
		Long: `Run organize, fix, ui, cleanup and update in sequence with step
isolation: a failing step is recorded in the run report and the rest
still run. Prompts before starting unless --yes or --dry-run is set, and
skips entirely when a recent run is found within the configured window.`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			workflow, ui, err := buildWorkflow(cmd)
			if err != nil {
				return err
			}

			report, err := workflow.Full(cmd.Context())
			if err != nil {
				return yieldOrError(err)
			}

			return ui.DisplayReport(cmd.Context(), report)
		},
	}
}

func init() {
	rootCmd.AddCommand(fullCmd)
}
