package cmd

import (
	"github.com/spf13/cobra"
)

// uiConsistencyCmd represents the ui command.
var uiConsistencyCmd = newUIConsistencyCmd()

func newUIConsistencyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Snap drifting style values back onto the design tokens",
		Long: `Scan style and component files for color and font-size literals that
drift slightly from the design tokens and snap near misses back onto the
nearest token. Values used widely across the tree are treated as
intentional and left alone.`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			workflow, ui, err := buildWorkflow(cmd)
			if err != nil {
				return err
			}

			report, err := workflow.UIConsistency(cmd.Context())

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
	rootCmd.AddCommand(uiConsistencyCmd)
}
