package cmd

import (
	"github.com/spf13/cobra"
)

// organizeCmd represents the organize command.
var organizeCmd = newOrganizeCmd()

func newOrganizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "organize",
		Short: "Sort files into category directories and rewrite imports",
		Long: `Scan the project tree, classify every source file against the category
rules, move misplaced files to their category directory and rewrite the
relative imports the moves invalidated. Files in protected locations
(pages, routing entry points) stay where they are.`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			workflow, ui, err := buildWorkflow(cmd)
			if err != nil {
				return err
			}

			report, err := workflow.Organize(cmd.Context())
			if err != nil {
				return yieldOrError(err)
			}

			if err := ui.DisplayPlan(cmd.Context(), report.Moves, report.Unused); err != nil {
				return err
			}

			return ui.DisplayReport(cmd.Context(), report)
		},
	}
}

func init() {
	rootCmd.AddCommand(organizeCmd)
}
