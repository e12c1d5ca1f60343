package cmd

import (
	"github.com/spf13/cobra"
)

// restructureCmd represents the restructure command.
var restructureCmd = newRestructureCmd()

func newRestructureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restructure",
		Short: "Deep reorganization: relocate, prune and synthesize barrels",
		Long: `The deep pass over the tree: relocate files into category and component
directories, rewrite references, prune unused files and synthesize
barrel index files for component folders that lack them.`,
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			workflow, ui, err := buildWorkflow(cmd)
			if err != nil {
				return err
			}

			report, err := workflow.Restructure(cmd.Context())
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
	rootCmd.AddCommand(restructureCmd)
}
