package cmd

import (
	"github.com/spf13/cobra"
)

// reportCmd represents the report command.
var reportCmd = newReportCmd()

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Summarize the saved maintenance reports",
		Long:  "Aggregate the persisted per-operation reports into one summary. Mutates nothing.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			workflow, ui, err := buildWorkflow(cmd)
			if err != nil {
				return err
			}

			report, err := workflow.Report(cmd.Context())
			if err != nil {
				return err
			}

			return ui.DisplayReport(cmd.Context(), report)
		},
	}
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
