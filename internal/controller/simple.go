package controller

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

// SimpleUI implements UI using cobra Command's output stream.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Confirm prompts on the command's streams and accepts y/yes.
func (s *SimpleUI) Confirm(prompt string) bool {
	s.printf("%s [y/N]: ", prompt)

	reader := bufio.NewReader(s.cmd.InOrStdin())

	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	answer = strings.ToLower(strings.TrimSpace(answer))

	return answer == "y" || answer == "yes"
}

// DisplayIssues prints the detected issues as a table grouped by file.
func (s *SimpleUI) DisplayIssues(ctx context.Context, issues []m.Issue) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(issues) == 0 {
		s.printf("No issues found.\n")

		return nil
	}

	s.printf("\n%s", renderIssueTable(issues))

	return nil
}

func renderIssueTable(issues []m.Issue) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"File", "Line", "Rule", "Severity", "Message"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_LEFT,
	})

	for _, issue := range issues {
		table.Append([]string{
			string(issue.File),
			fmt.Sprintf("%d", issue.Line),
			issue.Rule,
			string(issue.Severity),
			issue.Message,
		})
	}

	table.SetFooter([]string{"", "", "", "Total", fmt.Sprintf("%d", len(issues))})
	table.Render()

	return tableBuffer.String()
}

// DisplayPlan prints the planned relocations and the unused files.
func (s *SimpleUI) DisplayPlan(ctx context.Context, moves []m.Move, unused []m.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(moves) == 0 && len(unused) == 0 {
		s.printf("Nothing to change, tree already organized.\n")

		return nil
	}

	if len(moves) > 0 {
		var tableBuffer bytes.Buffer

		table := tablewriter.NewWriter(&tableBuffer)
		table.SetHeader([]string{"From", "To"})
		table.SetBorder(false)
		table.SetCenterSeparator("")

		for _, move := range moves {
			table.Append([]string{string(move.OldPath), string(move.NewPath)})
		}

		table.Render()
		s.printf("\n%s", tableBuffer.String())
	}

	if len(unused) > 0 {
		s.printf("\nUnused files (%d):\n", len(unused))

		for _, path := range unused {
			s.printf("  %s\n", path)
		}
	}

	return nil
}

// DisplayReport prints a run summary with its step outcomes.
func (s *SimpleUI) DisplayReport(ctx context.Context, report m.OperationReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mode := ""
	if report.DryRun {
		mode = " (dry run)"
	}

	s.printf("\n%s%s: %d files scanned, %d issues, %d changes\n",
		report.Operation, mode, report.FilesScanned, report.IssuesFound, report.ChangesApplied)

	for _, step := range report.Steps {
		status := "ok"
		if !step.Success {
			status = "FAILED"
		}

		s.printf("  %-24s %-6s %s\n", step.Name, status, step.Detail)
	}

	for _, note := range report.Notes {
		s.printf("  note: %s\n", note)
	}

	return nil
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
