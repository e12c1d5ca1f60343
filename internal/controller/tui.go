package controller

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

const plainListLimit = 15

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")).
			BorderStyle(lipgloss.RoundedBorder()).
			Padding(0, 2)

	severityHighStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	severityMediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	severityLowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// TUI implements UI using Bubble Tea for interactive display.
type TUI struct {
	output io.Writer
	input  io.Reader
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output, input: os.Stdin}
}

// Confirm prompts on the TUI's streams and accepts y/yes.
func (p *TUI) Confirm(prompt string) bool {
	fmt.Fprintf(p.output, "%s [y/N]: ", prompt)

	answer, err := bufio.NewReader(p.input).ReadString('\n')
	if err != nil {
		return false
	}

	answer = strings.ToLower(strings.TrimSpace(answer))

	return answer == "y" || answer == "yes"
}

// DisplayIssues shows detected issues in a scrollable table. Short lists
// print directly without entering the alternate screen.
func (p *TUI) DisplayIssues(ctx context.Context, issues []m.Issue) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(issues) == 0 {
		_, err := fmt.Fprintln(p.output, headerStyle.Render("Groundskeeper"), "no issues found")

		return err
	}

	model := newIssueBrowserModel(issues)

	if len(issues) <= plainListLimit {
		_, err := fmt.Fprint(p.output, model.View())

		return err
	}

	program := tea.NewProgram(model, tea.WithOutput(p.output), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}

	return nil
}

// DisplayPlan shows planned moves and unused files in one table.
func (p *TUI) DisplayPlan(ctx context.Context, moves []m.Move, unused []m.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	model := newPlanBrowserModel(moves, unused)

	if len(moves)+len(unused) <= plainListLimit {
		_, err := fmt.Fprint(p.output, model.View())

		return err
	}

	program := tea.NewProgram(model, tea.WithOutput(p.output), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}

	return nil
}

// DisplayReport prints a run summary. Reports are short, so this never
// paginates.
func (p *TUI) DisplayReport(ctx context.Context, report m.OperationReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder

	title := fmt.Sprintf("Groundskeeper · %s", report.Operation)
	if report.DryRun {
		title += " (dry run)"
	}

	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "  %d files scanned, %d issues, %d changes\n",
		report.FilesScanned, report.IssuesFound, report.ChangesApplied)

	for _, step := range report.Steps {
		mark := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("✓")
		if !step.Success {
			mark = severityHighStyle.Render("✗")
		}

		fmt.Fprintf(&b, "  %s %-24s %s\n", mark, step.Name, step.Detail)
	}

	for _, note := range report.Notes {
		fmt.Fprintf(&b, "  %s\n", helpStyle.Render(note))
	}

	_, err := fmt.Fprint(p.output, b.String())

	return err
}

func severityStyle(severity m.Severity) lipgloss.Style {
	switch severity {
	case m.SeverityHigh:
		return severityHighStyle
	case m.SeverityMedium:
		return severityMediumStyle
	default:
		return severityLowStyle
	}
}

// issueBrowserModel is the Bubble Tea model wrapping a bubbles table of
// issues.
type issueBrowserModel struct {
	table    table.Model
	total    int
	quitting bool
}

func newIssueBrowserModel(issues []m.Issue) issueBrowserModel {
	columns := []table.Column{
		{Title: "File", Width: 40},
		{Title: "Line", Width: 6},
		{Title: "Rule", Width: 20},
		{Title: "Severity", Width: 8},
		{Title: "Message", Width: 40},
	}

	rows := make([]table.Row, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, table.Row{
			string(issue.File),
			fmt.Sprintf("%d", issue.Line),
			issue.Rule,
			severityStyle(issue.Severity).Render(string(issue.Severity)),
			issue.Message,
		})
	}

	return issueBrowserModel{table: newBrowserTable(columns, rows), total: len(issues)}
}

func (ibm issueBrowserModel) Init() tea.Cmd {
	return nil
}

func (ibm issueBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		ibm.table.SetHeight(tableHeight(msg.Height))
		ibm.table.SetWidth(msg.Width)

		return ibm, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			ibm.quitting = true

			return ibm, tea.Quit
		}
	}

	var cmd tea.Cmd
	ibm.table, cmd = ibm.table.Update(msg)

	return ibm, cmd
}

func (ibm issueBrowserModel) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Groundskeeper · %d issue(s)", ibm.total)))
	b.WriteString("\n")
	b.WriteString(ibm.table.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("  ↑/k: up · ↓/j: down · q: quit"))
	b.WriteString("\n")

	return b.String()
}

// planBrowserModel shows planned relocations plus unused files.
type planBrowserModel struct {
	table    table.Model
	moves    int
	unused   int
	quitting bool
}

func newPlanBrowserModel(moves []m.Move, unused []m.Path) planBrowserModel {
	columns := []table.Column{
		{Title: "Action", Width: 8},
		{Title: "From", Width: 48},
		{Title: "To", Width: 48},
	}

	rows := make([]table.Row, 0, len(moves)+len(unused))
	for _, move := range moves {
		rows = append(rows, table.Row{"move", string(move.OldPath), string(move.NewPath)})
	}

	for _, path := range unused {
		rows = append(rows, table.Row{"unused", string(path), ""})
	}

	return planBrowserModel{
		table:  newBrowserTable(columns, rows),
		moves:  len(moves),
		unused: len(unused),
	}
}

func (pbm planBrowserModel) Init() tea.Cmd {
	return nil
}

func (pbm planBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		pbm.table.SetHeight(tableHeight(msg.Height))
		pbm.table.SetWidth(msg.Width)

		return pbm, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			pbm.quitting = true

			return pbm, tea.Quit
		}
	}

	var cmd tea.Cmd
	pbm.table, cmd = pbm.table.Update(msg)

	return pbm, cmd
}

func (pbm planBrowserModel) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(
		fmt.Sprintf("Groundskeeper · %d move(s), %d unused", pbm.moves, pbm.unused)))
	b.WriteString("\n")
	b.WriteString(pbm.table.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("  ↑/k: up · ↓/j: down · q: quit"))
	b.WriteString("\n")

	return b.String()
}

func newBrowserTable(columns []table.Column, rows []table.Row) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(minInt(len(rows)+1, 20)),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(styles)

	return t
}

// tableHeight reserves room for the header and the help footer.
func tableHeight(terminalHeight int) int {
	const reserved = 6

	height := terminalHeight - reserved
	if height < 3 {
		return 3
	}

	return height
}

func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}
