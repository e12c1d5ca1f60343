package controller

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

func newTestUI(input string) (*SimpleUI, *bytes.Buffer) {
	cmd := &cobra.Command{}

	var out bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(input))

	return NewSimpleUI(cmd), &out
}

func TestSimpleUIConfirm(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false}, // closed stdin declines
	}

	for _, tc := range cases {
		ui, out := newTestUI(tc.input)

		assert.Equal(t, tc.want, ui.Confirm("Proceed?"), "input %q", tc.input)
		assert.Contains(t, out.String(), "Proceed? [y/N]:")
	}
}

func TestSimpleUIDisplayIssues(t *testing.T) {
	ui, out := newTestUI("")

	issues := []m.Issue{
		{File: "src/app.js", Line: 3, Rule: "debugger-statement", Severity: m.SeverityHigh, Message: "debugger statement"},
		{File: "src/util.js", Line: 7, Rule: "console-log", Severity: m.SeverityMedium, Message: "console.log call"},
	}

	require.NoError(t, ui.DisplayIssues(context.Background(), issues))

	rendered := out.String()
	assert.Contains(t, rendered, "src/app.js")
	assert.Contains(t, rendered, "debugger-statement")
	assert.Contains(t, rendered, "high")
	assert.Contains(t, rendered, "Total")
	assert.Contains(t, rendered, "2")
}

func TestSimpleUIDisplayIssues_Empty(t *testing.T) {
	ui, out := newTestUI("")

	require.NoError(t, ui.DisplayIssues(context.Background(), nil))
	assert.Contains(t, out.String(), "No issues found.")
}

func TestSimpleUIDisplayPlan(t *testing.T) {
	ui, out := newTestUI("")

	moves := []m.Move{{OldPath: "Widget.jsx", NewPath: "components/Widget/Widget.jsx"}}
	unused := []m.Path{"src/dead.js"}

	require.NoError(t, ui.DisplayPlan(context.Background(), moves, unused))

	rendered := out.String()
	assert.Contains(t, rendered, "Widget.jsx")
	assert.Contains(t, rendered, "components/Widget/Widget.jsx")
	assert.Contains(t, rendered, "Unused files (1):")
	assert.Contains(t, rendered, "src/dead.js")
}

func TestSimpleUIDisplayPlan_NothingToDo(t *testing.T) {
	ui, out := newTestUI("")

	require.NoError(t, ui.DisplayPlan(context.Background(), nil, nil))
	assert.Contains(t, out.String(), "already organized")
}

func TestSimpleUIDisplayReport(t *testing.T) {
	ui, out := newTestUI("")

	report := m.OperationReport{
		Operation:      "fix",
		DryRun:         true,
		FilesScanned:   10,
		IssuesFound:    2,
		ChangesApplied: 1,
		Steps: []m.StepResult{
			{Name: "fix", Success: true, Detail: "1 files fixed"},
			{Name: "safety-check", Success: false, Detail: "budget exceeded"},
		},
		Notes: []string{"package manager: npm"},
	}

	require.NoError(t, ui.DisplayReport(context.Background(), report))

	rendered := out.String()
	assert.Contains(t, rendered, "fix (dry run): 10 files scanned, 2 issues, 1 changes")
	assert.Contains(t, rendered, "ok")
	assert.Contains(t, rendered, "FAILED")
	assert.Contains(t, rendered, "note: package manager: npm")
}

func TestSimpleUIRespectsCancelledContext(t *testing.T) {
	ui, out := newTestUI("")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, ui.DisplayIssues(ctx, nil))
	assert.Error(t, ui.DisplayPlan(ctx, nil, nil))
	assert.Error(t, ui.DisplayReport(ctx, m.OperationReport{}))
	assert.Empty(t, out.String())
}
