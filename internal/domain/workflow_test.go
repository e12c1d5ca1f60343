package domain

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"groundskeeper.dev/pkg/groundskeeper/internal/adapter"
	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

type fakeGit struct {
	dirty    bool
	branches []string
	commits  []string
	pushed   []string
	prs      int
}

func (g *fakeGit) CurrentBranch(context.Context, string) (string, error) { return "main", nil }

func (g *fakeGit) CreateBranch(_ context.Context, _ string, name string) error {
	g.branches = append(g.branches, name)
	return nil
}

func (g *fakeGit) CommitAll(_ context.Context, _ string, message string) error {
	g.commits = append(g.commits, message)
	return nil
}

func (g *fakeGit) Push(_ context.Context, _ string, branch string) error {
	g.pushed = append(g.pushed, branch)
	return nil
}

func (g *fakeGit) CreatePullRequest(context.Context, string, string, string) (string, error) {
	g.prs++
	return "https://example.com/pr/1", nil
}

func (g *fakeGit) HasChanges(context.Context, string) (bool, error) { return g.dirty, nil }

type fakeRunner struct {
	output string
	stats  adapter.StepStats
	err    error
	calls  [][]string
}

func (r *fakeRunner) Run(_ context.Context, _ string, _ io.Writer, name string, args ...string) (string, adapter.StepStats, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.output, r.stats, r.err
}

type yesConfirmer struct{ asked int }

func (c *yesConfirmer) Confirm(string) bool { c.asked++; return true }

type noConfirmer struct{}

func (noConfirmer) Confirm(string) bool { return false }

type workflowFixture struct {
	root     string
	deps     WorkflowDeps
	opts     WorkflowOptions
	git      *fakeGit
	runner   *fakeRunner
	clock    time.Time
	reports  m.Path
	workflow *Workflow
}

func newWorkflowFixture(t *testing.T, dryRun bool) *workflowFixture {
	t.Helper()

	fs := adapter.NewLocalSourceFSAdapter()

	fx := &workflowFixture{
		root:    t.TempDir(),
		git:     &fakeGit{},
		runner:  &fakeRunner{},
		clock:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		reports: m.Path(filepath.Join(t.TempDir(), "reports")),
	}

	fx.deps = WorkflowDeps{
		FS:      fs,
		Backup:  adapter.NewLocalBackupStore(t.TempDir()),
		Reports: adapter.NewLocalReportStore(),
		State:   adapter.NewLocalStateStore(fs),
		Git:     fx.git,
		Runner:  fx.runner,
		Now:     func() time.Time { return fx.clock },
	}

	fx.opts = WorkflowOptions{
		Target:     m.Path(fx.root),
		DryRun:     dryRun,
		Safety:     m.SafetyAggressive,
		Workers:    2,
		ReportsDir: fx.reports,
		BackupDir:  m.Path(t.TempDir()),
		StatePath:  m.Path(filepath.Join(t.TempDir(), "state.json")),
		LockDir:    t.TempDir(),
		NoCommit:   true,
	}

	fx.workflow = NewWorkflow(fx.deps, fx.opts, nil)

	return fx
}

func TestWorkflowOrganize(t *testing.T) {
	fx := newWorkflowFixture(t, false)
	writeFile(t, filepath.Join(fx.root, "package.json"), `{"name": "demo"}`)
	writeFile(t, filepath.Join(fx.root, "src/index.js"), "import { helper } from './helpers';\n")
	writeFile(t, filepath.Join(fx.root, "src/helpers.js"), "export const helper = 1;\n")
	writeFile(t, filepath.Join(fx.root, "src/Widget.jsx"), "export default function Widget() {}\n")

	report, err := fx.workflow.Organize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "organize", report.Operation)
	assert.Positive(t, report.FilesScanned)
	assert.NotEmpty(t, report.Moves)
	assert.False(t, report.Failed())

	var moved bool
	for _, move := range report.Moves {
		if move.NewPath == "components/Widget/Widget.jsx" {
			moved = true
		}
	}
	assert.True(t, moved, "component relocated into its folder, got %v", report.Moves)

	// the report lands on disk alongside its markdown twin
	saved, err := fx.deps.Reports.Load(fx.reports, adapter.ReportRun)
	require.NoError(t, err)
	assert.Equal(t, "organize", saved.Operation)
}

func TestWorkflowFix(t *testing.T) {
	t.Run("fixes within budget", func(t *testing.T) {
		fx := newWorkflowFixture(t, false)
		writeFile(t, filepath.Join(fx.root, "package.json"), `{}`)
		abs := filepath.Join(fx.root, "src/app.js")
		writeFile(t, abs, "debugger;\nconsole.log('x');\nexport const a = 1;\n")

		report, err := fx.workflow.Fix(context.Background())
		require.NoError(t, err)

		assert.Positive(t, report.IssuesFound)
		assert.Equal(t, 1, report.ChangesApplied)
		assert.NotContains(t, readFile(t, abs), "debugger")
	})

	t.Run("budget breach aborts with zero mutations", func(t *testing.T) {
		fx := newWorkflowFixture(t, false)
		fx.opts.Safety = m.SafetySafe
		fx.workflow = NewWorkflow(fx.deps, fx.opts, nil)

		writeFile(t, filepath.Join(fx.root, "package.json"), `{}`)

		var originals []string
		for _, name := range []string{"a.js", "b.js", "c.js", "d.js"} {
			content := "debugger;\nexport const x = 1;\n"
			writeFile(t, filepath.Join(fx.root, "src", name), content)
			originals = append(originals, content)
		}

		report, err := fx.workflow.Fix(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--safety=moderate")
		assert.Zero(t, report.ChangesApplied)

		for i, name := range []string{"a.js", "b.js", "c.js", "d.js"} {
			assert.Equal(t, originals[i], readFile(t, filepath.Join(fx.root, "src", name)))
		}
	})
}

func TestWorkflowUpdateBackoff(t *testing.T) {
	fx := newWorkflowFixture(t, false)
	writeFile(t, filepath.Join(fx.root, "package.json"), `{}`)
	fx.runner.err = errors.New("exit status 1")

	_, err := fx.workflow.Update(context.Background())
	require.Error(t, err)
	require.Len(t, fx.runner.calls, 1)
	assert.Equal(t, []string{"npm", "update"}, fx.runner.calls[0])

	t.Run("second run inside the cooldown is deferred", func(t *testing.T) {
		report, err := fx.workflow.Update(context.Background())
		require.NoError(t, err)

		require.NotEmpty(t, report.Notes)
		assert.Contains(t, report.Notes[0], "deferred")
		assert.Len(t, fx.runner.calls, 1, "no subprocess launched while cooling down")
	})

	t.Run("runs again once the cooldown elapses", func(t *testing.T) {
		fx.clock = fx.clock.Add(2 * time.Minute)
		fx.runner.err = nil
		fx.runner.stats = adapter.StepStats{FilesChanged: 3}

		report, err := fx.workflow.Update(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, report.ChangesApplied)
		assert.Len(t, fx.runner.calls, 2)
	})
}

func TestWorkflowUpdatePackageManagerDetection(t *testing.T) {
	fx := newWorkflowFixture(t, true)
	writeFile(t, filepath.Join(fx.root, "pnpm-lock.yaml"), "")

	report, err := fx.workflow.Update(context.Background())
	require.NoError(t, err)

	assert.Contains(t, report.Notes, "package manager: pnpm")
	require.Len(t, fx.runner.calls, 1)
	assert.Equal(t, []string{"pnpm", "outdated"}, fx.runner.calls[0])
}

func TestWorkflowDeployFix(t *testing.T) {
	t.Run("passing build needs no remediation", func(t *testing.T) {
		fx := newWorkflowFixture(t, false)
		fx.runner.output = "Build completed\n"

		report, err := fx.workflow.DeployFix(context.Background())
		require.NoError(t, err)
		assert.Zero(t, report.IssuesFound)
	})

	t.Run("classified failure gets remediated", func(t *testing.T) {
		fx := newWorkflowFixture(t, false)
		writeFile(t, filepath.Join(fx.root, "tsconfig.json"), `{"strict": true}`)
		fx.runner.output = "Type error: Property 'x' does not exist\n"
		fx.runner.err = errors.New("exit status 1")

		report, err := fx.workflow.DeployFix(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, report.IssuesFound)
		assert.Equal(t, 1, report.ChangesApplied)
		assert.Contains(t, readFile(t, filepath.Join(fx.root, "tsconfig.json")), `"strict": false`)
	})

	t.Run("unrecognized failure is an error", func(t *testing.T) {
		fx := newWorkflowFixture(t, false)
		fx.runner.output = "something exploded\n"
		fx.runner.err = errors.New("exit status 1")

		_, err := fx.workflow.DeployFix(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no recognized issue type")
	})
}

func TestWorkflowFullSkipIfRecent(t *testing.T) {
	fx := newWorkflowFixture(t, false)
	fx.opts.SkipIfRecentWithin = time.Hour
	fx.opts.Yes = true
	// recency is judged by report file modification time
	fx.clock = time.Now()
	fx.workflow = NewWorkflow(fx.deps, fx.opts, nil)

	require.NoError(t, fx.deps.Reports.Save(fx.reports, adapter.ReportRun, m.OperationReport{
		Timestamp: fx.clock.Add(-10 * time.Minute),
		Operation: "full",
	}))

	report, err := fx.workflow.Full(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, report.Notes)
	assert.Contains(t, report.Notes[0], "skipped")
	assert.Empty(t, report.Steps)
}

func TestWorkflowFullConfirmation(t *testing.T) {
	fx := newWorkflowFixture(t, false)
	fx.deps.Confirm = noConfirmer{}
	fx.workflow = NewWorkflow(fx.deps, fx.opts, nil)

	report, err := fx.workflow.Full(context.Background())
	require.NoError(t, err)

	assert.Contains(t, report.Notes, "aborted by operator")
	assert.Empty(t, report.Steps)
}

func TestWorkflowFullStepIsolation(t *testing.T) {
	fx := newWorkflowFixture(t, false)
	fx.opts.Yes = true
	fx.workflow = NewWorkflow(fx.deps, fx.opts, nil)

	writeFile(t, filepath.Join(fx.root, "package.json"), `{}`)
	writeFile(t, filepath.Join(fx.root, "src/index.js"), "export const a = 1;\n")
	fx.runner.err = errors.New("exit status 1") // update step fails

	report, err := fx.workflow.Full(context.Background())
	require.NoError(t, err, "a failing step never fails the run")

	require.Len(t, report.Steps, 5)

	byName := make(map[string]m.StepResult)
	for _, step := range report.Steps {
		byName[step.Name] = step
	}

	assert.True(t, byName["organize"].Success)
	assert.True(t, byName["fix"].Success)
	assert.True(t, byName["ui"].Success)
	assert.True(t, byName["cleanup"].Success)
	assert.False(t, byName["update"].Success)
}

func TestWorkflowCleanupSparesOwnArtifacts(t *testing.T) {
	fx := newWorkflowFixture(t, false)

	// artifacts live inside the target tree, as they do by default
	fx.opts.BackupDir = m.Path(filepath.Join(fx.root, ".groundskeeper-backup"))
	fx.opts.ReportsDir = m.Path(filepath.Join(fx.root, ".groundskeeper-reports"))
	fx.opts.StatePath = m.Path(filepath.Join(fx.root, ".groundskeeper-state.json"))
	fx.deps.Backup = adapter.NewLocalBackupStore(string(fx.opts.BackupDir))
	fx.workflow = NewWorkflow(fx.deps, fx.opts, nil)

	writeFile(t, filepath.Join(fx.root, "package.json"), `{}`)
	writeFile(t, filepath.Join(fx.root, "src/index.js"), "export const a = 1;\n")

	backedUp := filepath.Join(fx.root, ".groundskeeper-backup/src/old.js")
	writeFile(t, backedUp, "export const gone = 1;\n")
	savedReport := filepath.Join(fx.root, ".groundskeeper-reports/bug-report.json")
	writeFile(t, savedReport, `{"operation":"fix"}`)

	report, err := fx.workflow.Cleanup(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.FilesScanned, "only package.json and src/index.js")

	for _, unused := range report.Unused {
		assert.NotContains(t, string(unused), ".groundskeeper-", "artifact offered for pruning")
	}

	assert.FileExists(t, backedUp, "backup copy survives cleanup")
	assert.FileExists(t, savedReport, "saved report survives cleanup")
}

func TestWorkflowCleanupWritesUnusedReport(t *testing.T) {
	fx := newWorkflowFixture(t, false)
	writeFile(t, filepath.Join(fx.root, "package.json"), `{}`)
	writeFile(t, filepath.Join(fx.root, "src/index.js"), "export const a = 1;\n")
	writeFile(t, filepath.Join(fx.root, "src/orphan.js"), "export const b = 2;\n")

	report, err := fx.workflow.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report.Unused, m.Path("src/orphan.js"))

	saved, err := fx.deps.Reports.Load(fx.reports, adapter.ReportUnused)
	require.NoError(t, err)
	assert.Equal(t, report.Unused, saved.Unused)
	assert.FileExists(t, filepath.Join(string(fx.reports), adapter.ReportUnused+".md"))
}

func TestWorkflowGitFinalization(t *testing.T) {
	fx := newWorkflowFixture(t, false)
	fx.opts.NoCommit = false
	fx.opts.Branch = "maintenance/fix"
	fx.opts.OpenPR = true
	fx.git.dirty = true
	fx.workflow = NewWorkflow(fx.deps, fx.opts, nil)

	writeFile(t, filepath.Join(fx.root, "package.json"), `{}`)
	writeFile(t, filepath.Join(fx.root, "src/app.js"), "debugger;\nexport const a = 1;\n")

	_, err := fx.workflow.Fix(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"maintenance/fix"}, fx.git.branches)
	require.Len(t, fx.git.commits, 1)
	assert.Equal(t, "chore: automated fix maintenance", fx.git.commits[0])
	assert.Equal(t, []string{"maintenance/fix"}, fx.git.pushed)
	assert.Equal(t, 1, fx.git.prs)
}

func TestWorkflowMemoryPressureHooks(t *testing.T) {
	fx := newWorkflowFixture(t, false)

	var calls int

	fx.workflow.registerReducer(func() { calls++ })
	fx.workflow.registerReducer(func() { calls++ })
	fx.workflow.onMemoryPressure()
	assert.Equal(t, 2, calls, "pressure reaches every registered reducer")

	writeFile(t, filepath.Join(fx.root, "package.json"), `{}`)

	_, err := fx.workflow.Fix(context.Background())
	require.NoError(t, err)

	calls = 0

	fx.workflow.onMemoryPressure()
	assert.Zero(t, calls, "each operation starts with a clean reducer slate")
}

func TestWorkflowReportAggregation(t *testing.T) {
	fx := newWorkflowFixture(t, false)

	require.NoError(t, fx.deps.Reports.Save(fx.reports, adapter.ReportBugs, m.OperationReport{
		Timestamp: fx.clock, Operation: "fix", IssuesFound: 4, ChangesApplied: 2,
	}))
	require.NoError(t, fx.deps.Reports.Save(fx.reports, adapter.ReportUI, m.OperationReport{
		Timestamp: fx.clock, Operation: "ui", IssuesFound: 1, ChangesApplied: 1,
	}))

	report, err := fx.workflow.Report(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.IssuesFound)
	assert.Equal(t, 3, report.ChangesApplied)
	assert.Len(t, report.Steps, 2)
}

func TestWorkflowPermissionYield(t *testing.T) {
	fx := newWorkflowFixture(t, false)

	held, info, err := adapter.TryAcquireLock(fx.opts.LockDir, "another-tool")
	require.NoError(t, err)
	require.Nil(t, info)
	defer held.Release()

	_, err = fx.workflow.Organize(context.Background())
	require.Error(t, err)

	var yield *ErrYield
	require.ErrorAs(t, err, &yield)
	assert.Contains(t, yield.Holder, "another-tool")
}
