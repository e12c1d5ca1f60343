package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"groundskeeper.dev/pkg/groundskeeper/internal/adapter"
	"groundskeeper.dev/pkg/groundskeeper/internal/domain/rules"
	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
	"groundskeeper.dev/pkg/groundskeeper/pkg"
)

// Confirmer asks the operator before a mutating run proceeds.
type Confirmer interface {
	Confirm(prompt string) bool
}

// WorkflowOptions carries the operator-facing knobs shared by every
// operation.
type WorkflowOptions struct {
	Target     m.Path
	DryRun     bool
	Safety     m.SafetyMode
	Exclude    []string
	Workers    int
	ReportsDir m.Path
	BackupDir  m.Path
	StatePath  m.Path
	LockDir    string

	MemoryLimitMB int

	Branch   string
	OpenPR   bool
	NoCommit bool
	Yes      bool

	SkipIfRecentWithin time.Duration
}

// WorkflowDeps are the adapters a Workflow drives.
type WorkflowDeps struct {
	FS      adapter.SourceFSAdapter
	Backup  adapter.BackupStore
	Reports adapter.ReportStore
	State   adapter.StateStore
	Git     adapter.GitAdapter
	Runner  adapter.ProcessRunner
	Confirm Confirmer
	Now     func() time.Time

	// History journals every completed operation of this run. Optional.
	History pkg.Journal[m.OperationReport]
}

// Workflow sequences the maintenance operations over one project tree. Each
// operation scans fresh, mutates behind backups, and persists a report.
type Workflow struct {
	deps   WorkflowDeps
	opts   WorkflowOptions
	policy *m.Policy

	mu       sync.Mutex
	reducers []func()
}

// NewWorkflow constructs a Workflow. A nil Now defaults to time.Now.
func NewWorkflow(deps WorkflowDeps, opts WorkflowOptions, policy *m.Policy) *Workflow {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	if policy == nil {
		policy = DefaultPolicy()
	}

	return &Workflow{deps: deps, opts: opts, policy: policy}
}

func (w *Workflow) newReport(operation string) m.OperationReport {
	return m.OperationReport{
		Timestamp: w.deps.Now(),
		Operation: operation,
		DryRun:    w.opts.DryRun,
	}
}

// artifactExcludes lists the tool's own artifact locations, relative to
// the target tree. Backups, reports, state and lock files must never
// re-enter a scan as project sources: a graph that sees the backup copies
// would count them as unused and the prune pass would delete the very
// files a recovery needs.
func (w *Workflow) artifactExcludes() []string {
	var excludes []string

	for _, p := range []string{
		string(w.opts.BackupDir),
		string(w.opts.ReportsDir),
		string(w.opts.StatePath),
		w.opts.LockDir,
	} {
		if p == "" {
			continue
		}

		rel, err := w.deps.FS.RelPath(w.opts.Target, m.Path(p))
		if err != nil || strings.HasPrefix(string(rel), "..") {
			continue // outside the tree, nothing to exclude
		}

		excludes = append(excludes, filepath.ToSlash(string(rel)))
	}

	return excludes
}

func (w *Workflow) scanTree() ([]*m.SourceFile, error) {
	excludes := append(w.artifactExcludes(), w.opts.Exclude...)
	scanner := NewScanner(w.deps.FS, excludes, w.opts.Workers)
	w.registerReducer(scanner.ReduceWorkers)

	return scanner.Scan(w.opts.Target)
}

// registerReducer adds a callback the memory monitor invokes under heap
// pressure for the rest of the current operation.
func (w *Workflow) registerReducer(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.reducers = append(w.reducers, fn)
}

func (w *Workflow) onMemoryPressure() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, fn := range w.reducers {
		fn()
	}
}

// execute wraps one operation with the shared plumbing: the cooperative
// project lock, persisted backoff state, report emission, and git
// finalization. When useBackoff is set, a still-cooling operation is
// deferred rather than run.
func (w *Workflow) execute(ctx context.Context, name string, useBackoff bool,
	fn func(ctx context.Context, report *m.OperationReport, backoff *Backoff) error,
) (m.OperationReport, error) {
	report := w.newReport(name)

	// heap sampling covers the whole operation, not just its scan phase
	w.mu.Lock()
	w.reducers = nil
	w.mu.Unlock()

	monitor := adapter.NewMemoryMonitor(w.opts.MemoryLimitMB, 5*time.Second, w.onMemoryPressure)
	monitor.Start()
	defer monitor.Stop()

	governor := NewPermissionGovernor(w.opts.LockDir, "groundskeeper-"+name)
	if err := governor.Acquire(); err != nil {
		return report, err
	}
	defer governor.Release()

	state, err := w.deps.State.Load(w.opts.StatePath)
	if err != nil {
		return report, fmt.Errorf("load backoff state: %w", err)
	}

	backoff := NewBackoff(state, w.deps.Now)

	if useBackoff {
		if remaining, allowed := backoff.Check(name); !allowed {
			report.Notes = append(report.Notes,
				fmt.Sprintf("deferred: %s cooling down for another %s", name, remaining.Round(time.Second)))
			slog.Info("operation deferred by backoff", "operation", name, "remaining", remaining)

			return report, w.saveReport(name, report)
		}
	}

	runErr := fn(ctx, &report, backoff)

	if useBackoff && !w.opts.DryRun {
		if runErr != nil {
			backoff.RecordFailure(name)
		} else {
			backoff.RecordSuccess(name)
		}
	}

	if !w.opts.DryRun {
		if err := w.deps.State.Flush(w.opts.StatePath, state); err != nil {
			slog.Warn("failed to persist backoff state", "error", err)
		}
	}

	if err := w.saveReport(name, report); err != nil {
		slog.Warn("failed to save report", "operation", name, "error", err)
	}

	if w.deps.History != nil {
		if err := w.deps.History.Append(report); err != nil {
			slog.Warn("failed to journal report", "operation", name, "error", err)
		}
	}

	if runErr != nil {
		return report, runErr
	}

	if report.ChangesApplied > 0 {
		if err := w.finalizeGit(ctx, name); err != nil {
			slog.Warn("git finalization failed", "operation", name, "error", err)
			report.Notes = append(report.Notes, fmt.Sprintf("git: %v", err))
		}
	}

	return report, nil
}

func (w *Workflow) saveReport(operation string, report m.OperationReport) error {
	name := adapter.ReportRun
	switch operation {
	case "fix":
		name = adapter.ReportBugs
	case "cleanup":
		name = adapter.ReportCleanup
	case "ui":
		name = adapter.ReportUI
	}

	// the operations that compute the unused set also persist it under its
	// own name, so the set can be diffed between runs
	switch operation {
	case "organize", "cleanup", "restructure":
		if err := w.deps.Reports.Save(w.opts.ReportsDir, adapter.ReportUnused, report); err != nil {
			return err
		}
	}

	return w.deps.Reports.Save(w.opts.ReportsDir, name, report)
}

// Organize relocates files into their category directories and rewrites
// every relative reference that the moves invalidated.
func (w *Workflow) Organize(ctx context.Context) (m.OperationReport, error) {
	return w.execute(ctx, "organize", false, func(_ context.Context, report *m.OperationReport, _ *Backoff) error {
		files, err := w.scanTree()
		if err != nil {
			return err
		}

		report.FilesScanned = len(files)

		resolver := NewResolver()
		graph := NewGraphBuilder(w.deps.FS, resolver).Build(w.opts.Target, files)

		classifier, err := NewClassifier(w.policy)
		if err != nil {
			return err
		}

		plan := NewPlanner(classifier, w.policy).Plan(graph)
		report.Unused = plan.Unused

		executor := NewExecutor(w.deps.FS, w.deps.Backup, resolver, w.policy, w.opts.DryRun)

		result := executor.Relocate(w.opts.Target, plan)
		rewritten, rewriteErrs := executor.RewriteReferences(w.opts.Target, graph, result.Moved)

		report.Moves = result.Moved
		report.ChangesApplied = len(result.Moved) + len(rewritten)
		report.AddStep("relocate", result.Errors == 0, fmt.Sprintf("%d files moved", len(result.Moved)))
		report.AddStep("rewrite-references", rewriteErrs == 0, fmt.Sprintf("%d files rewritten", len(rewritten)))

		return nil
	})
}

// Fix scans for pattern issues and repairs the ones the active safety mode
// allows, within the mode's change budget.
func (w *Workflow) Fix(ctx context.Context) (m.OperationReport, error) {
	return w.execute(ctx, "fix", false, func(_ context.Context, report *m.OperationReport, _ *Backoff) error {
		files, err := w.scanTree()
		if err != nil {
			return err
		}

		report.FilesScanned = len(files)

		engine := NewEngine(w.deps.FS, w.deps.Backup, rules.BugRules(), w.opts.DryRun)

		issues := engine.Scan(w.opts.Target, files)
		report.Issues = issues
		report.IssuesFound = len(issues)

		governor := NewSafetyGovernor(w.opts.Safety, m.BudgetFor(w.opts.Safety))
		if err := governor.Approve(FilesWithIssues(issues), len(files)); err != nil {
			report.AddStep("safety-check", false, err.Error())

			return err
		}

		changed := engine.Fix(w.opts.Target, issues, w.opts.Safety)
		report.ChangesApplied = len(changed)
		report.AddStep("fix", true, fmt.Sprintf("%d files fixed", len(changed)))

		return nil
	})
}

// UIConsistency detects style values that drift from the design tokens and
// snaps near misses back onto them.
func (w *Workflow) UIConsistency(ctx context.Context) (m.OperationReport, error) {
	return w.execute(ctx, "ui", false, func(_ context.Context, report *m.OperationReport, _ *Backoff) error {
		files, err := w.scanTree()
		if err != nil {
			return err
		}

		report.FilesScanned = len(files)

		checker := NewDriftChecker(w.deps.FS, w.deps.Backup, w.policy, w.opts.DryRun)

		issues, fixes := checker.Check(w.opts.Target, files)
		report.Issues = issues
		report.IssuesFound = len(issues)

		governor := NewSafetyGovernor(w.opts.Safety, m.BudgetFor(w.opts.Safety))
		if err := governor.Approve(FilesWithIssues(issues), len(files)); err != nil {
			report.AddStep("safety-check", false, err.Error())

			return err
		}

		changed := checker.Fix(w.opts.Target, fixes)
		report.ChangesApplied = len(changed)
		report.AddStep("snap-to-tokens", true, fmt.Sprintf("%d files fixed", len(changed)))

		return nil
	})
}

// Cleanup deletes files nothing references and sweeps the directories the
// deletions emptied.
func (w *Workflow) Cleanup(ctx context.Context) (m.OperationReport, error) {
	return w.execute(ctx, "cleanup", false, func(_ context.Context, report *m.OperationReport, _ *Backoff) error {
		files, err := w.scanTree()
		if err != nil {
			return err
		}

		report.FilesScanned = len(files)

		resolver := NewResolver()
		graph := NewGraphBuilder(w.deps.FS, resolver).Build(w.opts.Target, files)

		classifier, err := NewClassifier(w.policy)
		if err != nil {
			return err
		}

		plan := NewPlanner(classifier, w.policy).Plan(graph)
		report.Unused = plan.Unused

		executor := NewExecutor(w.deps.FS, w.deps.Backup, resolver, w.policy, w.opts.DryRun)
		executor.KeepDirs(w.artifactExcludes())

		result := executor.Prune(w.opts.Target, plan, nil)
		report.ChangesApplied = len(result.Pruned)
		report.AddStep("prune", result.Errors == 0, fmt.Sprintf("%d files removed", len(result.Pruned)))

		return nil
	})
}

// Update runs the package manager's update through a streamed subprocess.
// Repeated failures push the operation into exponential cooldown.
func (w *Workflow) Update(ctx context.Context) (m.OperationReport, error) {
	return w.execute(ctx, "update", true, func(ctx context.Context, report *m.OperationReport, _ *Backoff) error {
		manager := w.detectPackageManager()
		report.Notes = append(report.Notes, "package manager: "+manager)

		if w.opts.DryRun {
			output, _, err := w.deps.Runner.Run(ctx, string(w.opts.Target), os.Stdout, manager, "outdated")
			report.AddStep("outdated", err == nil, firstLine(output))

			// package managers exit non-zero when anything is outdated
			return nil
		}

		output, stats, err := w.deps.Runner.Run(ctx, string(w.opts.Target), os.Stdout, manager, "update")
		if err != nil {
			report.AddStep("update", false, firstLine(output))

			return fmt.Errorf("dependency update: %w", err)
		}

		report.ChangesApplied = stats.FilesChanged
		report.AddStep("update", true, fmt.Sprintf("%d packages touched", stats.FilesChanged))

		return nil
	})
}

// DeployFix builds the project, classifies any failure output against the
// remediation table, and applies the matching repairs. Every attempt feeds
// the backoff breaker under its issue type.
func (w *Workflow) DeployFix(ctx context.Context) (m.OperationReport, error) {
	return w.execute(ctx, "deploy-fix", true, func(ctx context.Context, report *m.OperationReport, backoff *Backoff) error {
		manager := w.detectPackageManager()

		output, _, err := w.deps.Runner.Run(ctx, string(w.opts.Target), os.Stdout, manager, "run", "build")
		if err == nil {
			report.AddStep("build", true, "build passed, nothing to remediate")

			return nil
		}

		report.AddStep("build", false, firstLine(output))

		remediator := NewRemediator(w.deps.FS, w.deps.Backup, backoff, w.opts.DryRun)

		issues := remediator.Classify(output)
		report.Issues = issues
		report.IssuesFound = len(issues)

		if len(issues) == 0 {
			return fmt.Errorf("build failed with no recognized issue type")
		}

		for _, outcome := range remediator.Remediate(w.opts.Target, output) {
			report.AddStep("remediate-"+outcome.IssueType, outcome.Success, outcome.Detail)
			report.ChangesApplied += len(outcome.Artifacts)
		}

		return nil
	})
}

// Restructure is the deep pass: relocation, reference rewriting, barrel
// index synthesis, and unused pruning in one run.
func (w *Workflow) Restructure(ctx context.Context) (m.OperationReport, error) {
	return w.execute(ctx, "restructure", false, func(_ context.Context, report *m.OperationReport, _ *Backoff) error {
		files, err := w.scanTree()
		if err != nil {
			return err
		}

		report.FilesScanned = len(files)

		resolver := NewResolver()
		graph := NewGraphBuilder(w.deps.FS, resolver).Build(w.opts.Target, files)

		classifier, err := NewClassifier(w.policy)
		if err != nil {
			return err
		}

		plan := NewPlanner(classifier, w.policy).Plan(graph)
		report.Unused = plan.Unused

		executor := NewExecutor(w.deps.FS, w.deps.Backup, resolver, w.policy, w.opts.DryRun)
		executor.KeepDirs(w.artifactExcludes())

		moved := executor.Relocate(w.opts.Target, plan)
		rewritten, rewriteErrs := executor.RewriteReferences(w.opts.Target, graph, moved.Moved)
		pruned := executor.Prune(w.opts.Target, plan, moved.Moved)

		indexes, err := executor.SynthesizeIndexes(w.opts.Target)
		if err != nil {
			return err
		}

		report.Moves = moved.Moved
		report.ChangesApplied = len(moved.Moved) + len(rewritten) + len(pruned.Pruned) + len(indexes)
		report.AddStep("relocate", moved.Errors == 0, fmt.Sprintf("%d files moved", len(moved.Moved)))
		report.AddStep("rewrite-references", rewriteErrs == 0, fmt.Sprintf("%d files rewritten", len(rewritten)))
		report.AddStep("prune", pruned.Errors == 0, fmt.Sprintf("%d files removed", len(pruned.Pruned)))
		report.AddStep("synthesize-indexes", true, fmt.Sprintf("%d barrels written", len(indexes)))

		return nil
	})
}

// Report aggregates the persisted per-operation reports into one summary.
// It mutates nothing and takes no lock.
func (w *Workflow) Report(_ context.Context) (m.OperationReport, error) {
	report := w.newReport("report")

	for _, name := range []string{adapter.ReportBugs, adapter.ReportCleanup, adapter.ReportUI, adapter.ReportRun} {
		saved, err := w.deps.Reports.Load(w.opts.ReportsDir, name)
		if err != nil {
			continue
		}

		report.IssuesFound += saved.IssuesFound
		report.ChangesApplied += saved.ChangesApplied
		report.AddStep(name, !saved.Failed(),
			fmt.Sprintf("%s at %s: %d issues, %d changes",
				saved.Operation, saved.Timestamp.Format(time.RFC3339), saved.IssuesFound, saved.ChangesApplied))
	}

	if len(report.Steps) == 0 {
		report.Notes = append(report.Notes, "no saved reports found")
	}

	return report, w.deps.Reports.Save(w.opts.ReportsDir, adapter.ReportRun, report)
}

// Full runs the whole maintenance sequence with step isolation: one failing
// step is recorded and the rest still run.
func (w *Workflow) Full(ctx context.Context) (m.OperationReport, error) {
	report := w.newReport("full")

	if w.opts.SkipIfRecentWithin > 0 {
		if last, ok := w.deps.Reports.LatestRunTime(w.opts.ReportsDir); ok {
			if age := w.deps.Now().Sub(last); age < w.opts.SkipIfRecentWithin {
				report.Notes = append(report.Notes,
					fmt.Sprintf("skipped: last full run %s ago", age.Round(time.Minute)))
				slog.Info("skipping full run, recent run found", "age", age)

				return report, nil
			}
		}
	}

	if !w.opts.Yes && !w.opts.DryRun && w.deps.Confirm != nil {
		if !w.deps.Confirm.Confirm(fmt.Sprintf("Run full maintenance on %s?", w.opts.Target)) {
			report.Notes = append(report.Notes, "aborted by operator")

			return report, nil
		}
	}

	steps := []struct {
		name string
		run  func(context.Context) (m.OperationReport, error)
	}{
		{"organize", w.Organize},
		{"fix", w.Fix},
		{"ui", w.UIConsistency},
		{"cleanup", w.Cleanup},
		{"update", w.Update},
	}

	for _, step := range steps {
		stepReport, err := step.run(ctx)

		report.FilesScanned = max(report.FilesScanned, stepReport.FilesScanned)
		report.IssuesFound += stepReport.IssuesFound
		report.ChangesApplied += stepReport.ChangesApplied

		if err != nil {
			var yield *ErrYield
			if errors.As(err, &yield) {
				report.AddStep(step.name, false, yield.Error())

				continue
			}

			slog.Error("step failed, continuing", "step", step.name, "error", err)
			report.AddStep(step.name, false, err.Error())

			continue
		}

		report.AddStep(step.name, true, fmt.Sprintf("%d changes", stepReport.ChangesApplied))
	}

	if err := w.deps.Reports.Save(w.opts.ReportsDir, adapter.ReportRun, report); err != nil {
		slog.Warn("failed to save run report", "error", err)
	}

	return report, nil
}

// finalizeGit commits applied changes and optionally opens a pull request.
func (w *Workflow) finalizeGit(ctx context.Context, operation string) error {
	if w.opts.NoCommit || w.opts.DryRun {
		return nil
	}

	dir := string(w.opts.Target)

	dirty, err := w.deps.Git.HasChanges(ctx, dir)
	if err != nil || !dirty {
		return err
	}

	if w.opts.Branch != "" {
		if err := w.deps.Git.CreateBranch(ctx, dir, w.opts.Branch); err != nil {
			return err
		}
	}

	message := fmt.Sprintf("chore: automated %s maintenance", operation)
	if err := w.deps.Git.CommitAll(ctx, dir, message); err != nil {
		return err
	}

	if !w.opts.OpenPR {
		return nil
	}

	branch := w.opts.Branch
	if branch == "" {
		if branch, err = w.deps.Git.CurrentBranch(ctx, dir); err != nil {
			return err
		}
	}

	if err := w.deps.Git.Push(ctx, dir, branch); err != nil {
		return err
	}

	url, err := w.deps.Git.CreatePullRequest(ctx, dir, message, "Automated maintenance run.")
	if err != nil {
		return err
	}

	slog.Info("pull request created", "url", url)

	return nil
}

func (w *Workflow) detectPackageManager() string {
	for lock, manager := range map[string]string{
		"pnpm-lock.yaml": "pnpm",
		"yarn.lock":      "yarn",
	} {
		if _, err := w.deps.FS.FileInfo(w.deps.FS.JoinPath(string(w.opts.Target), lock)); err == nil {
			return manager
		}
	}

	return "npm"
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}

	return s
}
