package domain

import (
	"log/slog"
	"sort"
	"strings"

	"groundskeeper.dev/pkg/groundskeeper/internal/adapter"
	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
	"groundskeeper.dev/pkg/groundskeeper/internal/domain/rules"
)

const snippetLimit = 80

// Engine runs the pattern rule table over candidate files and, when the
// safety governor approves, applies the eligible fixers. It is a secondary
// best-effort pass that runs alongside the authoritative linter.
type Engine struct {
	fs      adapter.SourceFSAdapter
	backup  adapter.BackupStore
	ruleSet []rules.Rule
	dryRun  bool
}

// NewEngine constructs an Engine over the given rule table.
func NewEngine(fs adapter.SourceFSAdapter, backup adapter.BackupStore, ruleSet []rules.Rule, dryRun bool) *Engine {
	return &Engine{fs: fs, backup: backup, ruleSet: ruleSet, dryRun: dryRun}
}

// Scan runs every rule's detection pattern against every candidate file.
// Each match becomes an Issue; a file that fails to read contributes zero
// issues and the batch continues.
func (e *Engine) Scan(root m.Path, files []*m.SourceFile) []m.Issue {
	var issues []m.Issue

	for _, file := range files {
		if file.Lines == 0 {
			continue
		}

		content, err := e.fs.ReadFile(e.fs.JoinPath(string(root), string(file.Path)))
		if err != nil {
			slog.Warn("scan skipped file", "path", file.Path, "error", err)
			continue
		}

		issues = append(issues, e.scanContent(file.Path, string(content))...)
	}

	return issues
}

func (e *Engine) scanContent(path m.Path, content string) []m.Issue {
	var issues []m.Issue

	for _, rule := range e.ruleSet {
		for _, loc := range rule.Pattern.FindAllStringIndex(content, -1) {
			issues = append(issues, m.Issue{
				File:     path,
				Line:     lineOf(content, loc[0]),
				Rule:     rule.Name,
				Message:  rule.Message,
				Severity: rule.Severity,
				Snippet:  snippet(content[loc[0]:loc[1]]),
			})
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].File != issues[j].File {
			return issues[i].File < issues[j].File
		}

		return issues[i].Line < issues[j].Line
	})

	return issues
}

// lineOf computes a 1-based line number by counting newlines before the
// match offset.
func lineOf(content string, offset int) int {
	return strings.Count(content[:offset], "\n") + 1
}

func snippet(match string) string {
	match = strings.TrimSpace(match)
	if len(match) > snippetLimit {
		match = match[:snippetLimit]
	}

	return match
}

// FilesWithIssues counts distinct files across a set of issues, the figure
// the safety governor budgets against.
func FilesWithIssues(issues []m.Issue) int {
	files := make(map[m.Path]struct{})
	for _, issue := range issues {
		files[issue.File] = struct{}{}
	}

	return len(files)
}

// Fix applies the fixers of mode-eligible rules to every file that has
// matching issues. The caller must have obtained governor approval first.
// Files are backed up before being overwritten; a backup failure skips that
// file's mutation entirely.
func (e *Engine) Fix(root m.Path, issues []m.Issue, mode m.SafetyMode) (changed []m.Path) {
	eligible := rules.EligibleRuleNames(mode)

	fixersByName := make(map[string]rules.Fixer, len(e.ruleSet))
	for _, rule := range e.ruleSet {
		if rule.Fix != nil {
			fixersByName[rule.Name] = rule.Fix
		}
	}

	perFile := make(map[m.Path][]string)

	var order []m.Path

	for _, issue := range issues {
		if !eligible[issue.Rule] {
			continue
		}

		if _, ok := fixersByName[issue.Rule]; !ok {
			continue
		}

		if _, seen := perFile[issue.File]; !seen {
			order = append(order, issue.File)
		}

		perFile[issue.File] = append(perFile[issue.File], issue.Rule)
	}

	for _, file := range order {
		abs := e.fs.JoinPath(string(root), string(file))

		raw, err := e.fs.ReadFile(abs)
		if err != nil {
			slog.Warn("fix: read failed, skipping", "path", file, "error", err)
			continue
		}

		original := string(raw)
		fixed := original

		applied := make(map[string]bool)

		for _, name := range perFile[file] {
			if applied[name] {
				continue
			}

			applied[name] = true
			fixed = fixersByName[name](fixed)
		}

		if fixed == original {
			continue
		}

		if e.dryRun {
			changed = append(changed, file)
			continue
		}

		if _, err := e.backup.Backup(file, raw); err != nil {
			slog.Warn("fix: backup failed, skipping", "path", file, "error", err)
			continue
		}

		if err := e.fs.WriteFile(abs, []byte(fixed), 0o644); err != nil {
			slog.Warn("fix: write failed", "path", file, "error", err)
			continue
		}

		changed = append(changed, file)
	}

	return changed
}
