package domain

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"groundskeeper.dev/pkg/groundskeeper/internal/adapter"
	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

// RemediationAction is one independent, idempotent mutator applied to build
// artifacts when a deployment failure matches its issue type. It reports
// whether it changed anything and which artifacts it touched.
type RemediationAction struct {
	Name  string
	Apply func(fs adapter.SourceFSAdapter, backup adapter.BackupStore, root m.Path) (changed bool, artifacts []m.Path, err error)
}

// RemediationRule classifies failure-log text and names the ordered actions
// that attempt to repair it.
type RemediationRule struct {
	IssueType       string
	MessagePatterns []*regexp.Regexp
	Actions         []RemediationAction
}

// RemediationOutcome is the result of executing one matched rule.
type RemediationOutcome struct {
	IssueType string
	Success   bool
	Artifacts []m.Path
	Detail    string
}

// Remediator runs the deployment-failure table. Attempt outcomes feed the
// backoff circuit breaker under the issue-type name.
type Remediator struct {
	fs      adapter.SourceFSAdapter
	backup  adapter.BackupStore
	backoff *Backoff
	table   []RemediationRule
	dryRun  bool
}

// NewRemediator constructs a Remediator over the default rule table.
func NewRemediator(fs adapter.SourceFSAdapter, backup adapter.BackupStore, backoff *Backoff, dryRun bool) *Remediator {
	return &Remediator{
		fs:      fs,
		backup:  backup,
		backoff: backoff,
		table:   DefaultRemediationTable(),
		dryRun:  dryRun,
	}
}

// Classify matches failure-log text against the ordered table. The first
// matching pattern per issue type records exactly one issue for the run.
func (r *Remediator) Classify(logText string) []m.Issue {
	var issues []m.Issue

	for _, rule := range r.table {
		for _, pattern := range rule.MessagePatterns {
			if loc := pattern.FindStringIndex(logText); loc != nil {
				issues = append(issues, m.Issue{
					File:     "deployment-log",
					Line:     lineOf(logText, loc[0]),
					Rule:     rule.IssueType,
					Message:  fmt.Sprintf("deployment failure classified as %s", rule.IssueType),
					Severity: m.SeverityHigh,
					Snippet:  snippet(logText[loc[0]:loc[1]]),
				})

				break // at most one issue per type per run
			}
		}
	}

	return issues
}

// Remediate executes the actions of every matched issue type in declared
// order. Operations still inside their backoff cooldown are deferred, which
// is not an error.
func (r *Remediator) Remediate(root m.Path, logText string) []RemediationOutcome {
	matched := make(map[string]bool)
	for _, issue := range r.Classify(logText) {
		matched[issue.Rule] = true
	}

	var outcomes []RemediationOutcome

	for _, rule := range r.table {
		if !matched[rule.IssueType] {
			continue
		}

		if remaining, allowed := r.backoff.Check(rule.IssueType); !allowed {
			outcomes = append(outcomes, RemediationOutcome{
				IssueType: rule.IssueType,
				Success:   false,
				Detail:    fmt.Sprintf("deferred, cooldown active for another %s", remaining.Round(0)),
			})

			continue
		}

		outcomes = append(outcomes, r.runActions(root, rule))
	}

	return outcomes
}

func (r *Remediator) runActions(root m.Path, rule RemediationRule) RemediationOutcome {
	outcome := RemediationOutcome{IssueType: rule.IssueType, Success: true}

	for _, action := range rule.Actions {
		if r.dryRun {
			outcome.Detail = "dry run, no artifacts modified"
			continue
		}

		changed, artifacts, err := action.Apply(r.fs, r.backup, root)
		if err != nil {
			slog.Warn("remediation action failed",
				"issueType", rule.IssueType, "action", action.Name, "error", err)

			outcome.Success = false
			outcome.Detail = fmt.Sprintf("action %s: %v", action.Name, err)

			break
		}

		if changed {
			outcome.Artifacts = append(outcome.Artifacts, artifacts...)
		}
	}

	if r.dryRun {
		return outcome
	}

	if outcome.Success {
		r.backoff.RecordSuccess(rule.IssueType)
	} else {
		r.backoff.RecordFailure(rule.IssueType)
	}

	return outcome
}

// rewriteArtifact reads an artifact, applies a pure transform and writes the
// result back behind a verified backup. A missing artifact or an unchanged
// transform is a no-op, which keeps every action idempotent.
func rewriteArtifact(fs adapter.SourceFSAdapter, backup adapter.BackupStore, root m.Path, rel string, transform func(string) string) (bool, []m.Path, error) {
	abs := fs.JoinPath(string(root), rel)

	raw, err := fs.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil, nil
		}

		return false, nil, err
	}

	original := string(raw)

	updated := transform(original)
	if updated == original {
		return false, nil, nil
	}

	if _, err := backup.Backup(m.Path(rel), raw); err != nil {
		return false, nil, fmt.Errorf("backup %s: %w", rel, err)
	}

	if err := fs.WriteFile(abs, []byte(updated), 0o644); err != nil {
		return false, nil, err
	}

	return true, []m.Path{m.Path(rel)}, nil
}

// writeArtifactIfAbsent creates an artifact with fixed content unless it
// already exists.
func writeArtifactIfAbsent(fs adapter.SourceFSAdapter, root m.Path, rel, content string) (bool, []m.Path, error) {
	abs := fs.JoinPath(string(root), rel)

	if _, err := fs.FileInfo(abs); err == nil {
		return false, nil, nil
	}

	if err := fs.WriteFile(abs, []byte(content), 0o644); err != nil {
		return false, nil, err
	}

	return true, []m.Path{m.Path(rel)}, nil
}

var strictTruePattern = regexp.MustCompile(`"strict"\s*:\s*true`)

// DefaultRemediationTable is the ordered classification table for
// deployment failures.
func DefaultRemediationTable() []RemediationRule {
	return []RemediationRule{
		{
			IssueType: "type-errors",
			MessagePatterns: []*regexp.Regexp{
				regexp.MustCompile(`Type error:`),
				regexp.MustCompile(`\bTS\d{4}\b`),
			},
			Actions: []RemediationAction{
				{
					Name: "relax-strict-check",
					Apply: func(fs adapter.SourceFSAdapter, backup adapter.BackupStore, root m.Path) (bool, []m.Path, error) {
						return rewriteArtifact(fs, backup, root, "tsconfig.json", func(content string) string {
							return strictTruePattern.ReplaceAllString(content, `"strict": false`)
						})
					},
				},
			},
		},
		{
			IssueType: "out-of-memory",
			MessagePatterns: []*regexp.Regexp{
				regexp.MustCompile(`JavaScript heap out of memory`),
				regexp.MustCompile(`\bENOMEM\b`),
			},
			Actions: []RemediationAction{
				{
					Name: "add-memory-flag",
					Apply: func(fs adapter.SourceFSAdapter, backup adapter.BackupStore, root m.Path) (bool, []m.Path, error) {
						return rewriteArtifact(fs, backup, root, "package.json", func(content string) string {
							if strings.Contains(content, "--max-old-space-size") {
								return content
							}

							return strings.Replace(content,
								`"build": "`,
								`"build": "NODE_OPTIONS=--max-old-space-size=4096 `,
								1)
						})
					},
				},
			},
		},
		{
			IssueType: "node-version",
			MessagePatterns: []*regexp.Regexp{
				regexp.MustCompile(`Unsupported engine`),
				regexp.MustCompile(`requires Node`),
			},
			Actions: []RemediationAction{
				{
					Name: "pin-runtime-version",
					Apply: func(fs adapter.SourceFSAdapter, _ adapter.BackupStore, root m.Path) (bool, []m.Path, error) {
						return writeArtifactIfAbsent(fs, root, ".nvmrc", "20\n")
					},
				},
			},
		},
		{
			IssueType: "dependency-resolution",
			MessagePatterns: []*regexp.Regexp{
				regexp.MustCompile(`\bERESOLVE\b`),
				regexp.MustCompile(`peer dep`),
			},
			Actions: []RemediationAction{
				{
					Name: "allow-legacy-peer-deps",
					Apply: func(fs adapter.SourceFSAdapter, backup adapter.BackupStore, root m.Path) (bool, []m.Path, error) {
						abs := fs.JoinPath(string(root), ".npmrc")

						raw, err := fs.ReadFile(abs)
						if err != nil && !os.IsNotExist(err) {
							return false, nil, err
						}

						content := string(raw)
						if strings.Contains(content, "legacy-peer-deps") {
							return false, nil, nil
						}

						if len(raw) > 0 {
							if _, err := backup.Backup("npmrc", raw); err != nil {
								return false, nil, err
							}
						}

						if content != "" && !strings.HasSuffix(content, "\n") {
							content += "\n"
						}

						content += "legacy-peer-deps=true\n"

						if err := fs.WriteFile(abs, []byte(content), 0o644); err != nil {
							return false, nil, err
						}

						return true, []m.Path{".npmrc"}, nil
					},
				},
			},
		},
	}
}
