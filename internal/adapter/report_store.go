package adapter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

// Fixed report base names, one per scanning concern. Each JSON report gets a
// Markdown twin for human review.
const (
	ReportBugs    = "bug-report"
	ReportUnused  = "unused-files"
	ReportCleanup = "cleanup-report"
	ReportUI      = "ui-consistency"
	ReportRun     = "run-report"
)

// ReportStore persists operation reports under a reports directory.
type ReportStore interface {
	Save(dir m.Path, name string, report m.OperationReport) error
	Load(dir m.Path, name string) (m.OperationReport, error)

	// LatestRunTime returns the timestamp of the newest report in dir, used
	// by the scheduler's "skip if run recently" guard.
	LatestRunTime(dir m.Path) (time.Time, bool)
}

// LocalReportStore writes JSON reports plus Markdown twins to local disk.
type LocalReportStore struct{}

// NewLocalReportStore constructs a LocalReportStore.
func NewLocalReportStore() *LocalReportStore {
	return &LocalReportStore{}
}

// Save writes name.json and name.md into dir, creating it if absent.
func (s *LocalReportStore) Save(dir m.Path, name string, report m.OperationReport) error {
	if err := os.MkdirAll(string(dir), 0o750); err != nil {
		return fmt.Errorf("create reports directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report %s: %w", name, err)
	}

	jsonPath := filepath.Join(string(dir), name+".json")
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", jsonPath, err)
	}

	mdPath := filepath.Join(string(dir), name+".md")
	if err := os.WriteFile(mdPath, []byte(renderMarkdown(name, report)), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", mdPath, err)
	}

	return nil
}

// Load reads name.json back from dir.
func (s *LocalReportStore) Load(dir m.Path, name string) (m.OperationReport, error) {
	var report m.OperationReport

	data, err := os.ReadFile(filepath.Join(string(dir), name+".json"))
	if err != nil {
		return report, err
	}

	if err := json.Unmarshal(data, &report); err != nil {
		return report, fmt.Errorf("parse report %s: %w", name, err)
	}

	return report, nil
}

// LatestRunTime finds the newest JSON report timestamp in dir.
func (s *LocalReportStore) LatestRunTime(dir m.Path) (time.Time, bool) {
	matches, err := filepath.Glob(filepath.Join(string(dir), "*.json"))
	if err != nil || len(matches) == 0 {
		return time.Time{}, false
	}

	var newest time.Time

	for _, file := range matches {
		if info, err := os.Stat(file); err == nil && info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}

	return newest, !newest.IsZero()
}

func renderMarkdown(name string, report m.OperationReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", name)
	fmt.Fprintf(&b, "- Operation: %s\n", report.Operation)
	fmt.Fprintf(&b, "- Timestamp: %s\n", report.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Dry run: %v\n", report.DryRun)
	fmt.Fprintf(&b, "- Files scanned: %d\n", report.FilesScanned)
	fmt.Fprintf(&b, "- Issues found: %d\n", report.IssuesFound)
	fmt.Fprintf(&b, "- Changes applied: %d\n", report.ChangesApplied)

	if len(report.Issues) > 0 {
		b.WriteString("\n## Issues\n\n")
		b.WriteString("| File | Line | Rule | Severity | Message |\n")
		b.WriteString("|------|------|------|----------|----------|\n")

		for _, issue := range report.Issues {
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %s |\n",
				issue.File, issue.Line, issue.Rule, issue.Severity, issue.Message)
		}
	}

	if len(report.Moves) > 0 {
		b.WriteString("\n## Relocations\n\n")

		for _, mv := range report.Moves {
			fmt.Fprintf(&b, "- `%s` -> `%s`\n", mv.OldPath, mv.NewPath)
		}
	}

	if len(report.Unused) > 0 {
		b.WriteString("\n## Unused files\n\n")

		for _, path := range report.Unused {
			fmt.Fprintf(&b, "- `%s`\n", path)
		}
	}

	if len(report.Steps) > 0 {
		b.WriteString("\n## Steps\n\n")

		for _, step := range report.Steps {
			status := "ok"
			if !step.Success {
				status = "FAILED"
			}

			fmt.Fprintf(&b, "- %s: %s", step.Name, status)

			if step.Detail != "" {
				fmt.Fprintf(&b, " (%s)", step.Detail)
			}

			b.WriteString("\n")
		}
	}

	for _, note := range report.Notes {
		fmt.Fprintf(&b, "\n> %s\n", note)
	}

	return b.String()
}
