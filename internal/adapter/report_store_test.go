package adapter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

func sampleReport() m.OperationReport {
	return m.OperationReport{
		Timestamp:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Operation:      "fix",
		FilesScanned:   42,
		IssuesFound:    2,
		ChangesApplied: 1,
		Issues: []m.Issue{
			{File: "src/app.js", Line: 3, Rule: "debugger-statement", Message: "debugger statement", Severity: m.SeverityHigh},
			{File: "src/app.js", Line: 9, Rule: "console-log", Message: "console.log call", Severity: m.SeverityMedium},
		},
		Steps: []m.StepResult{
			{Name: "fix", Success: true, Detail: "1 files fixed"},
		},
	}
}

func TestReportStore_SaveAndLoad(t *testing.T) {
	dir := m.Path(filepath.Join(t.TempDir(), "reports"))
	store := NewLocalReportStore()

	require.NoError(t, store.Save(dir, ReportBugs, sampleReport()))

	loaded, err := store.Load(dir, ReportBugs)
	require.NoError(t, err)

	assert.Equal(t, "fix", loaded.Operation)
	assert.Equal(t, 42, loaded.FilesScanned)
	require.Len(t, loaded.Issues, 2)
	assert.Equal(t, m.SeverityHigh, loaded.Issues[0].Severity)
}

func TestReportStore_WritesMarkdownTwin(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalReportStore()

	require.NoError(t, store.Save(m.Path(dir), ReportBugs, sampleReport()))

	data, err := os.ReadFile(filepath.Join(dir, ReportBugs+".md"))
	require.NoError(t, err)

	md := string(data)
	assert.Contains(t, md, "# "+ReportBugs)
	assert.Contains(t, md, "| src/app.js | 3 | debugger-statement |")
	assert.Contains(t, md, "- fix: ok (1 files fixed)")
}

func TestReportStore_LoadMissing(t *testing.T) {
	store := NewLocalReportStore()

	_, err := store.Load(m.Path(t.TempDir()), ReportBugs)
	assert.Error(t, err)
}

func TestReportStore_LatestRunTime(t *testing.T) {
	dir := m.Path(t.TempDir())
	store := NewLocalReportStore()

	_, ok := store.LatestRunTime(dir)
	assert.False(t, ok, "empty directory has no run time")

	require.NoError(t, store.Save(dir, ReportRun, sampleReport()))

	latest, ok := store.LatestRunTime(dir)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), latest, time.Minute)
}
