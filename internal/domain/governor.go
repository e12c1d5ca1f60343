package domain

import (
	"fmt"

	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

// SafetyGovernor is the fail-closed gate in front of every fix phase. It is
// evaluated exactly once per run, before any mutation; a breach aborts the
// whole phase with zero files touched.
type SafetyGovernor struct {
	mode   m.SafetyMode
	budget m.SafetyBudget
}

// NewSafetyGovernor constructs a governor for the active mode and budget.
func NewSafetyGovernor(mode m.SafetyMode, budget m.SafetyBudget) *SafetyGovernor {
	return &SafetyGovernor{mode: mode, budget: budget}
}

// Mode returns the active safety mode.
func (g *SafetyGovernor) Mode() m.SafetyMode {
	return g.mode
}

// Approve checks the planned change volume against the mode's budget. The
// returned error names the mode needed to override the abort.
func (g *SafetyGovernor) Approve(filesWithIssues, totalFiles int) error {
	if filesWithIssues == 0 || totalFiles == 0 {
		return nil
	}

	percent := float64(filesWithIssues) / float64(totalFiles) * 100

	if percent > g.budget.MaxChangesPercent || filesWithIssues > g.budget.MaxFilesChanged {
		msg := fmt.Sprintf(
			"fix phase aborted: %d of %d files (%.1f%%) would change, budget for %s mode is %d files / %.1f%%",
			filesWithIssues, totalFiles, percent, g.mode, g.budget.MaxFilesChanged, g.budget.MaxChangesPercent,
		)

		if next, ok := g.mode.Next(); ok {
			msg += fmt.Sprintf("; rerun with --safety=%s to override", next)
		}

		return fmt.Errorf("%s", msg)
	}

	return nil
}
