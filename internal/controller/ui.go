// Package controller provides output adapters for displaying maintenance
// results.
package controller

import (
	"context"

	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

// UI defines the interface for presenting scan results, plans and run
// summaries. Implementations can use different output methods (simple text,
// TUI, etc).
type UI interface {
	Confirm(prompt string) bool
	DisplayIssues(ctx context.Context, issues []m.Issue) error
	DisplayPlan(ctx context.Context, moves []m.Move, unused []m.Path) error
	DisplayReport(ctx context.Context, report m.OperationReport) error
}
