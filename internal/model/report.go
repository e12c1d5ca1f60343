package model

import "time"

// StepResult records the outcome of one step inside an operation. A failed
// step never stops the other independent steps of a "full" run.
type StepResult struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
}

// OperationReport summarizes one completed maintenance operation. Reports
// persist to the reports directory as a JSON file with a Markdown twin.
type OperationReport struct {
	Timestamp      time.Time    `json:"timestamp"`
	Operation      string       `json:"operation"`
	DryRun         bool         `json:"dryRun"`
	FilesScanned   int          `json:"filesScanned"`
	IssuesFound    int          `json:"issuesFound"`
	ChangesApplied int          `json:"changesApplied"`
	Issues         []Issue      `json:"issues,omitempty"`
	Moves          []Move       `json:"moves,omitempty"`
	Unused         []Path       `json:"unused,omitempty"`
	Steps          []StepResult `json:"steps,omitempty"`
	Notes          []string     `json:"notes,omitempty"`
}

// AddStep appends a step outcome to the report.
func (r *OperationReport) AddStep(name string, success bool, detail string) {
	r.Steps = append(r.Steps, StepResult{Name: name, Success: success, Detail: detail})
}

// Failed reports whether any recorded step failed.
func (r *OperationReport) Failed() bool {
	for _, s := range r.Steps {
		if !s.Success {
			return true
		}
	}

	return false
}
