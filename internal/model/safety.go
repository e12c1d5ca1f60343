package model

import "fmt"

// SafetyMode is the risk tier bounding which rules may auto-fix and how many
// files a fix phase may touch.
type SafetyMode string

// Safety modes in ascending order of permissiveness.
const (
	SafetySafe       SafetyMode = "safe"
	SafetyModerate   SafetyMode = "moderate"
	SafetyAggressive SafetyMode = "aggressive"
)

// ParseSafetyMode validates a user-supplied mode string.
func ParseSafetyMode(s string) (SafetyMode, error) {
	switch SafetyMode(s) {
	case SafetySafe, SafetyModerate, SafetyAggressive:
		return SafetyMode(s), nil
	}

	return "", fmt.Errorf("unknown safety mode %q (want safe, moderate or aggressive)", s)
}

// Next returns the next more permissive mode, used when telling the user how
// to override a safety abort.
func (m SafetyMode) Next() (SafetyMode, bool) {
	switch m {
	case SafetySafe:
		return SafetyModerate, true
	case SafetyModerate:
		return SafetyAggressive, true
	}

	return m, false
}

// SafetyBudget bounds a fix phase. Each mode's thresholds are at least as
// large as the previous mode's.
type SafetyBudget struct {
	MaxChangesPercent float64
	MaxFilesChanged   int
}

// BudgetFor returns the default change budget for a mode.
func BudgetFor(mode SafetyMode) SafetyBudget {
	switch mode {
	case SafetyAggressive:
		return SafetyBudget{MaxChangesPercent: 50, MaxFilesChanged: 100}
	case SafetyModerate:
		return SafetyBudget{MaxChangesPercent: 25, MaxFilesChanged: 25}
	default:
		return SafetyBudget{MaxChangesPercent: 10, MaxFilesChanged: 5}
	}
}
