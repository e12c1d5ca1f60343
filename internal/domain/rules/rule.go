// Package rules holds the pattern rule table used by the scan and fix
// phases. Rules are textual heuristics that run alongside an authoritative
// linter/type-checker, never instead of one.
package rules

import (
	"regexp"

	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

// Fixer transforms file content. Pure text to text, no semantic
// understanding; returning the input unchanged means nothing to fix.
type Fixer func(content string) string

// Rule pairs a detection pattern with an optional fixer.
type Rule struct {
	Name     string
	Pattern  *regexp.Regexp
	Message  string
	Severity m.Severity
	Fix      Fixer // nil for detection-only rules
}

// EligibleRuleNames returns the rule names a safety mode may auto-fix. Each
// mode's set is a strict superset of the mode below it.
func EligibleRuleNames(mode m.SafetyMode) map[string]bool {
	eligible := map[string]bool{
		"debugger-statement": true,
	}

	if mode == m.SafetyModerate || mode == m.SafetyAggressive {
		eligible["console-log"] = true
		eligible["alert-call"] = true
	}

	if mode == m.SafetyAggressive {
		eligible["var-declaration"] = true
		eligible["loose-equality"] = true
	}

	return eligible
}
