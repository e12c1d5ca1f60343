package rules

import (
	"regexp"

	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

var (
	debuggerPattern   = regexp.MustCompile(`(?m)^\s*debugger;?\s*$`)
	consoleLogPattern = regexp.MustCompile(`(?m)^\s*console\.(log|debug)\(.*\);?\s*$`)
	alertCallPattern  = regexp.MustCompile(`(?m)^\s*alert\(.*\);?\s*$`)
	looseEqPattern    = regexp.MustCompile(`([^=!<>])==([^=])`)
	looseNeqPattern   = regexp.MustCompile(`([^!=<>])!=([^=])`)
	varDeclPattern    = regexp.MustCompile(`(?m)^(\s*)var\s+`)
	emptyCatchPattern = regexp.MustCompile(`catch\s*\(\s*\w*\s*\)\s*\{\s*\}`)
	todoPattern       = regexp.MustCompile(`(?m)//\s*(TODO|FIXME|HACK)\b`)
)

func stripMatchedLines(pattern *regexp.Regexp) Fixer {
	return func(content string) string {
		return pattern.ReplaceAllString(content, "")
	}
}

// BugRules is the ordered detection table for code-smell patterns. Fixers
// are deliberately approximate text transforms; anything subtler is the
// linter's job.
func BugRules() []Rule {
	return []Rule{
		{
			Name:     "debugger-statement",
			Pattern:  debuggerPattern,
			Message:  "debugger statement left in source",
			Severity: m.SeverityHigh,
			Fix:      stripMatchedLines(debuggerPattern),
		},
		{
			Name:     "console-log",
			Pattern:  consoleLogPattern,
			Message:  "console.log/debug left in source",
			Severity: m.SeverityLow,
			Fix:      stripMatchedLines(consoleLogPattern),
		},
		{
			Name:     "alert-call",
			Pattern:  alertCallPattern,
			Message:  "alert() call left in source",
			Severity: m.SeverityMedium,
			Fix:      stripMatchedLines(alertCallPattern),
		},
		{
			Name:     "loose-equality",
			Pattern:  looseEqPattern,
			Message:  "loose equality comparison, prefer ===",
			Severity: m.SeverityMedium,
			Fix: func(content string) string {
				content = looseEqPattern.ReplaceAllString(content, "$1===$2")
				return looseNeqPattern.ReplaceAllString(content, "$1!==$2")
			},
		},
		{
			Name:     "var-declaration",
			Pattern:  varDeclPattern,
			Message:  "var declaration, prefer let or const",
			Severity: m.SeverityMedium,
			Fix: func(content string) string {
				return varDeclPattern.ReplaceAllString(content, "${1}let ")
			},
		},
		{
			Name:     "empty-catch",
			Pattern:  emptyCatchPattern,
			Message:  "empty catch block swallows errors",
			Severity: m.SeverityMedium,
		},
		{
			Name:     "todo-comment",
			Pattern:  todoPattern,
			Message:  "unresolved TODO/FIXME marker",
			Severity: m.SeverityLow,
		},
	}
}
