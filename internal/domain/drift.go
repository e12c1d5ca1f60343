package domain

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"groundskeeper.dev/pkg/groundskeeper/internal/adapter"
	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
	"groundskeeper.dev/pkg/groundskeeper/internal/domain/rules"
)

// DriftFix is one planned literal replacement inside a style file.
type DriftFix struct {
	File m.Path
	Old  string
	New  string
}

// DriftChecker detects UI/style token drift: literal color and font-size
// values that sit close to a design token without matching it. A literal
// used more than the frequency threshold across the style files is presumed
// intentional and never rewritten.
type DriftChecker struct {
	fs         adapter.SourceFSAdapter
	backup     adapter.BackupStore
	tokens     m.DesignTokens
	thresholds m.DriftThresholds
	dryRun     bool
}

// NewDriftChecker constructs a DriftChecker with the policy's tokens and
// thresholds.
func NewDriftChecker(fs adapter.SourceFSAdapter, backup adapter.BackupStore, policy *m.Policy, dryRun bool) *DriftChecker {
	return &DriftChecker{
		fs:         fs,
		backup:     backup,
		tokens:     policy.DesignTokens,
		thresholds: policy.Drift,
		dryRun:     dryRun,
	}
}

func isStyleFile(path m.Path) bool {
	p := string(path)
	return strings.HasSuffix(p, ".css") || strings.HasSuffix(p, ".scss")
}

// Check builds the value histogram over every style file, then reports each
// low-frequency literal that lies within the similarity bound of a design
// token. Returns the issues plus the concrete replacements a fix phase
// would apply.
func (d *DriftChecker) Check(root m.Path, files []*m.SourceFile) ([]m.Issue, []DriftFix) {
	contents := make(map[m.Path]string)
	colorCounts := make(map[string]int)
	fontCounts := make(map[string]int)

	for _, file := range files {
		if !isStyleFile(file.Path) {
			continue
		}

		raw, err := d.fs.ReadFile(d.fs.JoinPath(string(root), string(file.Path)))
		if err != nil {
			slog.Warn("drift check skipped file", "path", file.Path, "error", err)
			continue
		}

		content := string(raw)
		contents[file.Path] = content

		for _, literal := range rules.ColorLiteralPattern.FindAllString(content, -1) {
			colorCounts[strings.ToLower(literal)]++
		}

		for _, match := range rules.FontSizePattern.FindAllStringSubmatch(content, -1) {
			fontCounts[match[1]]++
		}
	}

	tokenColors := d.parsedTokenColors()

	var (
		issues []m.Issue
		fixes  []DriftFix
	)

	for _, file := range files {
		content, ok := contents[file.Path]
		if !ok {
			continue
		}

		issues, fixes = d.checkColors(file.Path, content, colorCounts, tokenColors, issues, fixes)
		issues, fixes = d.checkFontSizes(file.Path, content, fontCounts, issues, fixes)
	}

	return issues, fixes
}

func (d *DriftChecker) parsedTokenColors() []rules.RGB {
	var tokenColors []rules.RGB

	for _, hex := range d.tokens.Colors {
		if c, ok := rules.ParseHexColor(hex); ok {
			tokenColors = append(tokenColors, c)
		}
	}

	return tokenColors
}

func (d *DriftChecker) checkColors(
	file m.Path, content string,
	counts map[string]int, tokenColors []rules.RGB,
	issues []m.Issue, fixes []DriftFix,
) ([]m.Issue, []DriftFix) {
	seen := make(map[string]bool)

	for _, loc := range rules.ColorLiteralPattern.FindAllStringIndex(content, -1) {
		literal := content[loc[0]:loc[1]]

		normalized := strings.ToLower(literal)
		if seen[normalized] {
			continue
		}

		seen[normalized] = true

		if counts[normalized] > d.thresholds.FrequencyThreshold {
			continue // high frequency, presumed intentional
		}

		color, ok := rules.ParseHexColor(literal)
		if !ok {
			continue
		}

		token, distance, ok := rules.NearestColor(color, tokenColors)
		if !ok || distance >= d.thresholds.MaxColorDistance {
			continue
		}

		replacement := token.Hex()
		if strings.EqualFold(replacement, normalized) {
			continue
		}

		issues = append(issues, m.Issue{
			File:     file,
			Line:     lineOf(content, loc[0]),
			Rule:     "color-drift",
			Message:  fmt.Sprintf("color %s drifts from design token %s (distance %.1f)", literal, replacement, distance),
			Severity: m.SeverityLow,
			Snippet:  literal,
		})

		fixes = append(fixes, DriftFix{File: file, Old: literal, New: replacement})
	}

	return issues, fixes
}

func (d *DriftChecker) checkFontSizes(
	file m.Path, content string,
	counts map[string]int,
	issues []m.Issue, fixes []DriftFix,
) ([]m.Issue, []DriftFix) {
	seen := make(map[string]bool)

	for _, loc := range rules.FontSizePattern.FindAllStringSubmatchIndex(content, -1) {
		value := content[loc[2]:loc[3]]
		if seen[value] {
			continue
		}

		seen[value] = true

		if counts[value] > d.thresholds.FrequencyThreshold {
			continue
		}

		size, err := strconv.ParseFloat(value, 64)
		if err != nil {
			continue
		}

		token, delta, ok := rules.NearestFontSize(size, d.tokens.FontSizesPx)
		if !ok || delta > d.thresholds.MaxFontDeltaPx || delta == 0 {
			continue
		}

		replacement := strconv.FormatFloat(token, 'f', -1, 64)

		issues = append(issues, m.Issue{
			File:     file,
			Line:     lineOf(content, loc[0]),
			Rule:     "font-size-drift",
			Message:  fmt.Sprintf("font size %spx drifts from design token %spx", value, replacement),
			Severity: m.SeverityLow,
			Snippet:  content[loc[0]:loc[1]],
		})

		fixes = append(fixes, DriftFix{
			File: file,
			Old:  value + "px",
			New:  replacement + "px",
		})
	}

	return issues, fixes
}

// applyFixes rewrites the planned replacements inside the patterns that
// produced them. A font-size value only changes within a font-size
// declaration, and a color literal only changes on an exact whole-literal
// match, so other properties sharing the same digits stay untouched.
func applyFixes(content string, fixes []DriftFix) string {
	colorRepl := make(map[string]string)
	fontRepl := make(map[string]string)

	for _, fix := range fixes {
		if strings.HasPrefix(fix.Old, "#") {
			colorRepl[strings.ToLower(fix.Old)] = fix.New
		} else {
			fontRepl[strings.TrimSuffix(fix.Old, "px")] = strings.TrimSuffix(fix.New, "px")
		}
	}

	fixed := rules.ColorLiteralPattern.ReplaceAllStringFunc(content, func(literal string) string {
		if repl, ok := colorRepl[strings.ToLower(literal)]; ok {
			return repl
		}

		return literal
	})

	return rules.FontSizePattern.ReplaceAllStringFunc(fixed, func(decl string) string {
		value := rules.FontSizePattern.FindStringSubmatch(decl)[1]

		repl, ok := fontRepl[value]
		if !ok {
			return decl
		}

		return strings.Replace(decl, value+"px", repl+"px", 1)
	})
}

// Fix applies the planned replacements, one backed-up write per file.
func (d *DriftChecker) Fix(root m.Path, fixes []DriftFix) []m.Path {
	perFile := make(map[m.Path][]DriftFix)

	var order []m.Path

	for _, fix := range fixes {
		if _, seen := perFile[fix.File]; !seen {
			order = append(order, fix.File)
		}

		perFile[fix.File] = append(perFile[fix.File], fix)
	}

	var changed []m.Path

	for _, file := range order {
		abs := d.fs.JoinPath(string(root), string(file))

		raw, err := d.fs.ReadFile(abs)
		if err != nil {
			slog.Warn("drift fix: read failed, skipping", "path", file, "error", err)
			continue
		}

		original := string(raw)
		fixed := applyFixes(original, perFile[file])

		if fixed == original {
			continue
		}

		if d.dryRun {
			changed = append(changed, file)
			continue
		}

		if _, err := d.backup.Backup(file, raw); err != nil {
			slog.Warn("drift fix: backup failed, skipping", "path", file, "error", err)
			continue
		}

		if err := d.fs.WriteFile(abs, []byte(fixed), 0o644); err != nil {
			slog.Warn("drift fix: write failed", "path", file, "error", err)
			continue
		}

		changed = append(changed, file)
	}

	return changed
}
