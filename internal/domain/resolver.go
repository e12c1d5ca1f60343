// Package domain implements the maintenance engine: scanning, dependency
// graphing, reorganization planning, mutation execution, pattern rules and
// the safety machinery around them.
package domain

import (
	"path"
	"regexp"
	"strings"

	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

// Reference syntaxes recognized by the resolver. These are deliberately
// lightweight textual patterns, not a parser; an AST-backed implementation
// could replace this type as long as it keeps the same contract (list of
// referenced specifiers per file).
var (
	esImportPattern      = regexp.MustCompile(`(?m)^\s*import\s+(?:[\w$]+\s*,?\s*)?(?:\{[^}]*\}\s*,?\s*)?(?:\*\s+as\s+[\w$]+\s+)?(?:from\s+)?['"]([^'"]+)['"]`)
	esExportFromPattern  = regexp.MustCompile(`(?m)^\s*export\s+(?:\*|\{[^}]*\})\s+from\s+['"]([^'"]+)['"]`)
	requireCallPattern   = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	dynamicImportPattern = regexp.MustCompile(`import\(\s*['"]([^'"]+)['"]\s*\)`)
	cssImportPattern     = regexp.MustCompile(`@import\s+(?:url\(\s*)?['"]?([^'")\s;]+)['"]?\s*\)?`)
	urlLiteralPattern    = regexp.MustCompile(`url\(\s*['"]?([^'")]+)['"]?\s*\)`)
)

// resolveExtensions is the probe order for extensionless specifiers.
var resolveExtensions = []string{
	"", ".ts", ".tsx", ".js", ".jsx", ".mjs", ".css", ".scss", ".json",
}

// indexBaseNames is the directory-index fallback probe order.
var indexBaseNames = []string{
	"index.ts", "index.tsx", "index.js", "index.jsx",
}

// Resolver extracts reference specifiers from file content and resolves
// relative ones to concrete files. It never mutates anything.
type Resolver struct{}

// NewResolver constructs a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ExtractSpecifiers returns every reference specifier found in content, in
// source order, duplicates removed.
func (r *Resolver) ExtractSpecifiers(content string) []string {
	var specs []string

	seen := make(map[string]struct{})

	patterns := []*regexp.Regexp{
		esImportPattern,
		esExportFromPattern,
		requireCallPattern,
		dynamicImportPattern,
		cssImportPattern,
		urlLiteralPattern,
	}

	for _, pattern := range patterns {
		for _, match := range pattern.FindAllStringSubmatch(content, -1) {
			spec := strings.TrimSpace(match[1])
			if spec == "" {
				continue
			}

			if _, ok := seen[spec]; ok {
				continue
			}

			seen[spec] = struct{}{}
			specs = append(specs, spec)
		}
	}

	return specs
}

// IsRelative reports whether a specifier refers into the tree rather than to
// an external package.
func (r *Resolver) IsRelative(spec string) bool {
	return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}

// Resolve maps a relative specifier, as written in fromFile, onto a concrete
// file from the known set. It probes the fixed extension list first and then
// the directory-index fallback. Unresolvable specifiers return ok=false and
// are not an error: they simply contribute nothing to usage counts.
func (r *Resolver) Resolve(fromFile m.Path, spec string, exists func(m.Path) bool) (m.Path, bool) {
	if !r.IsRelative(spec) {
		return "", false
	}

	base := path.Join(path.Dir(string(fromFile)), spec)

	for _, ext := range resolveExtensions {
		candidate := m.Path(base + ext)
		if exists(candidate) {
			return candidate, true
		}
	}

	for _, index := range indexBaseNames {
		candidate := m.Path(path.Join(base, index))
		if exists(candidate) {
			return candidate, true
		}
	}

	return "", false
}

// References extracts and resolves every relative specifier of one file.
func (r *Resolver) References(file m.Path, content string, exists func(m.Path) bool) []m.Reference {
	var refs []m.Reference

	for _, spec := range r.ExtractSpecifiers(content) {
		if !r.IsRelative(spec) {
			continue
		}

		ref := m.Reference{Raw: spec}
		if resolved, ok := r.Resolve(file, spec, exists); ok {
			ref.Resolved = resolved
		}

		refs = append(refs, ref)
	}

	return refs
}
