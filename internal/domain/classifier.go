package domain

import (
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"unicode"

	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

// Classification is the classifier's verdict for one file.
type Classification struct {
	Category  m.Category
	Base      string
	Subfolder string

	// ComponentDir is set for capitalized .tsx/.jsx files, which get their
	// own same-named subdirectory (component-per-folder convention).
	ComponentDir string

	// PreserveLocation marks files whose location carries routing meaning
	// and must never move.
	PreserveLocation bool
}

type compiledSubfolder struct {
	name     string
	patterns []*regexp.Regexp
}

type compiledCategory struct {
	rule       m.CategoryRule
	patterns   []*regexp.Regexp
	subfolders []compiledSubfolder
}

// Classifier assigns a category (and optional subfolder) to each file using
// the ordered pattern table from the policy. First match wins.
type Classifier struct {
	categories []compiledCategory
}

// NewClassifier compiles the policy's category table. An invalid pattern is
// an error: a silently dropped rule could misroute files.
func NewClassifier(policy *m.Policy) (*Classifier, error) {
	c := &Classifier{}

	for _, rule := range policy.Categories {
		compiled := compiledCategory{rule: rule}

		for _, pattern := range rule.Patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("category %s: bad pattern %q: %w", rule.Name, pattern, err)
			}

			compiled.patterns = append(compiled.patterns, re)
		}

		for _, sub := range rule.Subfolders {
			cs := compiledSubfolder{name: sub.Name}

			for _, pattern := range sub.Patterns {
				re, err := regexp.Compile(pattern)
				if err != nil {
					return nil, fmt.Errorf("category %s subfolder %s: bad pattern %q: %w", rule.Name, sub.Name, pattern, err)
				}

				cs.patterns = append(cs.patterns, re)
			}

			compiled.subfolders = append(compiled.subfolders, cs)
		}

		c.categories = append(c.categories, compiled)
	}

	return c, nil
}

// Classify returns the verdict for one project-relative path. Files that
// match no rule keep the uncategorized tag and are never relocated.
func (c *Classifier) Classify(file m.Path) Classification {
	p := string(file)
	name := path.Base(p)

	for _, cat := range c.categories {
		if !matchAny(cat.patterns, p) {
			continue
		}

		verdict := Classification{
			Category:         cat.rule.Name,
			Base:             cat.rule.Base,
			PreserveLocation: cat.rule.PreserveLocation,
		}

		for _, sub := range cat.subfolders {
			if matchAny(sub.patterns, name) {
				verdict.Subfolder = sub.name
				break
			}
		}

		if dir, ok := componentDirFor(name); ok && cat.rule.Name == m.CategoryComponents {
			verdict.ComponentDir = dir
		}

		slog.Debug("classified file", "path", file, "category", verdict.Category, "subfolder", verdict.Subfolder)

		return verdict
	}

	return Classification{Category: m.CategoryUncategorized}
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}

	return false
}

// componentDirFor reports whether a file follows the component-per-folder
// convention: a .tsx/.jsx file whose base name starts with a capital letter.
func componentDirFor(name string) (string, bool) {
	ext := path.Ext(name)
	if ext != ".tsx" && ext != ".jsx" {
		return "", false
	}

	base := strings.TrimSuffix(name, ext)
	if base == "" {
		return "", false
	}

	first := []rune(base)[0]
	if !unicode.IsUpper(first) {
		return "", false
	}

	return base, true
}
