// Package model defines the data structures for the codebase maintenance engine.
package model

// Path represents a file system path. Paths stored on SourceFile are relative
// to the project root so that plans survive the tree being mounted elsewhere.
type Path string

// Category is the classification tag assigned to a file by the classifier.
type Category string

// Built-in categories. The classifier table may be extended through the
// project policy file, but these cover the common web-project layout.
const (
	CategoryComponents    Category = "components"
	CategoryPages         Category = "pages"
	CategoryHooks         Category = "hooks"
	CategoryUtils         Category = "utils"
	CategoryStyles        Category = "styles"
	CategoryAPI           Category = "api"
	CategoryTypes         Category = "types"
	CategoryAssets        Category = "assets"
	CategoryConfig        Category = "config"
	CategoryUncategorized Category = "uncategorized"
)

// Reference is a single specifier extracted from a file's content.
type Reference struct {
	// Raw is the specifier text exactly as written (e.g. "./helpers").
	Raw string

	// Resolved is the in-tree file the specifier points at, relative to the
	// project root. Empty when the specifier is external or unresolved.
	Resolved Path
}

// SourceFile describes one candidate file in the scanned tree.
type SourceFile struct {
	Path       Path
	Category   Category
	Subfolder  string // optional subfolder under the category base
	Refs       []Reference
	UsageCount int // inbound references resolving to this file
	Size       int64
	Lines      int
}

// IsUncategorized reports whether the file escaped every classifier rule.
func (f SourceFile) IsUncategorized() bool {
	return f.Category == "" || f.Category == CategoryUncategorized
}
