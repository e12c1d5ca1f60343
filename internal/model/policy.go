package model

// SubfolderRule names a group of filename patterns placed into a subfolder
// under the owning category's base directory.
type SubfolderRule struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
}

// CategoryRule is one ordered entry of the classifier table. The first
// category whose any pattern matches a file wins.
type CategoryRule struct {
	Name       Category        `yaml:"name"`
	Base       string          `yaml:"base"`
	Patterns   []string        `yaml:"patterns"`
	Subfolders []SubfolderRule `yaml:"subfolders,omitempty"`

	// PreserveLocation marks categories whose file locations carry meaning
	// (routing conventions); such files are classified but never moved.
	PreserveLocation bool `yaml:"preserveLocation,omitempty"`
}

// EntryPointPolicy lists files exempt from unused-file pruning. Routing
// conventions reference files by location rather than by import, so a zero
// usage count alone does not make a file dead.
type EntryPointPolicy struct {
	// RoutingNames are base names (without extension) reserved by the
	// framework routing convention, e.g. page, layout, loading.
	RoutingNames []string `yaml:"routingNames"`

	// Files are explicit project-relative paths always kept.
	Files []string `yaml:"files"`
}

// DesignTokens are the canonical style values that drift detection snaps
// nearby literals to.
type DesignTokens struct {
	Colors      []string  `yaml:"colors"`
	FontSizesPx []float64 `yaml:"fontSizesPx"`
}

// DriftThresholds bound which style literals are considered fixable. The
// numbers are conventions, not derivations, so they stay configurable.
type DriftThresholds struct {
	MaxColorDistance   float64 `yaml:"maxColorDistance"`
	MaxFontDeltaPx     float64 `yaml:"maxFontDeltaPx"`
	FrequencyThreshold int     `yaml:"frequencyThreshold"`
}

// Policy is the per-project maintenance policy, loadable from a YAML file
// next to the target tree. Every knob has a built-in default.
type Policy struct {
	Categories     []CategoryRule   `yaml:"categories"`
	EntryPoints    EntryPointPolicy `yaml:"entryPoints"`
	DesignTokens   DesignTokens     `yaml:"designTokens"`
	Drift          DriftThresholds  `yaml:"drift"`
	ProtectedRoots []string         `yaml:"protectedRoots"`
	Exclude        []string         `yaml:"exclude"`
}
