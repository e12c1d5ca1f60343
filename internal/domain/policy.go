package domain

import m "groundskeeper.dev/pkg/groundskeeper/internal/model"

// DefaultPolicy returns the built-in maintenance policy. Every knob here can
// be overridden by a project policy file; the entry-point allowlist in
// particular is convention-specific and misclassification deletes files, so
// it must stay editable rather than hard-coded.
func DefaultPolicy() *m.Policy {
	return &m.Policy{
		Categories: []m.CategoryRule{
			{
				Name: m.CategoryPages,
				Base: "pages",
				Patterns: []string{
					`(^|/)pages/`,
					`(^|/)app/.*\b(page|layout|loading|error|not-found)\.[jt]sx?$`,
				},
				PreserveLocation: true,
			},
			{
				Name:     m.CategoryStyles,
				Base:     "styles",
				Patterns: []string{`\.(css|scss)$`},
			},
			{
				Name:     m.CategoryTypes,
				Base:     "types",
				Patterns: []string{`\.d\.ts$`, `(^|/)types?/`},
			},
			{
				Name:     m.CategoryAssets,
				Base:     "assets",
				Patterns: []string{`\.(svg|png|jpe?g|gif|ico|woff2?)$`},
			},
			{
				Name:     m.CategoryHooks,
				Base:     "hooks",
				Patterns: []string{`(^|/)use[A-Z]\w*\.[jt]sx?$`},
			},
			{
				Name:     m.CategoryAPI,
				Base:     "api",
				Patterns: []string{`(^|/)(api|services?)/`},
			},
			{
				Name:     m.CategoryConfig,
				Base:     "config",
				Patterns: []string{`\.config\.[jt]s$`, `\.\w+rc(\.json)?$`},
			},
			{
				Name:     m.CategoryUtils,
				Base:     "utils",
				Patterns: []string{`(^|/)(utils?|helpers?|lib)/`, `\b(helpers?|utils?)\.[jt]s$`},
				Subfolders: []m.SubfolderRule{
					{Name: "validation", Patterns: []string{`validat`}},
					{Name: "formatting", Patterns: []string{`format`}},
				},
			},
			{
				Name:     m.CategoryComponents,
				Base:     "components",
				Patterns: []string{`\.[jt]sx$`},
			},
		},
		EntryPoints: m.EntryPointPolicy{
			RoutingNames: []string{"page", "layout", "loading", "error", "not-found", "route", "middleware"},
			Files: []string{
				"index.js", "index.ts", "main.js", "main.ts",
				"src/index.js", "src/index.ts", "src/main.js", "src/main.ts",
				"next.config.js", "vite.config.js", "vite.config.ts",
				"package.json", "tsconfig.json",
			},
		},
		DesignTokens: m.DesignTokens{
			Colors: []string{
				"#1a1a2e", "#16213e", "#0f3460", "#e94560",
				"#ffffff", "#f5f5f5", "#333333", "#666666",
			},
			FontSizesPx: []float64{12, 14, 16, 18, 20, 24, 32, 48},
		},
		Drift: m.DriftThresholds{
			MaxColorDistance:   30,
			MaxFontDeltaPx:     2,
			FrequencyThreshold: 5,
		},
		ProtectedRoots: []string{"pages", "app", "public", "styles"},
	}
}
