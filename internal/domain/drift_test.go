package domain

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"groundskeeper.dev/pkg/groundskeeper/internal/adapter"
	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

func newDriftFixture(t *testing.T, dryRun bool) (*DriftChecker, string) {
	t.Helper()

	root := t.TempDir()
	fs := adapter.NewLocalSourceFSAdapter()
	backup := adapter.NewLocalBackupStore(t.TempDir())

	return NewDriftChecker(fs, backup, DefaultPolicy(), dryRun), root
}

func styleFiles(paths ...string) []*m.SourceFile {
	files := make([]*m.SourceFile, 0, len(paths))
	for _, p := range paths {
		files = append(files, &m.SourceFile{Path: m.Path(p), Category: m.CategoryStyles})
	}

	return files
}

func TestDriftCheck(t *testing.T) {
	t.Run("near-token color reported once", func(t *testing.T) {
		checker, root := newDriftFixture(t, false)
		writeFile(t, filepath.Join(root, "styles/app.css"),
			".card { background: #fdfdfd; }\n")

		issues, fixes := checker.Check(m.Path(root), styleFiles("styles/app.css"))

		require.Len(t, issues, 1)
		assert.Equal(t, "color-drift", issues[0].Rule)
		assert.Equal(t, 1, issues[0].Line)
		assert.Contains(t, issues[0].Message, "#ffffff")

		require.Len(t, fixes, 1)
		assert.Equal(t, "#fdfdfd", fixes[0].Old)
		assert.Equal(t, "#ffffff", fixes[0].New)
	})

	t.Run("high-frequency literal presumed intentional", func(t *testing.T) {
		checker, root := newDriftFixture(t, false)

		// six occurrences, above the default threshold of five
		line := ".x { color: #fdfdfd; }\n"
		writeFile(t, filepath.Join(root, "styles/app.css"), strings.Repeat(line, 6))

		issues, _ := checker.Check(m.Path(root), styleFiles("styles/app.css"))
		assert.Empty(t, issues)
	})

	t.Run("exact token never reported", func(t *testing.T) {
		checker, root := newDriftFixture(t, false)
		writeFile(t, filepath.Join(root, "styles/app.css"),
			".card { background: #ffffff; color: #333333; }\n")

		issues, _ := checker.Check(m.Path(root), styleFiles("styles/app.css"))
		assert.Empty(t, issues)
	})

	t.Run("distant color left alone", func(t *testing.T) {
		checker, root := newDriftFixture(t, false)
		writeFile(t, filepath.Join(root, "styles/app.css"),
			".brand { color: #00ff00; }\n")

		issues, _ := checker.Check(m.Path(root), styleFiles("styles/app.css"))
		assert.Empty(t, issues)
	})

	t.Run("font size within delta", func(t *testing.T) {
		checker, root := newDriftFixture(t, false)
		writeFile(t, filepath.Join(root, "styles/type.css"),
			"h2 { font-size: 15px; }\nh3 { font-size: 28px; }\np { font-size: 16px; }\n")

		issues, fixes := checker.Check(m.Path(root), styleFiles("styles/type.css"))

		// 15px sits within 2px of a token; 28px is 4px off the nearest and
		// 16px is an exact token.
		require.Len(t, issues, 1)
		assert.Equal(t, "font-size-drift", issues[0].Rule)

		require.Len(t, fixes, 1)
		assert.Equal(t, "15px", fixes[0].Old)
	})

	t.Run("non-style files ignored", func(t *testing.T) {
		checker, root := newDriftFixture(t, false)
		writeFile(t, filepath.Join(root, "src/theme.ts"),
			"export const bg = '#fdfdfd';\n")

		files := []*m.SourceFile{{Path: "src/theme.ts", Category: m.CategoryUtils}}

		issues, _ := checker.Check(m.Path(root), files)
		assert.Empty(t, issues)
	})
}

func TestDriftFix(t *testing.T) {
	t.Run("applies grouped replacements", func(t *testing.T) {
		checker, root := newDriftFixture(t, false)
		abs := filepath.Join(root, "styles/app.css")
		writeFile(t, abs, ".a { color: #fdfdfd; }\n.b { font-size: 15px; }\n")

		files := styleFiles("styles/app.css")
		_, fixes := checker.Check(m.Path(root), files)
		require.NotEmpty(t, fixes)

		changed := checker.Fix(m.Path(root), fixes)

		require.Len(t, changed, 1)

		content := readFile(t, abs)
		assert.Contains(t, content, "#ffffff")
		assert.Contains(t, content, "14px", "15px snaps to the nearest token")
		assert.NotContains(t, content, "#fdfdfd")
	})

	t.Run("only font-size declarations change", func(t *testing.T) {
		checker, root := newDriftFixture(t, false)
		abs := filepath.Join(root, "styles/app.css")
		writeFile(t, abs,
			"h1 { font-size: 15px; margin: 15px; }\nh2 { font-size: 115px; }\n")

		_, fixes := checker.Check(m.Path(root), styleFiles("styles/app.css"))
		require.Len(t, fixes, 1)

		checker.Fix(m.Path(root), fixes)

		content := readFile(t, abs)
		assert.Contains(t, content, "font-size: 14px")
		assert.Contains(t, content, "margin: 15px", "non-font-size property keeps its value")
		assert.Contains(t, content, "font-size: 115px", "out-of-bound size keeps its value")
	})

	t.Run("short color literal never rewrites inside a longer one", func(t *testing.T) {
		checker, root := newDriftFixture(t, false)
		abs := filepath.Join(root, "styles/app.css")
		writeFile(t, abs, ".a { color: #ffe; }\n.b { background: #ffe0b2; }\n")

		_, fixes := checker.Check(m.Path(root), styleFiles("styles/app.css"))
		require.Len(t, fixes, 1)
		require.Equal(t, "#ffe", fixes[0].Old)

		checker.Fix(m.Path(root), fixes)

		content := readFile(t, abs)
		assert.Contains(t, content, fixes[0].New)
		assert.NotContains(t, content, "#ffe;")
		assert.Contains(t, content, "#ffe0b2", "longer literal sharing the prefix stays intact")
	})

	t.Run("dry run leaves files untouched", func(t *testing.T) {
		checker, root := newDriftFixture(t, true)
		abs := filepath.Join(root, "styles/app.css")
		original := ".a { color: #fdfdfd; }\n"
		writeFile(t, abs, original)

		_, fixes := checker.Check(m.Path(root), styleFiles("styles/app.css"))
		changed := checker.Fix(m.Path(root), fixes)

		assert.Len(t, changed, 1, "dry run still reports the planned change")
		assert.Equal(t, original, readFile(t, abs))
	})
}
