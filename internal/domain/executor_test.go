package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"groundskeeper.dev/pkg/groundskeeper/internal/adapter"
	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(data)
}

type executorFixture struct {
	root     string
	fs       adapter.SourceFSAdapter
	backup   *adapter.LocalBackupStore
	executor *Executor
	resolver *Resolver
}

func newExecutorFixture(t *testing.T, dryRun bool) *executorFixture {
	t.Helper()

	fs := adapter.NewLocalSourceFSAdapter()
	resolver := NewResolver()
	backup := adapter.NewLocalBackupStore(t.TempDir())

	return &executorFixture{
		root:     t.TempDir(),
		fs:       fs,
		backup:   backup,
		executor: NewExecutor(fs, backup, resolver, DefaultPolicy(), dryRun),
		resolver: resolver,
	}
}

func (f *executorFixture) buildGraph(t *testing.T) *Graph {
	t.Helper()

	scanner := NewScanner(f.fs, nil, 2)

	files, err := scanner.Scan(m.Path(f.root))
	require.NoError(t, err)

	return NewGraphBuilder(f.fs, f.resolver).Build(m.Path(f.root), files)
}

func TestRelocateAndRewrite(t *testing.T) {
	f := newExecutorFixture(t, false)

	// Widget.jsx moves to components/Widget/; helpers.js stays under utils/.
	// The import inside Widget.jsx must be recomputed for the new depth even
	// though its target never moved.
	writeFile(t, filepath.Join(f.root, "Widget.jsx"),
		"import { fmt } from './utils/helpers';\nexport const Widget = () => fmt('w');\n")
	writeFile(t, filepath.Join(f.root, "utils", "helpers.js"),
		"export const fmt = (s) => s;\n")

	graph := f.buildGraph(t)

	p := NewPlanner(newDefaultClassifier(t), DefaultPolicy())
	plan := p.Plan(graph)

	result := f.executor.Relocate(m.Path(f.root), plan)
	require.Zero(t, result.Errors)
	require.Len(t, result.Moved, 1)
	assert.Equal(t, m.Path("components/Widget/Widget.jsx"), result.Moved[0].NewPath)

	rewritten, errCount := f.executor.RewriteReferences(m.Path(f.root), graph, result.Moved)
	require.Zero(t, errCount)
	require.Len(t, rewritten, 1)

	moved := readFile(t, filepath.Join(f.root, "components", "Widget", "Widget.jsx"))
	assert.Contains(t, moved, "from '../../utils/helpers'")

	// Original location is gone, target untouched.
	_, err := os.Stat(filepath.Join(f.root, "Widget.jsx"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, "export const fmt = (s) => s;\n",
		readFile(t, filepath.Join(f.root, "utils", "helpers.js")))
}

func TestRewrite_UnmovedImporterFollowsMovedTarget(t *testing.T) {
	f := newExecutorFixture(t, false)

	// index.js stays put while its import target relocates under utils/.
	writeFile(t, filepath.Join(f.root, "src", "index.js"),
		"import { fmt } from './helpers';\nfmt('x');\n")
	writeFile(t, filepath.Join(f.root, "src", "helpers.js"),
		"export const fmt = (s) => s;\n")

	graph := f.buildGraph(t)
	plan := NewPlanner(newDefaultClassifier(t), DefaultPolicy()).Plan(graph)

	result := f.executor.Relocate(m.Path(f.root), plan)
	require.Zero(t, result.Errors)
	require.Len(t, result.Moved, 1)
	assert.Equal(t, m.Path("utils/helpers.js"), result.Moved[0].NewPath)

	rewritten, errCount := f.executor.RewriteReferences(m.Path(f.root), graph, result.Moved)
	require.Zero(t, errCount)
	assert.Contains(t, rewritten, m.Path("src/index.js"))

	content := readFile(t, filepath.Join(f.root, "src", "index.js"))
	assert.Contains(t, content, "from '../utils/helpers'")
}

func TestRelocate_BacksUpBeforeMoving(t *testing.T) {
	f := newExecutorFixture(t, false)

	writeFile(t, filepath.Join(f.root, "Thing.jsx"), "export const Thing = 1;\n")

	graph := f.buildGraph(t)
	plan := NewPlanner(newDefaultClassifier(t), DefaultPolicy()).Plan(graph)

	result := f.executor.Relocate(m.Path(f.root), plan)
	require.Len(t, result.Moved, 1)

	saved, err := f.backup.Restore("Thing.jsx")
	require.NoError(t, err)
	assert.Equal(t, "export const Thing = 1;\n", string(saved))
}

func TestRelocate_DryRunTouchesNothing(t *testing.T) {
	f := newExecutorFixture(t, true)

	writeFile(t, filepath.Join(f.root, "Thing.jsx"), "export const Thing = 1;\n")

	graph := f.buildGraph(t)
	plan := NewPlanner(newDefaultClassifier(t), DefaultPolicy()).Plan(graph)

	result := f.executor.Relocate(m.Path(f.root), plan)
	assert.Len(t, result.Moved, 1, "dry run still reports the planned moves")

	_, err := os.Stat(filepath.Join(f.root, "Thing.jsx"))
	assert.NoError(t, err, "original file must remain")
	_, err = os.Stat(filepath.Join(f.root, "components"))
	assert.True(t, os.IsNotExist(err), "no target directory may appear")
}

func TestPrune(t *testing.T) {
	f := newExecutorFixture(t, false)

	writeFile(t, filepath.Join(f.root, "src", "main.js"), "import './kept';\n")
	writeFile(t, filepath.Join(f.root, "src", "kept.js"), "export default 1;\n")
	writeFile(t, filepath.Join(f.root, "src", "dead", "orphan.js"), "export default 2;\n")

	graph := f.buildGraph(t)
	plan := NewPlanner(newDefaultClassifier(t), DefaultPolicy()).Plan(graph)

	require.True(t, plan.IsUnused("src/dead/orphan.js"))

	result := f.executor.Prune(m.Path(f.root), plan, nil)
	require.Zero(t, result.Errors)
	assert.Contains(t, result.Pruned, m.Path("src/dead/orphan.js"))

	// The deletion is backed up and the emptied directory is swept.
	saved, err := f.backup.Restore("src/dead/orphan.js")
	require.NoError(t, err)
	assert.Equal(t, "export default 2;\n", string(saved))

	_, err = os.Stat(filepath.Join(f.root, "src", "dead"))
	assert.True(t, os.IsNotExist(err))
}

func TestPrune_ProtectedRootsSurviveSweep(t *testing.T) {
	f := newExecutorFixture(t, false)

	require.NoError(t, os.MkdirAll(filepath.Join(f.root, "pages"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(f.root, "scratch"), 0o755))

	f.executor.Prune(m.Path(f.root), m.RelocationPlan{}, nil)

	_, err := os.Stat(filepath.Join(f.root, "pages"))
	assert.NoError(t, err, "protected root must survive even when empty")
	_, err = os.Stat(filepath.Join(f.root, "scratch"))
	assert.True(t, os.IsNotExist(err), "unprotected empty directory is swept")
}

func TestPrune_KeepDirsSurviveSweep(t *testing.T) {
	f := newExecutorFixture(t, false)
	f.executor.KeepDirs([]string{".groundskeeper-lock"})

	require.NoError(t, os.MkdirAll(filepath.Join(f.root, ".groundskeeper-lock"), 0o755))

	f.executor.Prune(m.Path(f.root), m.RelocationPlan{}, nil)

	_, err := os.Stat(filepath.Join(f.root, ".groundskeeper-lock"))
	assert.NoError(t, err, "registered artifact directory must survive the sweep")
}

func TestSynthesizeIndexes(t *testing.T) {
	f := newExecutorFixture(t, false)

	writeFile(t, filepath.Join(f.root, "components", "Button", "Button.tsx"), "export const Button = 1;\n")
	writeFile(t, filepath.Join(f.root, "components", "Card", "Card.jsx"), "export const Card = 1;\n")

	created, err := f.executor.SynthesizeIndexes(m.Path(f.root))
	require.NoError(t, err)
	require.Len(t, created, 2)

	// TS siblings get index.ts, JS siblings index.js.
	assert.Equal(t, "export * from './Button';\n",
		readFile(t, filepath.Join(f.root, "components", "Button", "index.ts")))
	assert.Equal(t, "export * from './Card';\n",
		readFile(t, filepath.Join(f.root, "components", "Card", "index.js")))

	// Idempotent: a second pass creates nothing.
	again, err := f.executor.SynthesizeIndexes(m.Path(f.root))
	require.NoError(t, err)
	assert.Empty(t, again)
}
