package adapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

func TestBackupStore_RoundTrip(t *testing.T) {
	store := NewLocalBackupStore(t.TempDir())

	location, err := store.Backup("src/utils/helpers.js", []byte("export const a = 1;\n"))
	require.NoError(t, err)

	// the project-relative path is mirrored under the backup root
	assert.Equal(t, filepath.Join(string(store.Root()), "src/utils/helpers.js"), string(location))

	saved, err := store.Restore("src/utils/helpers.js")
	require.NoError(t, err)
	assert.Equal(t, "export const a = 1;\n", string(saved))
}

func TestBackupStore_OverwriteKeepsLatest(t *testing.T) {
	store := NewLocalBackupStore(t.TempDir())

	_, err := store.Backup("a.js", []byte("first"))
	require.NoError(t, err)
	_, err = store.Backup("a.js", []byte("second"))
	require.NoError(t, err)

	saved, err := store.Restore("a.js")
	require.NoError(t, err)
	assert.Equal(t, "second", string(saved))
}

func TestBackupStore_RejectsEscapingPaths(t *testing.T) {
	store := NewLocalBackupStore(t.TempDir())

	for _, path := range []string{"../outside.js", "a/../../outside.js", "/etc/passwd"} {
		_, err := store.Backup(m.Path(path), []byte("x"))
		assert.Error(t, err, "path %s must be rejected", path)

		_, err = store.Restore(m.Path(path))
		assert.Error(t, err)
	}

	// nothing may have landed outside the root
	entries, err := os.ReadDir(string(store.Root()))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
