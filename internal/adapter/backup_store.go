package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

// BackupStore copies files into a backup root before any destructive write.
// The executor enforces backup-or-skip: no file is deleted or overwritten
// unless its backup write succeeded first.
type BackupStore interface {
	// Backup writes content under the backup root, mirroring the file's
	// project-relative path. Returns the backup location.
	Backup(relPath m.Path, content []byte) (m.Path, error)

	// Restore returns the backed-up content for a project-relative path.
	Restore(relPath m.Path) ([]byte, error)

	// Root returns the backup root directory.
	Root() m.Path
}

// LocalBackupStore mirrors project-relative paths under a root directory on
// the local disk.
type LocalBackupStore struct {
	root string
}

// NewLocalBackupStore constructs a backup store rooted at dir.
func NewLocalBackupStore(dir string) *LocalBackupStore {
	return &LocalBackupStore{root: dir}
}

// Root returns the backup root directory.
func (s *LocalBackupStore) Root() m.Path {
	return m.Path(s.root)
}

// Backup writes content under the backup root, mirroring relPath.
func (s *LocalBackupStore) Backup(relPath m.Path, content []byte) (m.Path, error) {
	rel := filepath.Clean(string(relPath))
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("backup path %s escapes the project root", relPath)
	}

	dst := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	if err := os.WriteFile(dst, content, 0o644); err != nil {
		return "", fmt.Errorf("write backup %s: %w", dst, err)
	}

	return m.Path(dst), nil
}

// Restore reads back a previously saved backup.
func (s *LocalBackupStore) Restore(relPath m.Path) ([]byte, error) {
	rel := filepath.Clean(string(relPath))
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("backup path %s escapes the project root", relPath)
	}

	return os.ReadFile(filepath.Join(s.root, rel))
}
