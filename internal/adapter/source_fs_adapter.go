// Package adapter contains infrastructure adapters for the groundskeeper CLI.
package adapter

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

// SourceFSAdapter abstracts filesystem operations the domain layer relies on
// when scanning and mutating user projects. It intentionally hides direct
// `os` access so planner and executor logic stay decoupled from the disk.
//
//nolint:interfacebloat // A richer interface keeps domain logic decoupled from os/fs.
type SourceFSAdapter interface {
	// Walk traverses the provided root path. When recursive is false the
	// implementation limits itself to the root directory (no sub-dirs).
	Walk(root m.Path, recursive bool, fn FilepathWalkFunc) error

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(path m.Path) ([]byte, error)

	// WriteFile writes content to a file with the given permissions, creating
	// parent directories as needed.
	WriteFile(path m.Path, content []byte, perm os.FileMode) error

	// WriteFileAtomic writes to a temp file in the same directory and renames
	// it into place, so readers never observe a half-written file.
	WriteFileAtomic(path m.Path, content []byte) error

	// Remove deletes a single file.
	Remove(path m.Path) error

	// RemoveEmptyDir deletes a directory only when it has zero entries.
	RemoveEmptyDir(path m.Path) error

	// FileInfo returns metadata for a path so the domain can check existence
	// or distinguish files from directories.
	FileInfo(path m.Path) (os.FileInfo, error)

	// HashFile returns a stable fingerprint (SHA-256) for the file at path.
	HashFile(path m.Path) (string, error)

	// FindProjectRoot walks up from startPath looking for a package.json,
	// the manifest marking the root of the web projects this tool maintains.
	FindProjectRoot(startPath m.Path) (m.Path, error)

	// RelPath returns the relative path from base to target.
	RelPath(base, target m.Path) (m.Path, error)

	// JoinPath joins path elements into a single path.
	JoinPath(elem ...string) m.Path
}

// FilepathWalkFunc mirrors the callback shape used by filepath.Walk. It is
// defined here to avoid leaking the standard-library type into the domain.
type FilepathWalkFunc func(path string, info os.FileInfo, err error) error

// LocalSourceFSAdapter is the concrete SourceFSAdapter backed by the os
// package.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter ready to be wired
// into the workflow.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// Walk iterates over files under root, optionally descending into subdirectories.
func (a *LocalSourceFSAdapter) Walk(root m.Path, recursive bool, fn FilepathWalkFunc) error {
	rootStr := string(root)

	return filepath.Walk(rootStr, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fn(path, info, err)
		}

		if info.IsDir() && !recursive && path != rootStr {
			return filepath.SkipDir
		}

		return fn(path, info, nil)
	})
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	return os.ReadFile(string(path))
}

// WriteFile writes content to a file, creating parent directories first.
func (a *LocalSourceFSAdapter) WriteFile(path m.Path, content []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return err
	}

	return os.WriteFile(string(path), content, perm)
}

// WriteFileAtomic writes through a temp file and renames it into place.
func (a *LocalSourceFSAdapter) WriteFileAtomic(path m.Path, content []byte) error {
	dir := filepath.Dir(string(path))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	tmp := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)

		return err
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)

		return err
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, string(path)); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return nil
}

// Remove deletes a single file.
func (a *LocalSourceFSAdapter) Remove(path m.Path) error {
	return os.Remove(string(path))
}

// RemoveEmptyDir deletes a directory only when it holds zero entries.
func (a *LocalSourceFSAdapter) RemoveEmptyDir(path m.Path) error {
	entries, err := os.ReadDir(string(path))
	if err != nil {
		return err
	}

	if len(entries) != 0 {
		return fmt.Errorf("directory %s is not empty", path)
	}

	return os.Remove(string(path))
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalSourceFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}

// HashFile returns the SHA-256 hash of the file at the provided path.
func (a *LocalSourceFSAdapter) HashFile(path m.Path) (string, error) {
	f, err := os.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// FindProjectRoot searches for a package.json walking up the directory tree.
func (a *LocalSourceFSAdapter) FindProjectRoot(startPath m.Path) (m.Path, error) {
	dir := string(startPath)

	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		manifest := filepath.Join(dir, "package.json")
		if _, err := os.Stat(manifest); err == nil {
			return m.Path(dir), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("package.json not found in any parent directory of %s", startPath)
		}

		dir = parent
	}
}

// RelPath returns the relative path from base to target.
func (a *LocalSourceFSAdapter) RelPath(base, target m.Path) (m.Path, error) {
	rel, err := filepath.Rel(string(base), string(target))
	if err != nil {
		return "", err
	}

	return m.Path(rel), nil
}

// JoinPath joins path elements into a single path.
func (a *LocalSourceFSAdapter) JoinPath(elem ...string) m.Path {
	return m.Path(filepath.Join(elem...))
}
