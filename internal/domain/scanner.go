package domain

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"groundskeeper.dev/pkg/groundskeeper/internal/adapter"
	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

// codeExtensions are files whose content is scanned for references.
var codeExtensions = map[string]bool{
	".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".mjs": true,
	".css": true, ".scss": true,
}

// assetExtensions are enumerated as reference targets but never read as text.
var assetExtensions = map[string]bool{
	".svg": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".ico": true, ".woff": true, ".woff2": true, ".json": true,
}

// defaultExcludedDirs are never scanned regardless of policy.
var defaultExcludedDirs = map[string]bool{
	"node_modules": true, ".git": true, ".next": true, "dist": true,
	"build": true, "coverage": true,
}

// Scanner enumerates candidate files under a project root, excluding
// configured paths, and loads their metadata in parallel.
type Scanner struct {
	fs       adapter.SourceFSAdapter
	excludes []string
	workers  int

	mu sync.Mutex
}

// NewScanner constructs a Scanner. excludes are substring patterns matched
// against project-relative paths; workers bounds parallel file reads.
func NewScanner(fs adapter.SourceFSAdapter, excludes []string, workers int) *Scanner {
	if workers < 1 {
		workers = 4
	}

	return &Scanner{fs: fs, excludes: excludes, workers: workers}
}

// ReduceWorkers halves read parallelism, invoked under memory pressure.
func (s *Scanner) ReduceWorkers() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.workers > 1 {
		s.workers /= 2
	}
}

func (s *Scanner) excluded(rel string) bool {
	for part := range strings.SplitSeq(filepath.ToSlash(rel), "/") {
		if defaultExcludedDirs[part] {
			return true
		}
	}

	for _, pattern := range s.excludes {
		if pattern != "" && strings.Contains(rel, pattern) {
			return true
		}
	}

	return false
}

// Scan walks root and returns one SourceFile per candidate, ordered by path.
// Unreadable files are logged and skipped; the batch continues.
func (s *Scanner) Scan(root m.Path) ([]*m.SourceFile, error) {
	var candidates []struct {
		rel  string
		size int64
	}

	err := s.fs.Walk(root, true, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			slog.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}

		rel, relErr := s.fs.RelPath(root, m.Path(path))
		if relErr != nil {
			return nil
		}

		if info.IsDir() {
			if s.excluded(string(rel)) && path != string(root) {
				return filepath.SkipDir
			}

			return nil
		}

		if s.excluded(string(rel)) {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !codeExtensions[ext] && !assetExtensions[ext] {
			return nil
		}

		candidates = append(candidates, struct {
			rel  string
			size int64
		}{string(rel), info.Size()})

		return nil
	})
	if err != nil {
		return nil, err
	}

	files := make([]*m.SourceFile, len(candidates))

	s.mu.Lock()
	workers := s.workers
	s.mu.Unlock()

	var group errgroup.Group

	group.SetLimit(workers)

	for i, cand := range candidates {
		group.Go(func() error {
			file := &m.SourceFile{
				Path: m.Path(filepath.ToSlash(cand.rel)),
				Size: cand.size,
			}

			if codeExtensions[strings.ToLower(filepath.Ext(cand.rel))] {
				content, readErr := s.fs.ReadFile(s.fs.JoinPath(string(root), cand.rel))
				if readErr != nil {
					slog.Warn("skipping unreadable file", "path", cand.rel, "error", readErr)
				} else {
					file.Lines = bytes.Count(content, []byte("\n")) + 1
				}
			}

			files[i] = file

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return files, nil
}
