package domain

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"groundskeeper.dev/pkg/groundskeeper/internal/adapter"
	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

// ExecResult summarizes what the executor actually changed on disk.
type ExecResult struct {
	Moved     []m.Move
	Rewritten []m.Path
	Pruned    []m.Path
	Indexes   []m.Path
	Errors    int
}

// Changes is the total number of mutations applied.
func (r ExecResult) Changes() int {
	return len(r.Moved) + len(r.Rewritten) + len(r.Pruned) + len(r.Indexes)
}

// Executor applies relocation plans to the tree in three fault-tolerant
// passes: relocate, rewrite references, prune. A failure on one file is
// logged and skipped; it never aborts the batch. No file is deleted or
// overwritten unless its backup write succeeded first.
type Executor struct {
	fs       adapter.SourceFSAdapter
	backup   adapter.BackupStore
	resolver *Resolver
	policy   *m.Policy
	dryRun   bool
	keepDirs []string
}

// NewExecutor constructs an Executor. With dryRun set it reports what it
// would change without touching the disk.
func NewExecutor(fs adapter.SourceFSAdapter, backup adapter.BackupStore, resolver *Resolver, policy *m.Policy, dryRun bool) *Executor {
	return &Executor{fs: fs, backup: backup, resolver: resolver, policy: policy, dryRun: dryRun}
}

// KeepDirs marks extra root-relative directories the empty-directory sweep
// must leave alone, on top of the policy's protected roots. The workflow
// registers its own backup, report and lock locations here.
func (e *Executor) KeepDirs(rels []string) {
	e.keepDirs = append(e.keepDirs, rels...)
}

// Relocate performs pass one: back up, write to the new path, delete the
// original. Returns the moves that actually happened.
func (e *Executor) Relocate(root m.Path, plan m.RelocationPlan) ExecResult {
	var result ExecResult

	for _, mv := range plan.ChangedMoves() {
		if e.dryRun {
			result.Moved = append(result.Moved, mv)
			continue
		}

		oldAbs := e.fs.JoinPath(string(root), string(mv.OldPath))

		content, err := e.fs.ReadFile(oldAbs)
		if err != nil {
			slog.Warn("relocate: read failed, skipping", "path", mv.OldPath, "error", err)
			result.Errors++

			continue
		}

		if _, err := e.backup.Backup(mv.OldPath, content); err != nil {
			slog.Warn("relocate: backup failed, skipping", "path", mv.OldPath, "error", err)
			result.Errors++

			continue
		}

		newAbs := e.fs.JoinPath(string(root), string(mv.NewPath))
		if err := e.fs.WriteFile(newAbs, content, 0o644); err != nil {
			slog.Warn("relocate: write failed, skipping", "path", mv.NewPath, "error", err)
			result.Errors++

			continue
		}

		// the original is only deleted once the copy verifies
		oldHash, oldErr := e.fs.HashFile(oldAbs)
		newHash, newErr := e.fs.HashFile(newAbs)

		if oldErr != nil || newErr != nil || oldHash != newHash {
			slog.Warn("relocate: copy verification failed, keeping original", "path", mv.OldPath)
			_ = e.fs.Remove(newAbs)
			result.Errors++

			continue
		}

		if err := e.fs.Remove(oldAbs); err != nil {
			slog.Warn("relocate: could not remove original", "path", mv.OldPath, "error", err)
			result.Errors++
		}

		result.Moved = append(result.Moved, mv)
	}

	return result
}

// RewriteReferences performs pass two: every reference invalidated by the
// moves gets a freshly computed relative path from the referrer's current
// location to the target's current location. Both directions matter: a file
// that moved must repoint all of its own references, and a file that stayed
// put must repoint references into files that moved away. This is a path
// recomputation, not a string substitution of the old target name.
func (e *Executor) RewriteReferences(root m.Path, graph *Graph, moved []m.Move) ([]m.Path, int) {
	movedTo := make(map[m.Path]m.Path, len(moved))
	for _, mv := range moved {
		movedTo[mv.OldPath] = mv.NewPath
	}

	var rewritten []m.Path

	errors := 0

	for _, old := range graph.Order {
		entry, ok := graph.Lookup(old)
		if !ok || len(entry.Refs) == 0 {
			continue
		}

		current := old

		fileMoved := false
		if to, wasMoved := movedTo[old]; wasMoved {
			current = to
			fileMoved = true
		}

		abs := e.fs.JoinPath(string(root), string(current))

		var content string

		read := false

		changed := false

		for _, ref := range entry.Refs {
			if ref.Resolved == "" {
				continue
			}

			target := ref.Resolved

			targetMoved := false
			if to, wasMoved := movedTo[target]; wasMoved {
				target = to
				targetMoved = true
			}

			// an unmoved file keeps its references to unmoved targets as-is
			if !fileMoved && !targetMoved {
				continue
			}

			newSpec := newSpecifier(current, ref.Raw, ref.Resolved, target)
			if newSpec == ref.Raw {
				continue
			}

			if e.dryRun {
				changed = true
				continue
			}

			if !read {
				raw, err := e.fs.ReadFile(abs)
				if err != nil {
					slog.Warn("rewrite: read failed, skipping", "path", current, "error", err)
					errors++

					break
				}

				content = string(raw)
				read = true
			}

			replaced := replaceSpecifier(content, ref.Raw, newSpec)
			if replaced != content {
				content = replaced
				changed = true
			}
		}

		if !changed {
			continue
		}

		if !e.dryRun {
			if err := e.fs.WriteFile(abs, []byte(content), 0o644); err != nil {
				slog.Warn("rewrite: write failed", "path", current, "error", err)
				errors++

				continue
			}
		}

		rewritten = append(rewritten, current)
	}

	return rewritten, errors
}

// newSpecifier computes the specifier text pointing from the mover's new
// location to the target's new location, keeping the shape of the original
// specifier: extensionless stays extensionless, directory-index references
// stay directory references.
func newSpecifier(fromNew m.Path, raw string, resolvedOld, targetNew m.Path) string {
	targetPath := string(targetNew)

	// A raw specifier that resolved through the index fallback keeps its
	// directory form.
	rawBase := path.Base(raw)
	resolvedBase := path.Base(string(resolvedOld))

	indexResolved := strings.HasPrefix(resolvedBase, "index.") && !strings.HasPrefix(rawBase, "index")
	if indexResolved {
		targetPath = path.Dir(targetPath)
	} else if path.Ext(raw) == "" {
		targetPath = strings.TrimSuffix(targetPath, path.Ext(targetPath))
	}

	rel, err := filepath.Rel(path.Dir(string(fromNew)), targetPath)
	if err != nil {
		return raw
	}

	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, "../") && !strings.HasPrefix(rel, "./") {
		rel = "./" + rel
	}

	return rel
}

// replaceSpecifier swaps a quoted specifier for its replacement, preserving
// the original quote style.
func replaceSpecifier(content, oldSpec, newSpec string) string {
	content = strings.ReplaceAll(content, "'"+oldSpec+"'", "'"+newSpec+"'")
	content = strings.ReplaceAll(content, `"`+oldSpec+`"`, `"`+newSpec+`"`)

	return content
}

// Prune performs pass three: delete (with backup) unused files that were not
// relocated, then sweep away directories left empty, excluding protected
// roots.
func (e *Executor) Prune(root m.Path, plan m.RelocationPlan, moved []m.Move) ExecResult {
	var result ExecResult

	movedAway := make(map[m.Path]bool, len(moved))
	for _, mv := range moved {
		movedAway[mv.OldPath] = true
	}

	for _, unused := range plan.Unused {
		if movedAway[unused] {
			continue
		}

		if e.dryRun {
			result.Pruned = append(result.Pruned, unused)
			continue
		}

		abs := e.fs.JoinPath(string(root), string(unused))

		content, err := e.fs.ReadFile(abs)
		if err != nil {
			slog.Warn("prune: read failed, skipping", "path", unused, "error", err)
			result.Errors++

			continue
		}

		if _, err := e.backup.Backup(unused, content); err != nil {
			slog.Warn("prune: backup failed, skipping", "path", unused, "error", err)
			result.Errors++

			continue
		}

		if err := e.fs.Remove(abs); err != nil {
			slog.Warn("prune: remove failed", "path", unused, "error", err)
			result.Errors++

			continue
		}

		result.Pruned = append(result.Pruned, unused)
	}

	if !e.dryRun {
		e.sweepEmptyDirs(root)
	}

	return result
}

// sweepEmptyDirs removes directories with zero entries, deepest first, so a
// chain of newly empty parents collapses in one pass.
func (e *Executor) sweepEmptyDirs(root m.Path) {
	protected := make(map[string]bool, len(e.policy.ProtectedRoots)+len(e.keepDirs))
	for _, p := range e.policy.ProtectedRoots {
		protected[p] = true
	}

	for _, p := range e.keepDirs {
		protected[p] = true
	}

	var dirs []string

	_ = e.fs.Walk(root, true, func(p string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() || p == string(root) {
			return nil
		}

		rel, relErr := e.fs.RelPath(root, m.Path(p))
		if relErr != nil {
			return nil
		}

		relStr := filepath.ToSlash(string(rel))
		top := strings.SplitN(relStr, "/", 2)[0]

		if protected[relStr] || protected[top] || defaultExcludedDirs[top] {
			return filepath.SkipDir
		}

		dirs = append(dirs, p)

		return nil
	})

	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })

	for _, dir := range dirs {
		if err := e.fs.RemoveEmptyDir(m.Path(dir)); err == nil {
			slog.Debug("removed empty directory", "path", dir)
		}
	}
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// SynthesizeIndexes creates a barrel file in every directory that holds
// importable files but no index. Re-running when an index already exists is
// a no-op.
func (e *Executor) SynthesizeIndexes(root m.Path) ([]m.Path, error) {
	siblings := make(map[string][]string)
	hasIndex := make(map[string]bool)
	hasTS := make(map[string]bool)

	err := e.fs.Walk(root, true, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		if info.IsDir() {
			rel, relErr := e.fs.RelPath(root, m.Path(p))
			if relErr == nil && e.isExcludedDir(string(rel)) && p != string(root) {
				return filepath.SkipDir
			}

			return nil
		}

		ext := strings.ToLower(filepath.Ext(p))
		if ext != ".js" && ext != ".jsx" && ext != ".ts" && ext != ".tsx" {
			return nil
		}

		dir := filepath.Dir(p)

		base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		if base == "index" {
			hasIndex[dir] = true
			return nil
		}

		if ext == ".ts" || ext == ".tsx" {
			hasTS[dir] = true
		}

		if identifierPattern.MatchString(base) {
			siblings[dir] = append(siblings[dir], base)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	var created []m.Path

	dirs := make([]string, 0, len(siblings))
	for dir := range siblings {
		dirs = append(dirs, dir)
	}

	sort.Strings(dirs)

	for _, dir := range dirs {
		if hasIndex[dir] {
			continue
		}

		names := siblings[dir]
		sort.Strings(names)

		var b strings.Builder
		for _, name := range names {
			fmt.Fprintf(&b, "export * from './%s';\n", name)
		}

		indexName := "index.js"
		if hasTS[dir] {
			indexName = "index.ts"
		}

		indexPath := e.fs.JoinPath(dir, indexName)

		if !e.dryRun {
			if err := e.fs.WriteFile(indexPath, []byte(b.String()), 0o644); err != nil {
				slog.Warn("index synthesis failed", "path", indexPath, "error", err)
				continue
			}
		}

		if rel, relErr := e.fs.RelPath(root, indexPath); relErr == nil {
			created = append(created, rel)
		}
	}

	return created, nil
}

func (e *Executor) isExcludedDir(rel string) bool {
	slashed := filepath.ToSlash(rel)

	for part := range strings.SplitSeq(slashed, "/") {
		if defaultExcludedDirs[part] {
			return true
		}
	}

	for _, keep := range e.keepDirs {
		if slashed == keep || strings.HasPrefix(slashed, keep+"/") {
			return true
		}
	}

	return false
}
