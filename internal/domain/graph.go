package domain

import (
	"log/slog"

	"groundskeeper.dev/pkg/groundskeeper/internal/adapter"
	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

// Graph is the per-run dependency graph: every scanned file with its
// outbound references and inbound usage count. Computed fresh each run,
// never persisted.
type Graph struct {
	Root  m.Path
	Files map[m.Path]*m.SourceFile
	Order []m.Path
}

// GraphBuilder resolves references for a scanned file set.
type GraphBuilder struct {
	fs       adapter.SourceFSAdapter
	resolver *Resolver
}

// NewGraphBuilder constructs a GraphBuilder.
func NewGraphBuilder(fs adapter.SourceFSAdapter, resolver *Resolver) *GraphBuilder {
	return &GraphBuilder{fs: fs, resolver: resolver}
}

// Build reads every code file, extracts its relative references, resolves
// them against the scanned set and accumulates usage counts. A file that
// fails to read contributes no references but stays in the graph.
func (b *GraphBuilder) Build(root m.Path, files []*m.SourceFile) *Graph {
	graph := &Graph{
		Root:  root,
		Files: make(map[m.Path]*m.SourceFile, len(files)),
	}

	for _, file := range files {
		graph.Files[file.Path] = file
		graph.Order = append(graph.Order, file.Path)
	}

	exists := func(p m.Path) bool {
		_, ok := graph.Files[p]
		return ok
	}

	for _, file := range files {
		if file.Lines == 0 {
			continue // assets and unreadable files carry no outbound refs
		}

		content, err := b.fs.ReadFile(b.fs.JoinPath(string(root), string(file.Path)))
		if err != nil {
			slog.Warn("reference scan skipped", "path", file.Path, "error", err)
			continue
		}

		file.Refs = b.resolver.References(file.Path, string(content), exists)

		for _, ref := range file.Refs {
			if ref.Resolved == "" {
				continue
			}

			if target, ok := graph.Files[ref.Resolved]; ok {
				target.UsageCount++
			}
		}
	}

	return graph
}

// Lookup returns the graph entry for a path.
func (g *Graph) Lookup(path m.Path) (*m.SourceFile, bool) {
	file, ok := g.Files[path]
	return file, ok
}
