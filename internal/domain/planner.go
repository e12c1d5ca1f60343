package domain

import (
	"log/slog"
	"path"
	"sort"
	"strings"

	m "groundskeeper.dev/pkg/groundskeeper/internal/model"
)

// Planner computes a relocation plan from the dependency graph and the
// classifier's verdicts. Planning is pure: given the same unmutated tree it
// always yields the same plan, and it never touches the disk.
type Planner struct {
	classifier *Classifier
	policy     *m.Policy
}

// NewPlanner constructs a Planner.
func NewPlanner(classifier *Classifier, policy *m.Policy) *Planner {
	return &Planner{classifier: classifier, policy: policy}
}

// Plan computes the optimal target path for every classified file plus the
// unused-file set. A planned destination never collides with an existing
// file that is not itself moving away.
func (p *Planner) Plan(graph *Graph) m.RelocationPlan {
	var plan m.RelocationPlan

	verdicts := make(map[m.Path]Classification, len(graph.Order))
	targets := make(map[m.Path]m.Path, len(graph.Order))

	for _, file := range graph.Order {
		verdict := p.classifier.Classify(file)
		verdicts[file] = verdict
		targets[file] = p.targetPath(file, verdict)
	}

	// movingAway marks paths whose occupant has a different destination, so
	// another file may claim the vacated spot.
	movingAway := make(map[m.Path]bool, len(targets))
	for old, target := range targets {
		if old != target {
			movingAway[old] = true
		}
	}

	claimed := make(map[m.Path]m.Path)

	for _, file := range graph.Order {
		target := targets[file]

		if target != file {
			if _, occupied := graph.Files[target]; occupied && !movingAway[target] {
				slog.Warn("relocation target occupied, keeping file in place", "path", file, "target", target)
				target = file
			} else if prior, taken := claimed[target]; taken {
				slog.Warn("relocation target already claimed, keeping file in place",
					"path", file, "target", target, "claimedBy", prior)
				target = file
			}
		}

		claimed[target] = file
		plan.Moves = append(plan.Moves, m.Move{OldPath: file, NewPath: target})
	}

	for _, file := range graph.Order {
		entry := graph.Files[file]
		if entry.UsageCount == 0 && !p.isEntryPoint(file) {
			plan.Unused = append(plan.Unused, file)
		}
	}

	sort.Slice(plan.Unused, func(i, j int) bool { return plan.Unused[i] < plan.Unused[j] })

	return plan
}

// targetPath is categoryBase/[subfolder/][Component/]filename, except for
// preserved or uncategorized files which stay where they are.
func (p *Planner) targetPath(file m.Path, verdict Classification) m.Path {
	if verdict.PreserveLocation || verdict.Category == m.CategoryUncategorized {
		return file
	}

	parts := []string{verdict.Base}

	if verdict.Subfolder != "" {
		parts = append(parts, verdict.Subfolder)
	}

	if verdict.ComponentDir != "" {
		parts = append(parts, verdict.ComponentDir)
	}

	parts = append(parts, path.Base(string(file)))

	return m.Path(path.Join(parts...))
}

// isEntryPoint checks the allowlist of files reachable by convention rather
// than by import. Such files have a zero usage count yet are not dead.
func (p *Planner) isEntryPoint(file m.Path) bool {
	name := path.Base(string(file))
	stem := strings.TrimSuffix(name, path.Ext(name))

	if stem == "index" {
		return true
	}

	for _, routing := range p.policy.EntryPoints.RoutingNames {
		if stem == routing {
			return true
		}
	}

	for _, known := range p.policy.EntryPoints.Files {
		if string(file) == known {
			return true
		}
	}

	return false
}
