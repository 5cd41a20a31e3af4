package dispatch

import (
	"github.com/yonatangross/hookwarden/internal/analyzer"
	"github.com/yonatangross/hookwarden/internal/analyzer/extract"
	"github.com/yonatangross/hookwarden/internal/analyzer/policy"
	"github.com/yonatangross/hookwarden/internal/analyzer/worktree"
)

// DefaultAnalyzers is the static registration table. Order is load-bearing:
// it is the tie-break order when more than one analyzer blocks, so the
// policy analyzers come before the advisory and extraction ones.
func DefaultAnalyzers() []analyzer.Analyzer {
	return []analyzer.Analyzer{
		policy.NewLayerAnalyzer(),
		policy.NewStructureAnalyzer(),
		policy.NewConsistencyAnalyzer(),
		worktree.NewConflictAnalyzer(),
		extract.NewDecisionAnalyzer(),
		extract.NewPatternAnalyzer(),
	}
}
