// Package analyzer defines the contract shared by every policy and
// extraction analyzer: the uniform Analyze signature, the per-analyzer
// result, and the tool-name matcher used by the dispatcher's
// registration table.
package analyzer

import (
	"context"

	"github.com/yonatangross/hookwarden/internal/config"
	"github.com/yonatangross/hookwarden/internal/event"
	"github.com/yonatangross/hookwarden/internal/sink"
)

// Verdict is one analyzer's opinion about an event.
type Verdict int

const (
	Allow Verdict = iota
	Warn
	Block
)

// String returns the lowercase verdict name.
func (v Verdict) String() string {
	switch v {
	case Block:
		return "block"
	case Warn:
		return "warn"
	default:
		return "allow"
	}
}

// Stable reason codes surfaced with Block and Warn results.
const (
	ReasonDatabaseInRouter   = "DATABASE_IN_ROUTER"
	ReasonHTTPInService      = "HTTP_IN_SERVICE"
	ReasonImportViolation    = "IMPORT_VIOLATION"
	ReasonNestingViolation   = "NESTING_VIOLATION"
	ReasonBarrelViolation    = "BARREL_VIOLATION"
	ReasonComponentLocation  = "COMPONENT_LOCATION"
	ReasonHookLocation       = "HOOK_LOCATION"
	ReasonSyncInAsync        = "SYNC_IN_ASYNC"
	ReasonMissingTimeout     = "MISSING_TIMEOUT"
	ReasonMissingValidation  = "MISSING_VALIDATION"
	ReasonTestCommentMissing = "TEST_COMMENT_MISSING"
	ReasonMergeConflictRisk  = "MERGE_CONFLICT_RISK"
	ReasonBranchDivergence   = "BRANCH_DIVERGENCE"
)

// Result is the outcome of one analyzer run. Analyzers never mutate shared
// state; persistence side effects are returned as records for the
// dispatcher's effect runner to apply.
type Result struct {
	Verdict    Verdict
	ReasonCode string
	Message    string
	Effects    []sink.Record
}

// Allowed is the zero-opinion result shared by analyzers with nothing to say.
var Allowed = &Result{Verdict: Allow}

// Analyzer is the single functional interface every unit of policy or
// extraction logic implements. Analyze must be safe to run concurrently
// with other analyzers: it reads only the immutable event and the
// read-only config snapshot.
type Analyzer interface {
	// Name identifies the analyzer in logs and fault records.
	Name() string

	// Match reports whether this analyzer wants the event's tool name.
	Match(toolName string) bool

	// Analyze inspects the event and returns an opinion. A nil result or an
	// error both count as "no opinion" at the dispatch boundary.
	Analyze(ctx context.Context, ev *event.Event, cfg *config.Snapshot) (*Result, error)
}

// Matcher selects events by tool name: a wildcard, one exact name, or a set.
type Matcher struct {
	wildcard bool
	names    map[string]struct{}
}

// MatchAll accepts every tool name.
func MatchAll() Matcher {
	return Matcher{wildcard: true}
}

// MatchTools accepts exactly the given tool names.
func MatchTools(names ...string) Matcher {
	m := Matcher{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		m.names[n] = struct{}{}
	}
	return m
}

// Match reports whether the matcher accepts the tool name.
func (m Matcher) Match(toolName string) bool {
	if m.wildcard {
		return true
	}
	_, ok := m.names[toolName]
	return ok
}
