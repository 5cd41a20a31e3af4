// Package config loads the rule catalog and keyword tables that drive the
// analyzers. Catalogs are data, not code: built-in defaults can be
// overridden from a YAML file and re-read between events without a
// restart. Analyzers only ever see an immutable compiled Snapshot.
package config

import (
	"regexp"
	"strings"
)

// Thresholds bounds the heuristic analyzers.
type Thresholds struct {
	MinResultLength   int `koanf:"min_result_length"`
	MaxDecisions      int `koanf:"max_decisions"`
	ConflictLineDelta int `koanf:"conflict_line_delta"`
	BehindCommits     int `koanf:"behind_commits"`
	GitTimeoutMs      int `koanf:"git_timeout_ms"`
	AnalyzerTimeoutMs int `koanf:"analyzer_timeout_ms"`
}

// LayerRuleSpec is one entry of the layered-architecture catalog as it
// appears on disk. Scope is a path segment ("routers"), Pattern a regex
// over file content.
type LayerRuleSpec struct {
	Scope   string `koanf:"scope"`
	Pattern string `koanf:"pattern"`
	Reason  string `koanf:"reason"`
	Message string `koanf:"message"`
}

// StructureSpec configures the physical-structure analyzer.
type StructureSpec struct {
	Roots         []string `koanf:"roots"`
	MaxDepth      int      `koanf:"max_depth"`
	BarrelAllowed []string `koanf:"barrel_allowed"`
	ComponentDirs []string `koanf:"component_dirs"`
	HookDirs      []string `koanf:"hook_dirs"`
}

// CategorySpec binds a category name to its keyword set. Catalog order is
// significant: specific categories are checked before the generic
// fallback so "postgres" lands in database, not decision.
type CategorySpec struct {
	Name     string   `koanf:"name"`
	Keywords []string `koanf:"keywords"`
}

// ImportanceSpec holds the keyword tiers for importance classification.
type ImportanceSpec struct {
	High   []string `koanf:"high"`
	Medium []string `koanf:"medium"`
}

// FileConfig is the on-disk shape of the whole configuration.
type FileConfig struct {
	LogLevel   string          `koanf:"log_level"`
	LogDir     string          `koanf:"log_dir"`
	TraceDB    string          `koanf:"trace_db"`
	Thresholds Thresholds      `koanf:"thresholds"`
	Layers     []LayerRuleSpec `koanf:"layers"`
	Structure  StructureSpec   `koanf:"structure"`
	Categories []CategorySpec  `koanf:"categories"`
	Importance ImportanceSpec  `koanf:"importance"`
}

// LayerRule is a compiled layered-architecture rule.
type LayerRule struct {
	Scope   string
	Pattern *regexp.Regexp
	Reason  string
	Message string
}

// CategoryRule is a compiled keyword set for one category.
type CategoryRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Snapshot is the compiled, read-only view handed to each dispatch. A
// snapshot is never mutated after compile; hot reload swaps the whole
// pointer.
type Snapshot struct {
	LogLevel   string
	LogDir     string
	TraceDB    string
	Thresholds Thresholds
	Layers     []LayerRule
	Structure  StructureSpec
	Categories []CategoryRule
	High       *regexp.Regexp
	Medium     *regexp.Regexp
}

// compile turns the on-disk config into a Snapshot. Rules that fail to
// compile are skipped rather than failing the load: a bad rule must not
// take the engine down.
func compile(fc FileConfig) *Snapshot {
	s := &Snapshot{
		LogLevel:   fc.LogLevel,
		LogDir:     fc.LogDir,
		TraceDB:    fc.TraceDB,
		Thresholds: fc.Thresholds,
		Structure:  fc.Structure,
	}

	for _, spec := range fc.Layers {
		re, err := regexp.Compile("(?i)" + spec.Pattern)
		if err != nil {
			continue
		}
		s.Layers = append(s.Layers, LayerRule{
			Scope:   spec.Scope,
			Pattern: re,
			Reason:  spec.Reason,
			Message: spec.Message,
		})
	}

	for _, spec := range fc.Categories {
		re := keywordPattern(spec.Keywords)
		if re == nil {
			continue
		}
		s.Categories = append(s.Categories, CategoryRule{Name: spec.Name, Pattern: re})
	}

	s.High = keywordPattern(fc.Importance.High)
	s.Medium = keywordPattern(fc.Importance.Medium)
	return s
}

// keywordPattern compiles a keyword set into one alternation anchored on
// word boundaries, so "decided" never matches inside "undecided".
func keywordPattern(keywords []string) *regexp.Regexp {
	if len(keywords) == 0 {
		return nil
	}
	quoted := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(kw))
	}
	if len(quoted) == 0 {
		return nil
	}
	re, err := regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	if err != nil {
		return nil
	}
	return re
}

// Category classifies text against the catalog in order, returning the
// first matching category and true, or "" and false.
func (s *Snapshot) Category(text string) (string, bool) {
	for _, c := range s.Categories {
		if c.Pattern.MatchString(text) {
			return c.Name, true
		}
	}
	return "", false
}

// Importance tiers text by the high/medium keyword tables, defaulting low.
func (s *Snapshot) Importance(text string) string {
	if s.High != nil && s.High.MatchString(text) {
		return "high"
	}
	if s.Medium != nil && s.Medium.MatchString(text) {
		return "medium"
	}
	return "low"
}
