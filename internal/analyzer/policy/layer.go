// Package policy implements the rule-based analyzers: layered-architecture
// boundaries, physical structure, and cross-cutting consistency. Rule
// catalogs are data from the config snapshot; the analyzers only provide
// the evaluation order and the verdicts.
package policy

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yonatangross/hookwarden/internal/analyzer"
	"github.com/yonatangross/hookwarden/internal/config"
	"github.com/yonatangross/hookwarden/internal/event"
	"github.com/yonatangross/hookwarden/internal/guard"
	"github.com/yonatangross/hookwarden/internal/sink"
)

// writeTools are the tool names that mutate files.
var writeTools = []string{"Write", "Edit", "MultiEdit", "NotebookEdit"}

// LayerAnalyzer enforces the layered-architecture catalog: rules scoped to
// path segments like routers/, services/ and repositories/, evaluated in
// catalog order. The first matching rule wins and its reason is the one
// surfaced, even when several rules match.
type LayerAnalyzer struct {
	matcher analyzer.Matcher
}

func NewLayerAnalyzer() *LayerAnalyzer {
	return &LayerAnalyzer{matcher: analyzer.MatchTools(writeTools...)}
}

func (a *LayerAnalyzer) Name() string { return "layer_boundaries" }

func (a *LayerAnalyzer) Match(toolName string) bool { return a.matcher.Match(toolName) }

func (a *LayerAnalyzer) Analyze(ctx context.Context, ev *event.Event, cfg *config.Snapshot) (*analyzer.Result, error) {
	if res := guard.First(ev, guard.HasFilePath, guard.HasContent, guard.IsSourceFile); res != nil {
		return res, nil
	}

	for _, rule := range cfg.Layers {
		if ctx.Err() != nil {
			break
		}
		if !inScope(ev.FilePath, rule.Scope) {
			continue
		}
		if rule.Pattern.MatchString(ev.Content) {
			msg := fmt.Sprintf("%s: %s", ev.FilePath, rule.Message)
			return &analyzer.Result{
				Verdict:    analyzer.Block,
				ReasonCode: rule.Reason,
				Message:    msg,
				Effects:    []sink.Record{violation(ev, analyzer.Block, rule.Reason, msg)},
			}, nil
		}
	}
	return analyzer.Allowed, nil
}

// inScope reports whether the path has scope as one of its directory
// segments. Matching whole segments keeps "routers" from matching a file
// that merely mentions the word in its name.
func inScope(path, scope string) bool {
	dir := filepath.ToSlash(filepath.Dir(path))
	for _, seg := range strings.Split(dir, "/") {
		if seg == scope {
			return true
		}
	}
	return false
}

func violation(ev *event.Event, v analyzer.Verdict, reason, msg string) sink.ViolationRecord {
	return sink.ViolationRecord{
		Timestamp: ev.Timestamp,
		SessionID: ev.SessionID,
		Tool:      ev.ToolName,
		Path:      ev.FilePath,
		Verdict:   v.String(),
		Reason:    reason,
		Message:   msg,
	}
}
