package extract

import (
	"context"
	"strings"

	"github.com/yonatangross/hookwarden/internal/analyzer"
	"github.com/yonatangross/hookwarden/internal/config"
	"github.com/yonatangross/hookwarden/internal/event"
	"github.com/yonatangross/hookwarden/internal/sink"
)

// completionTools are the tool names that signal an agent finishing a task.
var completionTools = []string{"Task", "Stop", "SubagentStop"}

// PatternAnalyzer records successful patterns on agent completion: one
// deduplicated, categorized append-record per candidate sentence. It skips
// silently when the event names no agent or represents a failure, and it
// never blocks or warns.
type PatternAnalyzer struct {
	matcher analyzer.Matcher
}

func NewPatternAnalyzer() *PatternAnalyzer {
	return &PatternAnalyzer{matcher: analyzer.MatchTools(completionTools...)}
}

func (a *PatternAnalyzer) Name() string { return "pattern_store" }

func (a *PatternAnalyzer) Match(toolName string) bool { return a.matcher.Match(toolName) }

func (a *PatternAnalyzer) Analyze(ctx context.Context, ev *event.Event, cfg *config.Snapshot) (*analyzer.Result, error) {
	if ev.AgentType == "" || ev.Failed() {
		return analyzer.Allowed, nil
	}
	if len(ev.ResultText) < cfg.Thresholds.MinResultLength {
		return analyzer.Allowed, nil
	}

	var effects []sink.Record
	seen := make(map[string]struct{})
	for _, sentence := range sentences(ev.ResultText) {
		if ctx.Err() != nil {
			break
		}
		if !indicatorRe.MatchString(sentence) {
			continue
		}
		sentence = strings.TrimSpace(sentence)
		// Identical text collapses to one entry within the batch.
		if _, dup := seen[sentence]; dup {
			continue
		}
		seen[sentence] = struct{}{}

		category, ok := cfg.Category(sentence)
		if !ok {
			category = "decision"
		}
		effects = append(effects, sink.PatternRecord{
			Timestamp: ev.Timestamp,
			Agent:     ev.AgentType,
			Pattern:   sentence,
			Category:  category,
			Project:   ev.ProjectDir,
		})
	}

	if len(effects) == 0 {
		return analyzer.Allowed, nil
	}
	return &analyzer.Result{Verdict: analyzer.Allow, Effects: effects}, nil
}
