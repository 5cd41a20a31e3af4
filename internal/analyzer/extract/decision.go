// Package extract implements the heuristic extraction analyzers: decision
// mining from free-text agent output and pattern harvesting on agent
// completion. Everything here is lexical heuristics with fixed caps; there
// is no model in the loop.
package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/yonatangross/hookwarden/internal/analyzer"
	"github.com/yonatangross/hookwarden/internal/config"
	"github.com/yonatangross/hookwarden/internal/event"
	"github.com/yonatangross/hookwarden/internal/guard"
	"github.com/yonatangross/hookwarden/internal/sink"
)

// Indicator phrases that open a decision span. Word-boundary anchored so a
// phrase never matches inside an unrelated token.
var (
	indicatorRe = regexp.MustCompile(`(?i)\b(?:decided|chose|selected|opted for|going with|will use|settled on)\b`)
	headerRe    = regexp.MustCompile(`(?im)^\s*(?:architecture|pattern|decision|approach)\s*:\s*(\S.*)$`)

	rationaleRe   = regexp.MustCompile(`(?i)\b(?:because|since|due to|in order to|so that)\b\s+(.+)`)
	alternativeRe = regexp.MustCompile(`(?i)\b(?:instead of|rather than|over)\s+([A-Za-z0-9][\w\-./ ]{1,60})`)
	constraintRe  = regexp.MustCompile(`(?i)\bmust\b`)
	tradeoffRe    = regexp.MustCompile(`(?i)\btrade-?off\b`)
)

const maxDecisionLen = 300

// Confidence increments. Each successfully populated optional field adds a
// fixed positive amount, which is what makes confidence monotonic in the
// set of populated fields.
const (
	baseConfidence    = 0.50
	rationaleBonus    = 0.20
	alternativesBonus = 0.10
	constraintsBonus  = 0.10
	tradeoffsBonus    = 0.05
)

// Decision is one extracted decision before serialization.
type Decision struct {
	Text         string
	Rationale    string
	Alternatives []string
	Constraints  []string
	Tradeoffs    []string
	Entities     []string
	Confidence   float64
	Category     string
	Importance   string
}

// Extract mines free text for decisions, capped at max entries. Text below
// the caller's length floor should be filtered before calling; Extract
// itself only bounds the output.
func Extract(text string, cfg *config.Snapshot, max int) []Decision {
	if max <= 0 {
		max = 10
	}

	var out []Decision
	seen := make(map[string]struct{})

	push := func(span string) {
		if len(out) >= max {
			return
		}
		span = strings.TrimSpace(span)
		if span == "" {
			return
		}
		if len(span) > maxDecisionLen {
			span = span[:maxDecisionLen]
		}
		if _, dup := seen[span]; dup {
			return
		}
		seen[span] = struct{}{}
		out = append(out, buildDecision(span, cfg))
	}

	for _, sentence := range sentences(text) {
		if len(out) >= max {
			break
		}
		if indicatorRe.MatchString(sentence) {
			push(sentence)
		}
	}
	for _, m := range headerRe.FindAllStringSubmatch(text, -1) {
		if len(out) >= max {
			break
		}
		push(m[1])
	}

	return out
}

// buildDecision harvests the optional fields from one decision span and
// scores it. Every successful optional extraction strictly increases the
// confidence over a bare decision statement.
func buildDecision(span string, cfg *config.Snapshot) Decision {
	d := Decision{Text: span, Confidence: baseConfidence}

	if m := rationaleRe.FindStringSubmatch(span); m != nil {
		d.Rationale = strings.TrimSpace(m[1])
		d.Confidence += rationaleBonus
	}
	for _, m := range alternativeRe.FindAllStringSubmatch(span, -1) {
		alt := strings.TrimSpace(m[1])
		if alt != "" {
			d.Alternatives = append(d.Alternatives, alt)
		}
	}
	if len(d.Alternatives) > 0 {
		d.Confidence += alternativesBonus
	}
	if constraintRe.MatchString(span) {
		d.Constraints = append(d.Constraints, span)
		d.Confidence += constraintsBonus
	}
	if tradeoffRe.MatchString(span) {
		d.Tradeoffs = append(d.Tradeoffs, span)
		d.Confidence += tradeoffsBonus
	}

	d.Entities = scanEntities(span)

	if cat, ok := cfg.Category(span); ok {
		d.Category = cat
	} else {
		d.Category = "decision"
	}
	d.Importance = cfg.Importance(span)
	return d
}

// sentences splits text on line breaks and sentence-ending punctuation.
// Crude on purpose: decision indicators live at sentence granularity and a
// real tokenizer buys nothing here.
func sentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		for _, s := range strings.FieldsFunc(line, func(r rune) bool {
			return r == '.' || r == '!' || r == '?' || r == ';'
		}) {
			s = strings.TrimSpace(s)
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// DecisionAnalyzer runs the extractor over every tool's free-text result
// and persists one record per decision. It never blocks or warns.
type DecisionAnalyzer struct{}

func NewDecisionAnalyzer() *DecisionAnalyzer { return &DecisionAnalyzer{} }

func (a *DecisionAnalyzer) Name() string { return "decision_extractor" }

func (a *DecisionAnalyzer) Match(string) bool { return true }

func (a *DecisionAnalyzer) Analyze(ctx context.Context, ev *event.Event, cfg *config.Snapshot) (*analyzer.Result, error) {
	if res := guard.First(ev, guard.MinResultLength(cfg.Thresholds.MinResultLength)); res != nil {
		return res, nil
	}

	decisions := Extract(ev.ResultText, cfg, cfg.Thresholds.MaxDecisions)
	if len(decisions) == 0 {
		return analyzer.Allowed, nil
	}

	effects := make([]sink.Record, 0, len(decisions))
	for _, d := range decisions {
		effects = append(effects, sink.DecisionRecord{
			Timestamp:    ev.Timestamp,
			SessionID:    ev.SessionID,
			Text:         d.Text,
			Rationale:    d.Rationale,
			Alternatives: d.Alternatives,
			Constraints:  d.Constraints,
			Tradeoffs:    d.Tradeoffs,
			Entities:     d.Entities,
			Confidence:   d.Confidence,
			Category:     d.Category,
			Importance:   d.Importance,
		})
	}
	return &analyzer.Result{Verdict: analyzer.Allow, Effects: effects}, nil
}
