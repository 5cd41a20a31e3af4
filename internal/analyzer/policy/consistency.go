package policy

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/yonatangross/hookwarden/internal/analyzer"
	"github.com/yonatangross/hookwarden/internal/config"
	"github.com/yonatangross/hookwarden/internal/event"
	"github.com/yonatangross/hookwarden/internal/guard"
	"github.com/yonatangross/hookwarden/internal/sink"
)

// Pre-compiled patterns, compiled once at startup.
var (
	asyncDefRe    = regexp.MustCompile(`\basync\s+def\b`)
	syncInAsyncRe = regexp.MustCompile(`\btime\.sleep\s*\(|\brequests\.(?:get|post|put|patch|delete|head)\s*\(|\bopen\s*\([^)]*\)\s*\.read\(`)
	outboundRe    = regexp.MustCompile(`\b(?:requests|httpx)\.(?:get|post|put|patch|delete|head)\s*\(`)
	fetchRe       = regexp.MustCompile(`\bfetch\s*\(`)
	routeRe       = regexp.MustCompile(`@(?:app|router)\.(?:post|put|patch)\b`)
	validationRe  = regexp.MustCompile(`\bBaseModel\b|\bpydantic\b|\bzod\b|\.parse\s*\(`)
	testCommentRe = regexp.MustCompile(`(?i)(?:#|//)\s*(?:arrange|act|assert|given|when|then)\b`)
)

// ConsistencyAnalyzer enforces cross-cutting conventions: no synchronous
// I/O inside async defs, timeouts on outbound calls, validation at I/O
// boundaries, and the structural test-comment convention. The first two
// block; the last two only warn.
type ConsistencyAnalyzer struct {
	matcher analyzer.Matcher
}

func NewConsistencyAnalyzer() *ConsistencyAnalyzer {
	return &ConsistencyAnalyzer{matcher: analyzer.MatchTools(writeTools...)}
}

func (a *ConsistencyAnalyzer) Name() string { return "consistency" }

func (a *ConsistencyAnalyzer) Match(toolName string) bool { return a.matcher.Match(toolName) }

func (a *ConsistencyAnalyzer) Analyze(ctx context.Context, ev *event.Event, cfg *config.Snapshot) (*analyzer.Result, error) {
	if res := guard.First(ev, guard.HasFilePath, guard.HasContent, guard.IsSourceFile); res != nil {
		return res, nil
	}

	if res := checkSyncInAsync(ev); res != nil {
		return res, nil
	}
	if res := checkMissingTimeout(ev); res != nil {
		return res, nil
	}
	if res := checkValidation(ev); res != nil {
		return res, nil
	}
	if res := checkTestComments(ev); res != nil {
		return res, nil
	}
	return analyzer.Allowed, nil
}

// checkSyncInAsync blocks synchronous sleeps and blocking HTTP clients in
// files that declare async defs. Lexical, not AST-level: the sync call may
// sit outside the async def, which is an accepted false-positive source.
func checkSyncInAsync(ev *event.Event) *analyzer.Result {
	if !strings.HasSuffix(ev.FilePath, ".py") {
		return nil
	}
	if !asyncDefRe.MatchString(ev.Content) || !syncInAsyncRe.MatchString(ev.Content) {
		return nil
	}
	msg := fmt.Sprintf("%s: blocking call in a file with async defs; use the async equivalent", ev.FilePath)
	return blockResult(ev, analyzer.ReasonSyncInAsync, msg)
}

// checkMissingTimeout blocks outbound HTTP calls whose call line names no
// timeout (Python clients) or signal (fetch).
func checkMissingTimeout(ev *event.Event) *analyzer.Result {
	for _, line := range strings.Split(ev.Content, "\n") {
		if outboundRe.MatchString(line) && !strings.Contains(line, "timeout") {
			msg := fmt.Sprintf("%s: outbound call without a timeout: %s", ev.FilePath, strings.TrimSpace(line))
			return blockResult(ev, analyzer.ReasonMissingTimeout, msg)
		}
		if fetchRe.MatchString(line) && !strings.Contains(line, "signal") && !strings.Contains(ev.Content, "AbortController") {
			msg := fmt.Sprintf("%s: fetch without an abort signal: %s", ev.FilePath, strings.TrimSpace(line))
			return blockResult(ev, analyzer.ReasonMissingTimeout, msg)
		}
	}
	return nil
}

// checkValidation warns when a mutating route handler is declared without
// any sign of a validation library at the boundary.
func checkValidation(ev *event.Event) *analyzer.Result {
	if !routeRe.MatchString(ev.Content) || validationRe.MatchString(ev.Content) {
		return nil
	}
	msg := fmt.Sprintf("%s: mutating endpoint without request validation at the boundary", ev.FilePath)
	return warnResult(ev, analyzer.ReasonMissingValidation, msg)
}

// checkTestComments warns when a test file carries none of the structural
// arrange/act/assert comments.
func checkTestComments(ev *event.Event) *analyzer.Result {
	if !guard.IsTestFile(ev.FilePath) || testCommentRe.MatchString(ev.Content) {
		return nil
	}
	msg := fmt.Sprintf("%s: test file without arrange/act/assert structure comments", ev.FilePath)
	return warnResult(ev, analyzer.ReasonTestCommentMissing, msg)
}

func warnResult(ev *event.Event, reason, msg string) *analyzer.Result {
	return &analyzer.Result{
		Verdict:    analyzer.Warn,
		ReasonCode: reason,
		Message:    msg,
		Effects:    []sink.Record{violation(ev, analyzer.Warn, reason, msg)},
	}
}
