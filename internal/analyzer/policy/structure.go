package policy

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/yonatangross/hookwarden/internal/analyzer"
	"github.com/yonatangross/hookwarden/internal/config"
	"github.com/yonatangross/hookwarden/internal/event"
	"github.com/yonatangross/hookwarden/internal/guard"
	"github.com/yonatangross/hookwarden/internal/sink"
)

// StructureAnalyzer enforces physical-structure rules independent of
// layering: nesting depth under designated roots, barrel-file prohibition,
// and naming-convention file placement. Checks run in a fixed order and
// the first violation is the one surfaced.
type StructureAnalyzer struct {
	matcher analyzer.Matcher
}

func NewStructureAnalyzer() *StructureAnalyzer {
	return &StructureAnalyzer{matcher: analyzer.MatchTools(writeTools...)}
}

func (a *StructureAnalyzer) Name() string { return "physical_structure" }

func (a *StructureAnalyzer) Match(toolName string) bool { return a.matcher.Match(toolName) }

func (a *StructureAnalyzer) Analyze(ctx context.Context, ev *event.Event, cfg *config.Snapshot) (*analyzer.Result, error) {
	if res := guard.First(ev, guard.HasFilePath); res != nil {
		return res, nil
	}

	checks := []func(*event.Event, *config.Snapshot) *analyzer.Result{
		checkNesting,
		checkBarrel,
		checkComponentLocation,
		checkHookLocation,
	}
	for _, check := range checks {
		if ctx.Err() != nil {
			break
		}
		if res := check(ev, cfg); res != nil {
			return res, nil
		}
	}
	return analyzer.Allowed, nil
}

// checkNesting blocks paths nested deeper than the configured maximum
// below a designated root. Depth counts every segment after the root,
// filename included.
func checkNesting(ev *event.Event, cfg *config.Snapshot) *analyzer.Result {
	segs := splitPath(ev.FilePath)
	for i, seg := range segs {
		if !containsString(cfg.Structure.Roots, seg) {
			continue
		}
		depth := len(segs) - i - 1
		if depth > cfg.Structure.MaxDepth {
			msg := fmt.Sprintf("%s: nesting depth %d below %s/ exceeds the maximum of %d",
				ev.FilePath, depth, seg, cfg.Structure.MaxDepth)
			return blockResult(ev, analyzer.ReasonNestingViolation, msg)
		}
		break
	}
	return nil
}

// checkBarrel blocks index/barrel files outside the allowed directories
// (build output and routing conventions).
func checkBarrel(ev *event.Event, cfg *config.Snapshot) *analyzer.Result {
	base := filepath.Base(ev.FilePath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name != "index" {
		return nil
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".ts", ".tsx", ".js", ".jsx":
	default:
		return nil
	}
	for _, seg := range splitPath(ev.FilePath) {
		if containsString(cfg.Structure.BarrelAllowed, seg) {
			return nil
		}
	}
	msg := fmt.Sprintf("%s: barrel files are only allowed under %s",
		ev.FilePath, strings.Join(cfg.Structure.BarrelAllowed, ", "))
	return blockResult(ev, analyzer.ReasonBarrelViolation, msg)
}

// checkComponentLocation blocks PascalCase UI component files placed
// outside the designated component directories.
func checkComponentLocation(ev *event.Event, cfg *config.Snapshot) *analyzer.Result {
	base := filepath.Base(ev.FilePath)
	switch strings.ToLower(filepath.Ext(base)) {
	case ".tsx", ".jsx":
	default:
		return nil
	}
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if !isPascalCase(name) {
		return nil
	}
	if pathHasAny(ev.FilePath, cfg.Structure.ComponentDirs) {
		return nil
	}
	msg := fmt.Sprintf("%s: component files belong under %s",
		ev.FilePath, strings.Join(cfg.Structure.ComponentDirs, ", "))
	return blockResult(ev, analyzer.ReasonComponentLocation, msg)
}

// checkHookLocation blocks use-prefixed stateful-logic modules placed
// outside the designated hook directories.
func checkHookLocation(ev *event.Event, cfg *config.Snapshot) *analyzer.Result {
	base := filepath.Base(ev.FilePath)
	switch strings.ToLower(filepath.Ext(base)) {
	case ".ts", ".tsx", ".js", ".jsx":
	default:
		return nil
	}
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if !strings.HasPrefix(name, "use") || len(name) < 4 || !unicode.IsUpper(rune(name[3])) {
		return nil
	}
	if pathHasAny(ev.FilePath, cfg.Structure.HookDirs) {
		return nil
	}
	msg := fmt.Sprintf("%s: hook modules belong under %s",
		ev.FilePath, strings.Join(cfg.Structure.HookDirs, ", "))
	return blockResult(ev, analyzer.ReasonHookLocation, msg)
}

func blockResult(ev *event.Event, reason, msg string) *analyzer.Result {
	return &analyzer.Result{
		Verdict:    analyzer.Block,
		ReasonCode: reason,
		Message:    msg,
		Effects:    []sink.Record{violation(ev, analyzer.Block, reason, msg)},
	}
}

func splitPath(path string) []string {
	clean := filepath.ToSlash(filepath.Clean(path))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." {
		return nil
	}
	return strings.Split(clean, "/")
}

func pathHasAny(path string, dirs []string) bool {
	for _, seg := range splitPath(filepath.Dir(path)) {
		if containsString(dirs, seg) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func isPascalCase(name string) bool {
	if name == "" || !unicode.IsUpper(rune(name[0])) {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
