// Package guard holds the cheap predicates analyzers use to short-circuit
// irrelevant events before doing real work. Guards are composed, not
// inherited: each analyzer invokes exactly the guards it needs.
package guard

import (
	"path/filepath"
	"strings"

	"github.com/yonatangross/hookwarden/internal/analyzer"
	"github.com/yonatangross/hookwarden/internal/event"
)

// Guard inspects an event and either short-circuits with a final result
// (always an allow: guards filter, they never judge) or returns nil to
// hand control to the analyzer.
type Guard func(*event.Event) *analyzer.Result

// First runs guards in order and returns the first short-circuit, or nil
// when every guard passes the event through.
func First(ev *event.Event, guards ...Guard) *analyzer.Result {
	for _, g := range guards {
		if res := g(ev); res != nil {
			return res
		}
	}
	return nil
}

var sourceExts = map[string]struct{}{
	".go": {}, ".py": {}, ".ts": {}, ".tsx": {}, ".js": {}, ".jsx": {},
	".rb": {}, ".rs": {}, ".java": {}, ".kt": {}, ".c": {}, ".cc": {},
	".cpp": {}, ".h": {}, ".cs": {}, ".php": {}, ".swift": {},
}

// IsSourceFile passes only events that write a recognized source file.
func IsSourceFile(ev *event.Event) *analyzer.Result {
	if ev.FilePath == "" {
		return analyzer.Allowed
	}
	ext := strings.ToLower(filepath.Ext(ev.FilePath))
	if _, ok := sourceExts[ext]; !ok {
		return analyzer.Allowed
	}
	return nil
}

// IsPythonFile passes only Python source writes.
func IsPythonFile(ev *event.Event) *analyzer.Result {
	if strings.ToLower(filepath.Ext(ev.FilePath)) != ".py" {
		return analyzer.Allowed
	}
	return nil
}

// HasContent passes only events carrying written content.
func HasContent(ev *event.Event) *analyzer.Result {
	if ev.Content == "" {
		return analyzer.Allowed
	}
	return nil
}

// HasFilePath passes only events that name a file.
func HasFilePath(ev *event.Event) *analyzer.Result {
	if ev.FilePath == "" {
		return analyzer.Allowed
	}
	return nil
}

// Failed passes only events representing a failed command or tool run.
func Failed(ev *event.Event) *analyzer.Result {
	if !ev.Failed() {
		return analyzer.Allowed
	}
	return nil
}

// Succeeded passes only events that did not fail.
func Succeeded(ev *event.Event) *analyzer.Result {
	if ev.Failed() {
		return analyzer.Allowed
	}
	return nil
}

// MinResultLength passes only events whose free-text result is at least n
// bytes. Short outputs carry nothing worth extracting.
func MinResultLength(n int) Guard {
	return func(ev *event.Event) *analyzer.Result {
		if len(ev.ResultText) < n {
			return analyzer.Allowed
		}
		return nil
	}
}

// IsTestFile reports whether the path names a test file by the common
// suffix conventions. Exposed as a plain predicate because some rules need
// the boolean, not a short-circuit.
func IsTestFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	return strings.HasSuffix(base, "_test.go") ||
		strings.HasPrefix(base, "test_") ||
		strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.")
}
