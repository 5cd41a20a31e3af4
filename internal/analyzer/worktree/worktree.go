// Package worktree predicts merge conflicts by comparing the file being
// written against sibling working copies of the same repository, and warns
// when the current branch has drifted behind the default branch. All git
// introspection is bounded by a timeout and every failure degrades to "no
// signal": this analyzer can warn, but it can never block and never error.
package worktree

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yonatangross/hookwarden/internal/analyzer"
	"github.com/yonatangross/hookwarden/internal/config"
	"github.com/yonatangross/hookwarden/internal/event"
	"github.com/yonatangross/hookwarden/internal/guard"
	"github.com/yonatangross/hookwarden/internal/sink"
)

// GitRunner executes one git command in a directory. Injectable so the
// analyzer's logic is testable without a repository.
type GitRunner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecRunner shells out to the git binary.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Sibling is one other working copy of the repository.
type Sibling struct {
	Path   string
	Branch string
}

// ConflictAnalyzer is the merge-conflict predictor.
type ConflictAnalyzer struct {
	matcher analyzer.Matcher
	git     GitRunner
	readFn  func(string) ([]byte, error)
}

func NewConflictAnalyzer() *ConflictAnalyzer {
	return NewConflictAnalyzerWith(ExecRunner{}, os.ReadFile)
}

// NewConflictAnalyzerWith injects the git runner and file reader.
func NewConflictAnalyzerWith(git GitRunner, readFn func(string) ([]byte, error)) *ConflictAnalyzer {
	return &ConflictAnalyzer{
		matcher: analyzer.MatchTools("Write", "Edit", "MultiEdit"),
		git:     git,
		readFn:  readFn,
	}
}

func (a *ConflictAnalyzer) Name() string { return "merge_conflict" }

func (a *ConflictAnalyzer) Match(toolName string) bool { return a.matcher.Match(toolName) }

func (a *ConflictAnalyzer) Analyze(ctx context.Context, ev *event.Event, cfg *config.Snapshot) (*analyzer.Result, error) {
	if res := guard.First(ev, guard.HasFilePath, guard.HasContent); res != nil {
		return res, nil
	}

	timeout := time.Duration(cfg.Thresholds.GitTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dir := ev.ProjectDir
	if dir == "" {
		dir = filepath.Dir(ev.FilePath)
	}

	root, err := a.git.Run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil || root == "" {
		return analyzer.Allowed, nil // not a repository: no signal
	}

	var warnings []string
	reason := ""

	if msg := a.checkSiblings(ctx, root, ev, cfg); msg != "" {
		warnings = append(warnings, msg)
		reason = analyzer.ReasonMergeConflictRisk
	}
	if msg := a.checkDivergence(ctx, root, cfg); msg != "" {
		warnings = append(warnings, msg)
		if reason == "" {
			reason = analyzer.ReasonBranchDivergence
		}
	}

	if len(warnings) == 0 {
		return analyzer.Allowed, nil
	}
	msg := strings.Join(warnings, "; ")
	return &analyzer.Result{
		Verdict:    analyzer.Warn,
		ReasonCode: reason,
		Message:    msg,
		Effects: []sink.Record{sink.ViolationRecord{
			Timestamp: ev.Timestamp,
			SessionID: ev.SessionID,
			Tool:      ev.ToolName,
			Path:      ev.FilePath,
			Verdict:   analyzer.Warn.String(),
			Reason:    reason,
			Message:   msg,
		}},
	}, nil
}

// checkSiblings warns when another working copy has the same file modified
// in its uncommitted status and the line-count delta against the new
// content crosses the threshold. Both conditions are required: a touched
// but near-identical file is not worth a warning.
func (a *ConflictAnalyzer) checkSiblings(ctx context.Context, root string, ev *event.Event, cfg *config.Snapshot) string {
	rel, err := filepath.Rel(root, ev.FilePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(ev.FilePath)
	}

	var hits []string
	for _, sib := range a.siblings(ctx, root) {
		status, err := a.git.Run(ctx, sib.Path, "status", "--porcelain", "--", rel)
		if err != nil || status == "" {
			continue
		}
		data, err := a.readFn(filepath.Join(sib.Path, rel))
		if err != nil {
			continue
		}
		delta := lineCount(ev.Content) - lineCount(string(data))
		if delta < 0 {
			delta = -delta
		}
		if delta >= cfg.Thresholds.ConflictLineDelta {
			hits = append(hits, fmt.Sprintf("%s also modified in worktree %s (branch %s, %d-line delta)",
				rel, sib.Path, sib.Branch, delta))
		}
	}
	return strings.Join(hits, "; ")
}

// checkDivergence warns when the current branch is behind the repository's
// default branch beyond the configured threshold.
func (a *ConflictAnalyzer) checkDivergence(ctx context.Context, root string, cfg *config.Snapshot) string {
	def, err := a.git.Run(ctx, root, "symbolic-ref", "--short", "refs/remotes/origin/HEAD")
	if err != nil || def == "" {
		return ""
	}
	counts, err := a.git.Run(ctx, root, "rev-list", "--left-right", "--count", def+"...HEAD")
	if err != nil {
		return ""
	}
	fields := strings.Fields(counts)
	if len(fields) != 2 {
		return ""
	}
	behind, err := strconv.Atoi(fields[0])
	if err != nil {
		return ""
	}
	if behind <= cfg.Thresholds.BehindCommits {
		return ""
	}
	branch, _ := a.git.Run(ctx, root, "branch", "--show-current")
	return fmt.Sprintf("branch %s is %d commits behind %s; rebase before large edits", branch, behind, def)
}

// siblings enumerates the repository's other working copies via
// git worktree list --porcelain.
func (a *ConflictAnalyzer) siblings(ctx context.Context, root string) []Sibling {
	out, err := a.git.Run(ctx, root, "worktree", "list", "--porcelain")
	if err != nil {
		return nil
	}
	var sibs []Sibling
	var cur Sibling
	flush := func() {
		if cur.Path != "" && cur.Path != root {
			sibs = append(sibs, cur)
		}
		cur = Sibling{}
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			cur.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "branch "):
			cur.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		}
	}
	flush()
	return sibs
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
