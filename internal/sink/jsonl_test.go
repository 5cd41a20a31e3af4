package sink

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestJSONLStore_AppendCreatesDirAndFiles(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "logs")
	store := NewJSONLStore(root)

	err := store.Append(ViolationRecord{
		Timestamp: time.Now().UTC(),
		Tool:      "Write",
		Path:      "src/a.py",
		Verdict:   "block",
		Reason:    "DATABASE_IN_ROUTER",
		Message:   "nope",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(PatternRecord{Timestamp: time.Now().UTC(), Agent: "a", Pattern: "p", Category: "decision"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "violations.jsonl")); err != nil {
		t.Errorf("violations store missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "patterns.jsonl")); err != nil {
		t.Errorf("patterns store missing: %v", err)
	}
}

func TestJSONLStore_LinesAreTaggedAndParseable(t *testing.T) {
	root := t.TempDir()
	store := NewJSONLStore(root)

	for i := 0; i < 3; i++ {
		if err := store.Append(FaultRecord{Timestamp: time.Now().UTC(), Analyzer: "x", Error: "boom"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	f, err := os.Open(filepath.Join(root, "faults.jsonl"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line %d not JSON: %v", lines, err)
		}
		if rec["kind"] != "fault" {
			t.Errorf("line %d kind = %v", lines, rec["kind"])
		}
		lines++
	}
	if lines != 3 {
		t.Errorf("lines = %d, want 3", lines)
	}
}

func TestRunner_DrainsOnClose(t *testing.T) {
	root := t.TempDir()
	runner := NewRunner(NewJSONLStore(root), zap.NewNop())

	for i := 0; i < 10; i++ {
		runner.Emit(DecisionRecord{Timestamp: time.Now().UTC(), Text: "decided", Category: "decision", Importance: "low"})
	}
	runner.Close()

	f, err := os.Open(filepath.Join(root, "decisions.jsonl"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
	}
	if lines != 10 {
		t.Errorf("lines = %d, want all 10 drained before close", lines)
	}
}
