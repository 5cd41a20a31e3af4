package sink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// kindFiles maps a record kind to its JSONL store under the log root.
var kindFiles = map[string]string{
	"violation": "violations.jsonl",
	"decision":  "decisions.jsonl",
	"pattern":   "patterns.jsonl",
	"fault":     "faults.jsonl",
}

// JSONLStore appends records to per-kind JSONL files under a root
// directory, creating the directory on first use.
type JSONLStore struct {
	root string

	mu      sync.Mutex
	created bool
}

// NewJSONLStore returns a store rooted at dir. The directory is created
// lazily on the first append so an unused store touches nothing.
func NewJSONLStore(dir string) *JSONLStore {
	return &JSONLStore{root: dir}
}

// Append serializes the record with a kind tag and appends it as one line
// to the store for its kind.
func (s *JSONLStore) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.created {
		// MkdirAll is a no-op when the directory already exists, which
		// also absorbs create races with sibling processes.
		if err := os.MkdirAll(s.root, 0o755); err != nil {
			return err
		}
		s.created = true
	}

	name, ok := kindFiles[rec.RecordKind()]
	if !ok {
		name = rec.RecordKind() + ".jsonl"
	}

	line, err := marshalLine(rec)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(s.root, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(line)
	return err
}

// marshalLine injects the kind tag and terminates the line. Records embed a
// Kind field so readers can demux mixed streams; it is filled here rather
// than at construction so analyzers cannot get it wrong.
func marshalLine(rec Record) ([]byte, error) {
	b, err := json.Marshal(withKind(rec))
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func withKind(rec Record) Record {
	switch r := rec.(type) {
	case ViolationRecord:
		r.Kind = r.RecordKind()
		return r
	case DecisionRecord:
		r.Kind = r.RecordKind()
		return r
	case PatternRecord:
		r.Kind = r.RecordKind()
		return r
	case FaultRecord:
		r.Kind = r.RecordKind()
		return r
	default:
		return rec
	}
}
