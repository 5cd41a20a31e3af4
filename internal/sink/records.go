// Package sink appends structured records to newline-delimited JSON log
// stores. Writes are best-effort: a failed or dropped write never reaches
// the caller, so persistence can never change a verdict.
package sink

import "time"

// Record is one line destined for a JSONL store. Kind selects the target
// store and is embedded in the serialized line.
type Record interface {
	RecordKind() string
}

// ViolationRecord captures a Block or Warn produced by a policy analyzer.
type ViolationRecord struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	SessionID string    `json:"session_id,omitempty"`
	Tool      string    `json:"tool"`
	Path      string    `json:"path,omitempty"`
	Verdict   string    `json:"verdict"`
	Reason    string    `json:"reason"`
	Message   string    `json:"message"`
}

func (ViolationRecord) RecordKind() string { return "violation" }

// DecisionRecord is one decision extracted from free-text agent output.
type DecisionRecord struct {
	Timestamp    time.Time `json:"ts"`
	Kind         string    `json:"kind"`
	SessionID    string    `json:"session_id,omitempty"`
	Text         string    `json:"text"`
	Rationale    string    `json:"rationale,omitempty"`
	Alternatives []string  `json:"alternatives,omitempty"`
	Constraints  []string  `json:"constraints,omitempty"`
	Tradeoffs    []string  `json:"tradeoffs,omitempty"`
	Entities     []string  `json:"entities,omitempty"`
	Confidence   float64   `json:"confidence"`
	Category     string    `json:"category"`
	Importance   string    `json:"importance"`
}

func (DecisionRecord) RecordKind() string { return "decision" }

// PatternRecord is one deduplicated successful pattern observed on agent
// completion. Entries are append-only; retention belongs to the store.
type PatternRecord struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	Agent     string    `json:"agent"`
	Pattern   string    `json:"pattern"`
	Category  string    `json:"category"`
	Project   string    `json:"project,omitempty"`
}

func (PatternRecord) RecordKind() string { return "pattern" }

// FaultRecord notes an analyzer that crashed or errored. Faults never
// change the verdict but are persisted so they stay visible.
type FaultRecord struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	Analyzer  string    `json:"analyzer"`
	Error     string    `json:"error"`
}

func (FaultRecord) RecordKind() string { return "fault" }
