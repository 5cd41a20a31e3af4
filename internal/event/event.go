// Package event defines the canonical tool-use event and the normalizer
// that coerces raw hook payloads into it.
package event

import (
	"encoding/json"
	"time"
)

// Event is the canonical representation of one tool invocation. It is
// immutable once constructed: analyzers receive a shared pointer and must
// treat it as read-only.
type Event struct {
	ID         string
	ToolName   string
	SessionID  string
	AgentType  string
	ProjectDir string
	FilePath   string
	Content    string // full post-write text or a diff
	Command    string
	ExitCode   *int // nil when the event carries no exit status
	ResultText string
	ErrorText  string
	Timestamp  time.Time
}

// Failed reports whether the event represents a failed command or tool run.
func (e *Event) Failed() bool {
	if e.ErrorText != "" {
		return true
	}
	return e.ExitCode != nil && *e.ExitCode != 0
}

// rawPayload mirrors the host's hook JSON. Every field is optional; hosts
// disagree on shapes, so the ambiguous ones stay raw until resolution.
type rawPayload struct {
	SessionID    string          `json:"session_id"`
	ToolName     string          `json:"tool_name"`
	AgentType    string          `json:"agent_type"`
	Cwd          string          `json:"cwd"`
	ToolInput    json.RawMessage `json:"tool_input"`
	ToolResponse json.RawMessage `json:"tool_response"`
	ExitCode     *int            `json:"exit_code"`
	Error        string          `json:"error"`
}

type rawInput struct {
	FilePath  string `json:"file_path"`
	Content   string `json:"content"`
	NewString string `json:"new_string"`
	Command   string `json:"command"`
}

// rawResponse is the structured form of a tool response.
type rawResponse struct {
	Content  *string `json:"content"`
	Output   *string `json:"output"`
	Text     *string `json:"text"`
	ExitCode *int    `json:"exit_code"`
	Error    string  `json:"error"`
}

// Normalize builds a canonical Event from a raw hook payload. It never
// fails: malformed or missing fields degrade to zero values so the engine
// keeps its allow-by-default guarantee.
func Normalize(id string, payload []byte) *Event {
	ev := &Event{ID: id, Timestamp: time.Now().UTC()}
	if len(payload) == 0 {
		return ev
	}

	var raw rawPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return ev
	}

	ev.SessionID = raw.SessionID
	ev.ToolName = raw.ToolName
	ev.AgentType = raw.AgentType
	ev.ProjectDir = raw.Cwd
	ev.ExitCode = raw.ExitCode
	ev.ErrorText = raw.Error

	if len(raw.ToolInput) > 0 {
		var in rawInput
		if err := json.Unmarshal(raw.ToolInput, &in); err == nil {
			ev.FilePath = in.FilePath
			ev.Command = in.Command
			// Full-content writes win over edit fragments.
			if in.Content != "" {
				ev.Content = in.Content
			} else {
				ev.Content = in.NewString
			}
		}
	}

	resolveResponse(raw.ToolResponse, ev)
	return ev
}

// resolveResponse extracts the free-text result from a tool response that
// may be a structured object or a bare JSON string. The resolution order is
// fixed: a structured {content} wrapper wins over a bare string, which wins
// over the output field, which wins over the text field, ending in "".
func resolveResponse(raw json.RawMessage, ev *Event) {
	if len(raw) == 0 {
		return
	}

	var obj rawResponse
	if err := json.Unmarshal(raw, &obj); err == nil {
		switch {
		case obj.Content != nil:
			ev.ResultText = *obj.Content
		case obj.Output != nil:
			ev.ResultText = *obj.Output
		case obj.Text != nil:
			ev.ResultText = *obj.Text
		}
		if ev.ExitCode == nil && obj.ExitCode != nil {
			ev.ExitCode = obj.ExitCode
		}
		if ev.ErrorText == "" && obj.Error != "" {
			ev.ErrorText = obj.Error
		}
		return
	}

	// Bare string response.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		ev.ResultText = s
	}
}
