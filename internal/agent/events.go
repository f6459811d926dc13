package agent

import "context"

// Stream event statuses, emitted in the order of the streaming pipeline:
// thinking -> plan -> (tool_calling -> tool_result | tool_error)* ->
// stream_start -> raw text chunks -> done. Any unhandled failure replaces
// the rest of the sequence with a single error event.
const (
	StatusThinking    = "thinking"
	StatusPlan        = "plan"
	StatusToolCalling = "tool_calling"
	StatusToolResult  = "tool_result"
	StatusToolError   = "tool_error"
	StatusStreamStart = "stream_start"
	StatusDone        = "done"
	StatusError       = "error"
)

// Event is a tagged progress message pushed to the caller during a
// streaming response. Only the fields relevant to a given status are set.
type Event struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Tool    string         `json:"tool,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Data    any            `json:"data,omitempty"`
	Result  any            `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// EventSink delivers stream events to a transport. SendText carries raw
// generated-text chunks; SendEvent carries structured progress events.
// A sink whose peer has gone away should return an error from either
// method, which terminates the pipeline.
type EventSink interface {
	SendEvent(ctx context.Context, ev Event) error
	SendText(ctx context.Context, chunk string) error
}
