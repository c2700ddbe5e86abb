// Package engine defines the backend-neutral execution surface: the event
// model every backend emits, the Adapter interface, invocation parameters,
// the adapter registry, and the concurrency limiter.
//
// Every backend, whether it shells out to a local CLI agent or talks to an
// HTTP chat-completion service, is driven through Adapter.Invoke and
// produces the same ordered event stream. Consumers range over the channel
// until the terminal Done event; the stream always ends with exactly one
// Done, on success and on failure alike.
package engine

import "encoding/json"

// EventType identifies the kind of an engine event.
type EventType string

const (
	// EventTextDelta carries an incremental piece of response text.
	EventTextDelta EventType = "text_delta"
	// EventTextFinal carries the authoritative full response text. When
	// present it supersedes the concatenation of prior deltas.
	EventTextFinal EventType = "text_final"
	// EventToolStart announces a tool execution with its arguments.
	EventToolStart EventType = "tool_start"
	// EventToolEnd reports the outcome of the matching tool_start.
	EventToolEnd EventType = "tool_end"
	// EventError carries a sanitized failure message. Error messages never
	// contain prompt text, full command lines, or paths outside the
	// configured sandbox roots.
	EventError EventType = "error"
	// EventDone terminates the stream. Emitted exactly once, always last.
	EventDone EventType = "done"
)

// Event is a single entry in a backend's response stream.
//
// Within one stream: zero or more text_delta events precede an optional
// text_final, tool_start/tool_end pairs are strictly ordered with exactly
// one tool_end per tool_start, and done is the final event.
type Event struct {
	Type EventType `json:"type"`

	// Text is the delta or final text for text events.
	Text string `json:"text,omitempty"`

	// ToolName and ToolArgs describe the call for tool_start; ToolName,
	// ToolOK and ToolResult describe the outcome for tool_end.
	ToolName   string          `json:"tool_name,omitempty"`
	ToolArgs   json.RawMessage `json:"tool_args,omitempty"`
	ToolOK     bool            `json:"tool_ok,omitempty"`
	ToolResult string          `json:"tool_result,omitempty"`

	// Message is the sanitized error text for error events.
	Message string `json:"message,omitempty"`
}

// TextDelta builds a text_delta event.
func TextDelta(text string) Event { return Event{Type: EventTextDelta, Text: text} }

// TextFinal builds a text_final event.
func TextFinal(text string) Event { return Event{Type: EventTextFinal, Text: text} }

// ToolStart builds a tool_start event.
func ToolStart(name string, args json.RawMessage) Event {
	return Event{Type: EventToolStart, ToolName: name, ToolArgs: args}
}

// ToolEnd builds a tool_end event.
func ToolEnd(name string, ok bool, result string) Event {
	return Event{Type: EventToolEnd, ToolName: name, ToolOK: ok, ToolResult: result}
}

// Errorf builds an error event. The message must already be sanitized;
// callers route raw failures through their sanitizer first.
func Errorf(message string) Event { return Event{Type: EventError, Message: message} }

// Done builds the terminal event.
func Done() Event { return Event{Type: EventDone} }
