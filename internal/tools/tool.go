// Package tools implements the sandboxed tool executor: a dispatch table of
// stateless handlers for filesystem access, content search, shell execution,
// and outbound web requests. Handlers never panic past the dispatcher and
// never raise; every failure becomes a failed result that is safe to feed
// back to a model.
package tools

import (
	"context"
	"encoding/json"
)

// Tool is one sandbox capability offered to a backend.
type Tool interface {
	// Name returns the tool name used in dispatch and tool schemas.
	Name() string

	// Description returns the natural-language description sent to models.
	Description() string

	// Schema returns the JSON schema for the tool parameters.
	Schema() json.RawMessage

	// Execute runs the tool. Failures are reported through the result's
	// IsError flag; the error return is reserved for infrastructure
	// problems and is converted to a failed result by the executor.
	Execute(ctx context.Context, params json.RawMessage) (*Result, error)
}

// Result is a tool execution outcome.
type Result struct {
	// Content is the payload fed back to the model, usually JSON.
	Content string
	// IsError marks the execution as failed.
	IsError bool
}

// Errorf builds a failed result with a JSON error payload.
func Errorf(message string) *Result {
	payload, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return &Result{Content: message, IsError: true}
	}
	return &Result{Content: string(payload), IsError: true}
}

// MustSchema marshals a schema map, falling back to an open object schema.
func MustSchema(schema map[string]interface{}) json.RawMessage {
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}
