// Package llm provides the model-gateway client infrastructure for Sous:
// request/response types, the tier registry, the HTTP provider adapter and
// the retrying client that every domain service calls through.
package llm

import "encoding/json"

// Message is a single turn in a conversation sent to the model.
type Message struct {
	Role       string     `json:"role"` // "system", "user", "assistant" or "tool"
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // set on assistant turns that request tools
	ToolCallID string     `json:"tool_call_id,omitempty"` // set on tool-result turns
}

// ToolCall is a model-issued request to invoke a registered tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolSchema describes a tool the model is allowed to call.
// Parameters is a JSON Schema object.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ChatRequest is a provider-agnostic completion request.
// ImageURL, when set, attaches an image to the final user message;
// the router guarantees the selected tier supports vision in that case.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	Tools       []ToolSchema
	ImageURL    string
}

// ChatResponse is a provider-agnostic completion result.
// A response carries either Content, ToolCalls, or both; StopReason
// reports why the model stopped ("stop", "tool_calls", "length").
type ChatResponse struct {
	Content          string
	ToolCalls        []ToolCall
	StopReason       string
	PromptTokens     int
	CompletionTokens int
}

// TotalTokens returns prompt plus completion tokens for cost accounting.
func (r *ChatResponse) TotalTokens() int {
	return r.PromptTokens + r.CompletionTokens
}

// HasToolCalls reports whether the model requested tool execution.
func (r *ChatResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}
