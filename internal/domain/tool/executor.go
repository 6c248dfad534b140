package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sous-ai/sous/internal/infra/llm"
	"github.com/sous-ai/sous/internal/infra/metrics"
)

// Result is the outcome of one executed tool call. Failures are data,
// not errors: the loop feeds them back to the model as tool results so
// it can recover or explain.
type Result struct {
	CallID  string `json:"-"`
	Name    string `json:"-"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Payload renders the result as the JSON body of a tool-result message.
func (r Result) Payload() string {
	raw, err := json.Marshal(r)
	if err != nil {
		return `{"success":false,"error":"unencodable tool result"}`
	}
	return string(raw)
}

// Executor validates and runs model-issued tool calls against a Registry.
// Calls within a round must be executed sequentially by the caller; the
// executor itself runs exactly one call at a time per invocation.
type Executor struct {
	registry *Registry
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// NewExecutor builds an Executor over the registry.
func NewExecutor(registry *Registry, m *metrics.Metrics, log zerolog.Logger) *Executor {
	return &Executor{
		registry: registry,
		metrics:  m,
		log:      log.With().Str("component", "tool.executor").Logger(),
	}
}

// Execute runs one tool call: resolve the definition, decode and check
// the arguments, invoke the handler. Every failure mode produces a
// Result with Success=false rather than an error return.
func (e *Executor) Execute(ctx context.Context, call llm.ToolCall) Result {
	def, ok := e.registry.Get(call.Name)
	if !ok {
		e.metrics.ToolCallsTotal.WithLabelValues(call.Name, "unknown").Inc()
		return failure(call, fmt.Sprintf("unknown tool %q", call.Name))
	}

	args, err := decodeArgs(call.Arguments)
	if err != nil {
		e.metrics.ToolCallsTotal.WithLabelValues(call.Name, "bad_args").Inc()
		return failure(call, fmt.Sprintf("invalid arguments: %v", err))
	}
	for _, name := range def.Required {
		if _, present := args[name]; !present {
			e.metrics.ToolCallsTotal.WithLabelValues(call.Name, "bad_args").Inc()
			return failure(call, fmt.Sprintf("missing required argument %q", name))
		}
	}

	data, err := def.Handler(ctx, args)
	if err != nil {
		e.metrics.ToolCallsTotal.WithLabelValues(call.Name, "error").Inc()
		e.log.Warn().Str("tool", call.Name).Err(err).Msg("tool handler failed")
		return failure(call, err.Error())
	}

	e.metrics.ToolCallsTotal.WithLabelValues(call.Name, "ok").Inc()
	return Result{CallID: call.ID, Name: call.Name, Success: true, Data: data}
}

func failure(call llm.ToolCall, msg string) Result {
	return Result{CallID: call.ID, Name: call.Name, Success: false, Error: msg}
}

// decodeArgs parses the model-supplied argument JSON. Empty arguments
// decode to an empty bag; models frequently send "" or "{}" for
// zero-argument tools.
func decodeArgs(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// stringArg reads a string argument, tolerating absence.
func stringArg(args map[string]any, name string) string {
	v, _ := args[name].(string)
	return v
}

// numberArg reads a numeric argument, tolerating absence and the model
// sending numbers as strings.
func numberArg(args map[string]any, name string) float64 {
	switch v := args[name].(type) {
	case float64:
		return v
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%f", &f); err == nil {
			return f
		}
	}
	return 0
}
