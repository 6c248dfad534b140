// Package tool implements the callable-operation side of the tool loop:
// a registry of named operations with JSON-schema parameter descriptions,
// an executor that validates and runs model-issued calls, and the builtin
// cooking-data operations.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/sous-ai/sous/internal/infra/llm"
)

// Handler executes one tool call with decoded arguments.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Definition is a registered tool: the schema advertised to the model
// plus the handler that serves it.
type Definition struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON Schema object for the arguments
	Required    []string        // argument names that must be present
	Handler     Handler
}

// Registry holds the registered tools. Registration happens at startup;
// lookups are concurrent-safe.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a tool definition. Re-registering a name is a programming
// error and returns one.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" || def.Handler == nil {
		return fmt.Errorf("tool: definition needs a name and a handler")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("tool: %q already registered", def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Schemas returns the registered tools as provider tool schemas, sorted
// by name so the advertised list is stable across calls.
func (r *Registry) Schemas() []llm.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)

	schemas := make([]llm.ToolSchema, 0, len(names))
	for _, name := range names {
		def := r.defs[name]
		schemas = append(schemas, llm.ToolSchema{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		})
	}
	return schemas
}

// objectSchema builds a JSON Schema object from property descriptions.
// Convenience for builtin registration; properties map name → schema.
func objectSchema(properties map[string]any, required []string) json.RawMessage {
	doc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("tool: invalid schema: %v", err))
	}
	return raw
}
