package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Handler executes one tool with raw JSON parameters.
type Handler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Tool represents one callable pipeline operation.
type Tool struct {
	Name        string  // e.g. "resolve_supplier"
	Description string  // Human-readable description
	Handler     Handler // Actual function to execute
}

// Registry manages the callable tools.
type Registry struct {
	tools map[string]*Tool
	mu    sync.RWMutex
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool to the registry.
func (r *Registry) Register(t *Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %s already registered", t.Name)
	}

	r.tools[t.Name] = t
	return nil
}

// Get retrieves a tool from the registry.
func (r *Registry) Get(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool %s not found", name)
	}

	return t, nil
}

// List returns all registered tools.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	return tools
}

// NotFoundError marks a lookup that came back empty: an unresolved supplier
// or an invoice with nothing to pair. The executor turns it into the
// "not_found" envelope status instead of "error".
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string {
	return e.Reason
}
