package tools

import (
	"fmt"

	"github.com/comigor/travelbot/internal/errorsx"
	"github.com/comigor/travelbot/internal/llm"
)

// Registry holds the tools available to the model, in registration order.
// It is built once at start-up and only read afterwards.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates a Registry holding tools.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(tool Tool) error {
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool has no name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Lookup retrieves a tool by name. Unregistered names fail with an
// unknown_tool reason.
func (r *Registry) Lookup(name string) (Tool, error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, errorsx.Wrap(fmt.Errorf("unknown tool %q", name), errorsx.ReasonUnknownTool)
	}
	return tool, nil
}

// List returns all registered tools
func (r *Registry) List() []Tool {
	ts := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		ts = append(ts, r.tools[name])
	}
	return ts
}

// Definitions is the catalogue sent with every inference request.
func (r *Registry) Definitions() []llm.ToolDef {
	defs := make([]llm.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}
