package tools

import (
	"context"

	"github.com/comigor/travelbot/internal/llm"
)

// Scope identifies who a tool runs on behalf of. Handlers must only touch
// records owned by UserID.
type Scope struct {
	UserID    int64
	SessionID string
}

// Tool is the interface for all tools
type Tool interface {
	Name() string
	Description() string
	// Definition is the catalogue entry advertised to the model.
	Definition() llm.ToolDef
	// Run decodes the raw JSON arguments and executes the tool. The returned
	// value is a string or anything that marshals to JSON. Run must stop
	// and return ctx.Err() once ctx is done; a result that arrives after
	// the dispatcher's grace period is dropped.
	Run(ctx context.Context, scope Scope, args string) (any, error)
}

// Handler receives arguments that were already decoded and validated.
type Handler[A any] func(ctx context.Context, scope Scope, args A) (any, error)

type typedTool[A any] struct {
	name        string
	description string
	def         llm.ToolDef
	handler     Handler[A]
}

// New builds a Tool whose parameter schema is derived from the fields of A.
// See SchemaFor for the supported struct tags.
func New[A any](name, description string, handler Handler[A]) Tool {
	return &typedTool[A]{
		name:        name,
		description: description,
		def: llm.ToolDef{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        name,
				Description: description,
				Parameters:  SchemaFor[A](),
			},
		},
		handler: handler,
	}
}

func (t *typedTool[A]) Name() string            { return t.name }
func (t *typedTool[A]) Description() string     { return t.description }
func (t *typedTool[A]) Definition() llm.ToolDef { return t.def }

func (t *typedTool[A]) Run(ctx context.Context, scope Scope, raw string) (any, error) {
	args, err := DecodeArgs[A](raw)
	if err != nil {
		return nil, err
	}
	return t.handler(ctx, scope, args)
}
