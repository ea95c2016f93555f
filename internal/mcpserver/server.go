// Package mcpserver exposes the travel tools to MCP clients over stdio, for
// one user fixed at start-up.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/comigor/travelbot/internal/history"
	"github.com/comigor/travelbot/internal/logger"
	"github.com/comigor/travelbot/pkg/tools"
)

const serverName = "travelbot"

type Server struct {
	mcp        *server.MCPServer
	dispatcher *tools.Dispatcher
	scope      tools.Scope
	log        *slog.Logger
}

// New registers every tool of registry. Calls run through dispatcher on
// behalf of scope.
func New(registry *tools.Registry, dispatcher *tools.Dispatcher, scope tools.Scope, version string) (*Server, error) {
	s := &Server{
		mcp:        server.NewMCPServer(serverName, version, server.WithToolCapabilities(false)),
		dispatcher: dispatcher,
		scope:      scope,
		log:        logger.Component("mcp"),
	}
	for _, t := range registry.List() {
		schema, err := json.Marshal(t.Definition().Function.Parameters)
		if err != nil {
			return nil, fmt.Errorf("encode schema of %s: %w", t.Name(), err)
		}
		s.mcp.AddTool(mcp.NewToolWithRawSchema(t.Name(), t.Description(), schema), s.handler(t.Name()))
		s.log.Debug("registered MCP tool", "tool", t.Name())
	}
	return s, nil
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := "{}"
		if req.Params.Arguments != nil {
			b, err := json.Marshal(req.Params.Arguments)
			if err != nil {
				return mcp.NewToolResultError("Error: could not encode arguments: " + err.Error()), nil
			}
			args = string(b)
		}

		res := s.dispatcher.Dispatch(ctx, s.scope, history.ToolCall{
			ID:        "mcp_" + uuid.NewString(),
			Name:      name,
			Arguments: args,
		})
		if res.Err != nil {
			return mcp.NewToolResultError(res.Content()), nil
		}
		return mcp.NewToolResultText(res.Content()), nil
	}
}

// ServeStdio blocks serving requests on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("serving MCP over stdio", "user_id", s.scope.UserID)
	return server.ServeStdio(s.mcp)
}
