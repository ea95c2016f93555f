package mcpserver

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/comigor/travelbot/internal/config"
	"github.com/comigor/travelbot/internal/knowledge"
	"github.com/comigor/travelbot/internal/store"
	"github.com/comigor/travelbot/pkg/tools"
)

func newTestServer(t *testing.T) (*Server, *store.SQLite, int64) {
	t.Helper()
	ctx := context.Background()
	st, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "travel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	user, _, err := st.FindOrCreateUser(ctx, "Asha", "asha@example.com")
	require.NoError(t, err)

	kb, err := knowledge.Load()
	require.NoError(t, err)
	reg, err := tools.NewRegistry(tools.TravelTools(st, kb, time.Now)...)
	require.NoError(t, err)

	srv, err := New(reg, tools.NewDispatcher(reg, config.AgentConfig{ToolTimeout: time.Second}), tools.Scope{UserID: user.ID, SessionID: "mcp"}, "test")
	require.NoError(t, err)
	return srv, st, user.ID
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestHandler_WritesForScopedUser(t *testing.T) {
	srv, st, userID := newTestServer(t)

	req := mcp.CallToolRequest{}
	req.Params.Name = tools.SaveTip
	req.Params.Arguments = map[string]any{"destination": "Goa", "tip_content": "Carry cash for beach shacks"}

	res, err := srv.handler(tools.SaveTip)(context.Background(), req)
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Contains(t, textOf(t, res), `"status":"success"`)

	tips, err := st.ListSavedTips(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, tips, 1)
	require.Equal(t, "Carry cash for beach shacks", tips[0].Content)
}

func TestHandler_ValidationErrorIsToolError(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := mcp.CallToolRequest{}
	req.Params.Name = tools.AddVisitedPlace
	req.Params.Arguments = map[string]any{"placeName": "Baga Beach"}

	res, err := srv.handler(tools.AddVisitedPlace)(context.Background(), req)
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, textOf(t, res), `missing required field "country"`)
}

func TestHandler_NoArguments(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := mcp.CallToolRequest{}
	req.Params.Name = tools.GetUserHistory

	res, err := srv.handler(tools.GetUserHistory)(context.Background(), req)
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Contains(t, textOf(t, res), `"name":"Asha"`)
}
