package history

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_SystemPromptIsFirstMessage(t *testing.T) {
	h := New("s1", "You are a travel agent.")
	require.Equal(t, 1, h.Len())
	require.Equal(t, RoleSystem, h.Messages()[0].Role)
	require.Equal(t, "s1", h.SessionID())

	require.Equal(t, 0, New("s2", "").Len())
}

func TestAppend_ToolRoundTrip(t *testing.T) {
	h := New("s", "sys")
	calls := []ToolCall{
		{ID: "call_1", Name: "getLocalTips", Arguments: `{"destination":"Goa"}`},
		{ID: "call_2", Name: "getSafetyInfo", Arguments: `{"destination":"Goa"}`},
	}
	require.NoError(t, h.Append(UserMessage("Goa tips?"), ToolRequestMessage("", calls)))
	require.Equal(t, []string{"call_1", "call_2"}, h.Pending())

	require.NoError(t, h.Append(
		ToolResultMessage("call_1", "getLocalTips", "[]"),
		ToolResultMessage("call_2", "getSafetyInfo", "[]"),
	))
	require.Empty(t, h.Pending())
	require.NoError(t, h.Append(AssistantMessage("Here you go.")))
	require.NoError(t, Validate(h.Messages(), false))
}

func TestAppend_RejectsDanglingResult(t *testing.T) {
	h := New("s", "sys")
	require.NoError(t, h.Append(UserMessage("hi"), ToolRequestMessage("", []ToolCall{{ID: "a", Name: "x"}})))

	err := h.Append(ToolResultMessage("b", "x", "nope"))
	require.ErrorIs(t, err, ErrDanglingToolResult)

	// The log is unchanged after a rejected append.
	require.Equal(t, 3, h.Len())
	require.Equal(t, []string{"a"}, h.Pending())
}

func TestAppend_RejectsDuplicateAnswer(t *testing.T) {
	h := New("s", "")
	require.NoError(t, h.Append(ToolRequestMessage("", []ToolCall{{ID: "a", Name: "x"}, {ID: "b", Name: "y"}})))
	require.NoError(t, h.Append(ToolResultMessage("a", "x", "ok")))
	require.ErrorIs(t, h.Append(ToolResultMessage("a", "x", "again")), ErrDanglingToolResult)
}

func TestAppend_RejectsMessagesWhileCallsPending(t *testing.T) {
	h := New("s", "")
	require.NoError(t, h.Append(ToolRequestMessage("", []ToolCall{{ID: "a", Name: "x"}})))
	require.ErrorIs(t, h.Append(AssistantMessage("done")), ErrPendingToolCalls)
	require.ErrorIs(t, h.Append(UserMessage("hello?")), ErrPendingToolCalls)
}

func TestAppend_RejectsMalformedRequests(t *testing.T) {
	h := New("s", "")
	require.ErrorIs(t, h.Append(ToolRequestMessage("", []ToolCall{{ID: "", Name: "x"}})), ErrEmptyToolCallID)
	require.ErrorIs(t, h.Append(ToolRequestMessage("", []ToolCall{{ID: "a"}, {ID: "a"}})), ErrDuplicateToolCall)
	require.Equal(t, 0, h.Len())
}

func TestValidate_ResultMustFollowItsRequest(t *testing.T) {
	msgs := []Message{
		UserMessage("q"),
		ToolRequestMessage("", []ToolCall{{ID: "a", Name: "x"}}),
		ToolResultMessage("a", "x", "ok"),
		AssistantMessage("answer"),
		// A late answer to an already-closed request is dangling.
		ToolResultMessage("a", "x", "late"),
	}
	require.ErrorIs(t, Validate(msgs, false), ErrDanglingToolResult)
	require.NoError(t, Validate(msgs[:4], false))
	require.ErrorIs(t, Validate(msgs[:2], false), ErrPendingToolCalls)
	require.NoError(t, Validate(msgs[:2], true))
}

func TestMessages_ReturnsCopy(t *testing.T) {
	h := New("s", "")
	require.NoError(t, h.Append(ToolRequestMessage("", []ToolCall{{ID: "a", Name: "x"}})))
	msgs := h.Messages()
	msgs[0].ToolCalls[0].ID = "mutated"
	require.Equal(t, "a", h.Messages()[0].ToolCalls[0].ID)
}
