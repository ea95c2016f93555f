package agent

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/comigor/travelbot/internal/config"
	"github.com/comigor/travelbot/internal/history"
	"github.com/comigor/travelbot/internal/knowledge"
	"github.com/comigor/travelbot/internal/llm"
	"github.com/comigor/travelbot/internal/store"
	"github.com/comigor/travelbot/pkg/tools"
)

// scriptedPort replays queued responses and records every request.
type scriptedPort struct {
	mu        sync.Mutex
	responses []llm.Response
	errs      []error
	requests  []llm.Request
}

func (p *scriptedPort) Infer(_ context.Context, req llm.Request) (llm.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return llm.Response{}, err
		}
	}
	if len(p.responses) == 0 {
		panic("scriptedPort: no more responses configured")
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func text(s string) llm.Response { return llm.Response{Content: s, FinishReason: "stop"} }

func calls(cs ...history.ToolCall) llm.Response {
	return llm.Response{ToolCalls: cs, FinishReason: "tool_calls"}
}

type fixture struct {
	store *store.SQLite
	user  store.User
	agent *Agent
}

func newFixture(t *testing.T, port llm.Port, cfg config.AgentConfig, st store.Store) *fixture {
	t.Helper()
	ctx := context.Background()
	sqlite, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "travel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	if st == nil {
		st = sqlite
	}

	user, created, err := sqlite.FindOrCreateUser(ctx, "Asha", "asha@example.com")
	require.NoError(t, err)
	require.True(t, created)

	kb, err := knowledge.Load()
	require.NoError(t, err)
	reg, err := tools.NewRegistry(tools.TravelTools(st, kb, time.Now)...)
	require.NoError(t, err)

	if cfg.MaxRounds == 0 {
		cfg.MaxRounds = 8
	}
	if cfg.ToolTimeout == 0 {
		cfg.ToolTimeout = 5 * time.Second
	}
	return &fixture{store: sqlite, user: user, agent: New(port, reg, cfg, "")}
}

func requireConsistent(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, history.Validate(s.History().Messages(), false))
}

func TestTurn_DirectReply(t *testing.T) {
	port := &scriptedPort{responses: []llm.Response{text("Hello Asha! Where would you like to go?")}}
	f := newFixture(t, port, config.AgentConfig{}, nil)
	s := f.agent.NewSession(f.user)

	reply, err := f.agent.Turn(context.Background(), s, "hi")
	require.NoError(t, err)
	require.Equal(t, "Hello Asha! Where would you like to go?", reply)
	require.Equal(t, StateAwaitingUserTurn, s.State())

	msgs := s.History().Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, history.RoleSystem, msgs[0].Role)
	require.Contains(t, msgs[0].Content, "You are assisting Asha.")
	require.Equal(t, history.UserMessage("hi"), msgs[1])
	require.Equal(t, history.AssistantMessage(reply), msgs[2])

	require.Len(t, port.requests, 1)
	require.Len(t, port.requests[0].Tools, 7)
	require.False(t, port.requests[0].DisableTools)
}

// The tool request travels through the real OpenAI adapter, mocked at the
// HTTP client boundary.
type mockLLM struct {
	calls    []openai.ChatCompletionResponse
	requests []openai.ChatCompletionRequest
}

func (m *mockLLM) CreateChatCompletion(_ context.Context, r openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.requests = append(m.requests, r)
	if len(m.calls) == 0 {
		panic("mockLLM: no more responses configured for request: " + r.Messages[0].Content)
	}
	resp := m.calls[0]
	m.calls = m.calls[1:]
	return resp, nil
}

func TestTurn_CreatesItinerary(t *testing.T) {
	client := &mockLLM{calls: []openai.ChatCompletionResponse{
		{Choices: []openai.ChatCompletionChoice{{
			FinishReason: openai.FinishReasonToolCalls,
			Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:   "call_goa",
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tools.CreateItinerary,
						Arguments: `{"destination":"Goa","start_date":"2024-01-10","end_date":"2024-01-12","days":3}`,
					},
				}},
			},
		}}},
		{Choices: []openai.ChatCompletionChoice{{
			FinishReason: openai.FinishReasonStop,
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "Your 3-day Goa itinerary is saved!"},
		}}},
	}}
	port := llm.NewOpenAI(client, config.LLMConfig{Model: "test-model"}, llm.WithRetryConfig(llm.RetryConfig{MaxAttempts: 1}))
	f := newFixture(t, port, config.AgentConfig{}, nil)
	s := f.agent.NewSession(f.user)

	reply, err := f.agent.Turn(context.Background(), s, "Plan a 3-day trip to Goa from 2024-01-10 to 2024-01-12")
	require.NoError(t, err)
	require.Equal(t, "Your 3-day Goa itinerary is saved!", reply)

	its, err := f.store.ListItineraries(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.Len(t, its, 1)
	require.Equal(t, "Goa", its[0].Destination)
	require.Equal(t, "2024-01-10", its[0].StartDate)
	require.Equal(t, "2024-01-12", its[0].EndDate)

	msgs := s.History().Messages()
	require.Len(t, msgs, 5)
	require.Equal(t, "call_goa", msgs[2].ToolCalls[0].ID)
	require.Equal(t, history.RoleTool, msgs[3].Role)
	require.Equal(t, "call_goa", msgs[3].ToolCallID)
	require.Contains(t, msgs[3].Content, `"status":"success"`)
	requireConsistent(t, s)

	// second request carries the tool result back to the model
	require.Len(t, client.requests, 2)
	sent := client.requests[1].Messages
	require.Equal(t, openai.ChatMessageRoleTool, sent[3].Role)
	require.Equal(t, "call_goa", sent[3].ToolCallID)
}

func TestRun_ExitFirst(t *testing.T) {
	port := &scriptedPort{}
	f := newFixture(t, port, config.AgentConfig{}, nil)
	s := f.agent.NewSession(f.user)

	var out strings.Builder
	err := f.agent.Run(context.Background(), s, strings.NewReader("exit\n"), &out)
	require.NoError(t, err)
	require.Equal(t, StateClosed, s.State())
	require.Equal(t, 1, s.History().Len())
	require.Empty(t, port.requests)

	_, err = f.agent.Turn(context.Background(), s, "hello again")
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestRun_Conversation(t *testing.T) {
	port := &scriptedPort{responses: []llm.Response{text("Hi!"), text("Goa is lovely in winter."), text("Any time!")}}
	f := newFixture(t, port, config.AgentConfig{}, nil)
	s := f.agent.NewSession(f.user)

	var out strings.Builder
	err := f.agent.Run(context.Background(), s, strings.NewReader("hello\r\n\nWhen should I visit Goa?\nBye!\nbye\nignored\n"), &out)
	require.NoError(t, err)
	require.Equal(t, StateClosed, s.State())

	// "Bye!" is ordinary conversation; only the exact "bye" stops the loop
	require.Len(t, port.requests, 3)
	require.Equal(t, "Bye!", port.requests[2].Messages[len(port.requests[2].Messages)-1].Content)
	require.Contains(t, out.String(), "Travel Agent: Hi!\n")
	require.Contains(t, out.String(), "Travel Agent: Goa is lovely in winter.\n")
	require.NotContains(t, out.String(), "ignored")
}

func TestRun_EOFClosesSession(t *testing.T) {
	port := &scriptedPort{responses: []llm.Response{text("Hi!")}}
	f := newFixture(t, port, config.AgentConfig{}, nil)
	s := f.agent.NewSession(f.user)

	err := f.agent.Run(context.Background(), s, strings.NewReader("hello"), &strings.Builder{})
	require.NoError(t, err)
	require.Equal(t, StateClosed, s.State())
	require.Equal(t, 3, s.History().Len())
}

func TestIsExitToken(t *testing.T) {
	tests := map[string]bool{
		"bye":      true,
		"good bye": true,
		"exit":     true,
		"Bye":      false,
		"Bye!":     false,
		"goodbye":  false,
		" exit":    false,
		"exit now": false,
		"":         false,
	}
	for in, want := range tests {
		require.Equal(t, want, IsExitToken(in), "input %q", in)
	}
}

func TestNewSession_IndependentHistories(t *testing.T) {
	f := newFixture(t, &scriptedPort{}, config.AgentConfig{}, nil)
	a := f.agent.NewSession(f.user)
	b := f.agent.NewSession(f.user)
	require.NotEqual(t, a.ID, b.ID)
	require.NoError(t, a.History().Append(history.UserMessage("only in a")))
	require.Equal(t, 1, b.History().Len())
}

type cancellingPort struct{ cancel context.CancelFunc }

func (p cancellingPort) Infer(ctx context.Context, _ llm.Request) (llm.Response, error) {
	p.cancel()
	return llm.Response{}, ctx.Err()
}

func TestTurn_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t, cancellingPort{cancel: cancel}, config.AgentConfig{}, nil)
	s := f.agent.NewSession(f.user)

	_, err := f.agent.Turn(ctx, s, "hi")
	require.True(t, errors.Is(err, context.Canceled))
	require.Equal(t, StateAwaitingUserTurn, s.State())
}
