package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/comigor/travelbot/internal/config"
	"github.com/comigor/travelbot/internal/errorsx"
	"github.com/comigor/travelbot/internal/history"
	"github.com/comigor/travelbot/internal/llm"
	"github.com/comigor/travelbot/internal/logger"
	"github.com/comigor/travelbot/internal/store"
	"github.com/comigor/travelbot/pkg/tools"
)

const DefaultSystemPrompt = `You are a travel agent with access to a database of users, itineraries, visited places, saved tips, and safety alerts. You give personalized travel advice, create itineraries, and offer safety tips based on the user's preferences and past travel history. Use the knowledge base for general travel tips and local customs.

Your capabilities include:
1. createItinerary: Create a personalized travel itinerary and save it to the database
2. getLocalTips: Get local tips and recommendations for a destination
3. getSafetyInfo: Get safety information and alerts for a destination
4. addVisitedPlace: Record a place the user has visited
5. getUserHistory: Get the user's travel history and preferences
6. saveTip: Save a useful travel tip for future reference
7. updatePreferences: Remember the user's travel preferences

Dates are always in YYYY-MM-DD format.`

// FailureReply is shown to the user when no usable answer could be produced.
const FailureReply = "Sorry, I ran into a problem while working on that. Please try again."

// roundLimitNote is sent, but never stored, with the last tool-free request.
const roundLimitNote = "You have used all available tool calls for this request. Answer the user now with the information gathered so far, without calling any tools."

// Agent runs the tool-calling loop. It holds no per-conversation state, so
// one Agent can serve many sessions.
type Agent struct {
	port         llm.Port
	registry     *tools.Registry
	dispatcher   *tools.Dispatcher
	maxRounds    int
	systemPrompt string
	log          *slog.Logger
}

// New creates a new agent. An empty systemPrompt selects DefaultSystemPrompt.
func New(port llm.Port, registry *tools.Registry, cfg config.AgentConfig, systemPrompt string) *Agent {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	maxRounds := cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 8
	}
	return &Agent{
		port:         port,
		registry:     registry,
		dispatcher:   tools.NewDispatcher(registry, cfg),
		maxRounds:    maxRounds,
		systemPrompt: systemPrompt,
		log:          logger.Component("agent"),
	}
}

// NewSession starts a conversation for user. The history begins with the
// system prompt only.
func (a *Agent) NewSession(user store.User) *Session {
	prompt := a.systemPrompt
	if user.Name != "" {
		prompt += fmt.Sprintf("\n\nYou are assisting %s.", user.Name)
	}
	s := newSession(user, prompt)
	a.log.Info("session started", "session", s.ID, "user_id", user.ID)
	return s
}

// Turn feeds one line of user input through the loop and returns the reply.
// Model and tool failures become a reply; an error is returned only when the
// session is closed or ctx is done.
func (a *Agent) Turn(ctx context.Context, s *Session, input string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Closed() {
		return "", ErrSessionClosed
	}
	if err := s.fire(ctx, TriggerUserInput); err != nil {
		return "", fmt.Errorf("start turn: %w", err)
	}
	if err := s.history.Append(history.UserMessage(input)); err != nil {
		_ = s.fire(ctx, TriggerFailure)
		return "", fmt.Errorf("record user input: %w", err)
	}

	reply, outcome, rounds, err := a.run(ctx, s)
	turnRounds.Observe(float64(rounds))
	if err != nil {
		turnsTotal.WithLabelValues(outcomeCancelled).Inc()
		_ = s.fire(context.WithoutCancel(ctx), TriggerFailure)
		return "", err
	}
	turnsTotal.WithLabelValues(outcome).Inc()
	return reply, nil
}

func (a *Agent) run(ctx context.Context, s *Session) (string, string, int, error) {
	scope := tools.Scope{UserID: s.User.ID, SessionID: s.ID}
	defs := a.registry.Definitions()

	for round := 1; ; round++ {
		if round > a.maxRounds {
			a.log.Warn("round limit reached", "session", s.ID, "max_rounds", a.maxRounds)
			reply, outcome, err := a.bestEffort(ctx, s, defs)
			return reply, outcome, round - 1, err
		}

		resp, err := a.port.Infer(ctx, llm.Request{Messages: s.history.Messages(), Tools: defs})
		if err != nil {
			if ctx.Err() != nil {
				return "", "", round, ctx.Err()
			}
			a.log.Error("inference failed", "session", s.ID, "round", round, "reason", errorsx.Reason(err), "error", err)
			reply, err := a.fail(ctx, s)
			return reply, outcomeFailure, round, err
		}

		hasText := strings.TrimSpace(resp.Content) != ""
		hasCalls := len(resp.ToolCalls) > 0
		switch {
		case hasCalls && !hasText:
			if err := a.dispatch(ctx, s, scope, resp.ToolCalls); err != nil {
				return "", "", round, err
			}
		case hasText && !hasCalls:
			reply, err := a.reply(ctx, s, resp.Content)
			return reply, outcomeReply, round, err
		default:
			a.log.Error("model response violates protocol", "session", s.ID, "round", round,
				"has_content", hasText, "tool_calls", len(resp.ToolCalls), "finish_reason", resp.FinishReason)
			reply, err := a.fail(ctx, s)
			return reply, outcomeFailure, round, err
		}
	}
}

func (a *Agent) dispatch(ctx context.Context, s *Session, scope tools.Scope, calls []history.ToolCall) error {
	calls = s.uniqueCallIDs(calls)
	if err := s.fire(ctx, TriggerToolCallsReceived); err != nil {
		return err
	}
	if err := s.history.Append(history.ToolRequestMessage("", calls)); err != nil {
		return fmt.Errorf("record tool calls: %w", err)
	}

	results := a.dispatcher.DispatchAll(ctx, scope, calls)
	msgs := make([]history.Message, len(results))
	for i, r := range results {
		msgs[i] = r.Message()
	}
	if err := s.history.Append(msgs...); err != nil {
		return fmt.Errorf("record tool results: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return s.fire(ctx, TriggerToolsDispatched)
}

// bestEffort asks once more with tools disabled after the round limit.
func (a *Agent) bestEffort(ctx context.Context, s *Session, defs []llm.ToolDef) (string, string, error) {
	msgs := append(s.history.Messages(), history.SystemMessage(roundLimitNote))
	resp, err := a.port.Infer(ctx, llm.Request{Messages: msgs, Tools: defs, DisableTools: true})
	if err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		a.log.Error("best-effort inference failed", "session", s.ID, "error", err)
		reply, err := a.fail(ctx, s)
		return reply, outcomeFailure, err
	}
	if len(resp.ToolCalls) > 0 || strings.TrimSpace(resp.Content) == "" {
		a.log.Error("best-effort response unusable", "session", s.ID, "tool_calls", len(resp.ToolCalls))
		reply, err := a.fail(ctx, s)
		return reply, outcomeFailure, err
	}
	reply, err := a.reply(ctx, s, resp.Content)
	return reply, outcomeBestEffort, err
}

func (a *Agent) reply(ctx context.Context, s *Session, content string) (string, error) {
	if err := s.history.Append(history.AssistantMessage(content)); err != nil {
		return "", fmt.Errorf("record reply: %w", err)
	}
	return content, s.fire(ctx, TriggerReplyReady)
}

func (a *Agent) fail(ctx context.Context, s *Session) (string, error) {
	if err := s.history.Append(history.AssistantMessage(FailureReply)); err != nil {
		return "", fmt.Errorf("record failure reply: %w", err)
	}
	return FailureReply, s.fire(ctx, TriggerFailure)
}
