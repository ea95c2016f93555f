package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/qmuntal/stateless"

	"github.com/comigor/travelbot/internal/history"
	"github.com/comigor/travelbot/internal/logger"
	"github.com/comigor/travelbot/internal/store"
)

// FSM States
type FSMState string

const (
	StateAwaitingUserTurn FSMState = "AwaitingUserTurn"
	StateInferring        FSMState = "Inferring"
	StateDispatching      FSMState = "Dispatching"
	StateClosed           FSMState = "Closed" // Terminal
)

// FSM Triggers
type FSMTrigger string

const (
	TriggerUserInput         FSMTrigger = "UserInput"
	TriggerToolCallsReceived FSMTrigger = "ToolCallsReceived"
	TriggerToolsDispatched   FSMTrigger = "ToolsDispatched"
	TriggerReplyReady        FSMTrigger = "ReplyReady"
	TriggerFailure           FSMTrigger = "Failure"
	TriggerExit              FSMTrigger = "Exit"
)

var ErrSessionClosed = errors.New("session is closed")

// Session is one conversation with one authenticated user. Turns on a session
// run one at a time; different sessions are independent.
type Session struct {
	ID   string
	User store.User

	mu      sync.Mutex
	history *history.History
	fsm     *stateless.StateMachine
	callIDs map[string]struct{}
}

func newSession(user store.User, systemPrompt string) *Session {
	id := uuid.NewString()
	s := &Session{
		ID:      id,
		User:    user,
		history: history.New(id, systemPrompt),
		fsm:     stateless.NewStateMachine(StateAwaitingUserTurn),
		callIDs: map[string]struct{}{},
	}

	s.fsm.Configure(StateAwaitingUserTurn).
		Permit(TriggerUserInput, StateInferring).
		Permit(TriggerExit, StateClosed)

	s.fsm.Configure(StateInferring).
		Permit(TriggerToolCallsReceived, StateDispatching).
		Permit(TriggerReplyReady, StateAwaitingUserTurn).
		Permit(TriggerFailure, StateAwaitingUserTurn).
		Permit(TriggerExit, StateClosed)

	s.fsm.Configure(StateDispatching).
		Permit(TriggerToolsDispatched, StateInferring).
		Permit(TriggerFailure, StateAwaitingUserTurn).
		Permit(TriggerExit, StateClosed)

	log := logger.Component("session")
	s.fsm.OnTransitioned(func(_ context.Context, t stateless.Transition) {
		log.Debug("session transition", "session", id, "from", t.Source, "to", t.Destination, "trigger", t.Trigger)
	})
	return s
}

// History returns the session's message log.
func (s *Session) History() *history.History { return s.history }

func (s *Session) State() FSMState {
	return s.fsm.MustState().(FSMState)
}

func (s *Session) Closed() bool { return s.State() == StateClosed }

// Close moves the session to its terminal state. Closing twice is a no-op.
func (s *Session) Close(ctx context.Context) error {
	if s.Closed() {
		return nil
	}
	return s.fsm.FireCtx(ctx, TriggerExit)
}

func (s *Session) fire(ctx context.Context, t FSMTrigger) error {
	return s.fsm.FireCtx(ctx, t)
}

// uniqueCallIDs replaces missing or reused call ids with fresh ones so every
// tool result can be matched to exactly one call.
func (s *Session) uniqueCallIDs(calls []history.ToolCall) []history.ToolCall {
	out := make([]history.ToolCall, len(calls))
	for i, c := range calls {
		if _, seen := s.callIDs[c.ID]; c.ID == "" || seen {
			c.ID = "call_" + uuid.NewString()
		}
		s.callIDs[c.ID] = struct{}{}
		out[i] = c
	}
	return out
}
