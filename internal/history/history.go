// Package history keeps the ordered, append-only message log of one
// conversation session.
//
// The log guarantees that every tool message answers a call issued by the
// assistant message right before the current block of tool messages, that no
// call is answered twice, and that no other message is appended while calls
// are still unanswered. A history accepted by Append is therefore always safe
// to send to the model.
package history

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrDanglingToolResult = errors.New("tool result does not answer a pending tool call")
	ErrDuplicateToolCall  = errors.New("tool call id issued twice in one request")
	ErrPendingToolCalls   = errors.New("tool calls are still waiting for results")
	ErrEmptyToolCallID    = errors.New("tool call without id")
)

// History is safe for concurrent use, although a session drives it sequentially.
type History struct {
	mu        sync.Mutex
	sessionID string
	messages  []Message
	pending   []string // call ids of the last tool request, unanswered, in request order
}

// New starts a history. A non-empty system prompt becomes the first message.
func New(sessionID, systemPrompt string) *History {
	h := &History{sessionID: sessionID}
	if systemPrompt != "" {
		h.messages = append(h.messages, SystemMessage(systemPrompt))
	}
	return h
}

func (h *History) SessionID() string { return h.sessionID }

// Append validates and appends messages. On error nothing from msgs is kept.
func (h *History) Append(msgs ...Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	pending := append([]string(nil), h.pending...)
	for i, m := range msgs {
		next, err := advance(pending, m)
		if err != nil {
			return fmt.Errorf("append message %d (%s): %w", i, m.Role, err)
		}
		pending = next
	}
	h.messages = append(h.messages, cloneAll(msgs)...)
	h.pending = pending
	return nil
}

// Messages returns a copy of the log.
func (h *History) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return cloneAll(h.messages)
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// Pending lists tool call ids still waiting for a result.
func (h *History) Pending() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.pending...)
}

// Validate checks a complete message sequence against the tool back-reference
// rules. A sequence may end with unanswered calls only if allowPending is set.
func Validate(msgs []Message, allowPending bool) error {
	var pending []string
	for i, m := range msgs {
		next, err := advance(pending, m)
		if err != nil {
			return fmt.Errorf("message %d (%s): %w", i, m.Role, err)
		}
		pending = next
	}
	if len(pending) > 0 && !allowPending {
		return fmt.Errorf("%w: %v", ErrPendingToolCalls, pending)
	}
	return nil
}

// advance applies one message to the set of unanswered call ids.
func advance(pending []string, m Message) ([]string, error) {
	if m.Role == RoleTool {
		idx := indexOf(pending, m.ToolCallID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrDanglingToolResult, m.ToolCallID)
		}
		return append(pending[:idx:idx], pending[idx+1:]...), nil
	}
	if len(pending) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrPendingToolCalls, pending)
	}
	if m.Role != RoleAssistant || len(m.ToolCalls) == 0 {
		return nil, nil
	}
	next := make([]string, 0, len(m.ToolCalls))
	for _, c := range m.ToolCalls {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: tool %q", ErrEmptyToolCallID, c.Name)
		}
		if indexOf(next, c.ID) >= 0 {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateToolCall, c.ID)
		}
		next = append(next, c.ID)
	}
	return next, nil
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func cloneAll(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m
		if m.ToolCalls != nil {
			out[i].ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
		}
	}
	return out
}
