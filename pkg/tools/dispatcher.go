package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/comigor/travelbot/internal/config"
	"github.com/comigor/travelbot/internal/errorsx"
	"github.com/comigor/travelbot/internal/history"
	"github.com/comigor/travelbot/internal/logger"
)

// UnimplementedNotice is the result of a call to a tool that is not registered.
const UnimplementedNotice = "function not implemented yet."

// DefaultTimeoutGrace is how long a timed-out handler may still take to
// return before its result is discarded.
const DefaultTimeoutGrace = 500 * time.Millisecond

// Result is the outcome of one tool call. Exactly one of Value and Err is
// meaningful.
type Result struct {
	CallID string
	Name   string
	Value  any
	Err    error
}

// Content renders the result as the text the model sees.
func (r Result) Content() string {
	if r.Err != nil {
		return "Error: " + r.Err.Error()
	}
	switch v := r.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "Error: could not encode result: " + err.Error()
		}
		return string(b)
	}
}

// Message is the tool message answering the call.
func (r Result) Message() history.Message {
	return history.ToolResultMessage(r.CallID, r.Name, r.Content())
}

// Dispatcher turns tool calls into results. It never returns an error and
// never panics: every failure becomes an error Result.
type Dispatcher struct {
	registry    *Registry
	timeout     time.Duration
	grace       time.Duration
	parallel    bool
	concurrency int
	log         *slog.Logger
}

func NewDispatcher(registry *Registry, cfg config.AgentConfig) *Dispatcher {
	concurrency := cfg.ToolConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Dispatcher{
		registry:    registry,
		timeout:     cfg.ToolTimeout,
		grace:       DefaultTimeoutGrace,
		parallel:    cfg.ParallelTools,
		concurrency: concurrency,
		log:         logger.Component("dispatcher"),
	}
}

// Dispatch runs a single call.
func (d *Dispatcher) Dispatch(ctx context.Context, scope Scope, call history.ToolCall) Result {
	res := Result{CallID: call.ID, Name: call.Name}

	tool, err := d.registry.Lookup(call.Name)
	if err != nil {
		// not an error for the model: it gets the unimplemented notice
		d.log.Warn("model requested unknown tool", "tool", call.Name, "session", scope.SessionID, "reason", errorsx.Reason(err))
		toolCallsTotal.WithLabelValues(unknownToolLabel, statusUnknown).Inc()
		res.Value = UnimplementedNotice
		return res
	}

	start := time.Now()
	res.Value, res.Err = d.run(ctx, tool, scope, call.Arguments)
	toolCallDuration.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())

	status := statusOK
	if res.Err != nil {
		switch errorsx.Reason(res.Err) {
		case errorsx.ReasonValidation:
			status = statusInvalid
		case errorsx.ReasonTimeout:
			status = statusTimeout
		case errorsx.ReasonPanic:
			status = statusPanic
		default:
			status = statusError
		}
		d.log.Warn("tool call failed", "tool", call.Name, "call_id", call.ID, "reason", errorsx.Reason(res.Err), "error", res.Err)
	} else {
		d.log.Debug("tool call succeeded", "tool", call.Name, "call_id", call.ID)
	}
	toolCallsTotal.WithLabelValues(call.Name, status).Inc()
	return res
}

type outcome struct {
	value any
	err   error
}

func (d *Dispatcher) run(ctx context.Context, tool Tool, scope Scope, args string) (any, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				d.log.Error("tool panicked", "tool", tool.Name(), "panic", p, "stack", string(debug.Stack()))
				done <- outcome{err: errorsx.Wrap(fmt.Errorf("tool %s panicked: %v", tool.Name(), p), errorsx.ReasonPanic)}
			}
		}()
		v, err := tool.Run(ctx, scope, args)
		done <- outcome{value: v, err: err}
	}()

	select {
	case o := <-done:
		return d.settle(tool, o)
	case <-ctx.Done():
	}

	// A handler that ignores ctx may still be writing. Give it a moment so a
	// write that lands is reported as done instead of inviting a retry.
	grace := time.NewTimer(d.grace)
	defer grace.Stop()
	select {
	case o := <-done:
		return d.settle(tool, o)
	case <-grace.C:
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		d.log.Error("tool ignored its deadline, result will be discarded", "tool", tool.Name(), "timeout", d.timeout)
		return nil, d.timedOut(tool)
	}
	return nil, fmt.Errorf("tool %s cancelled: %w", tool.Name(), ctx.Err())
}

// settle maps a handler that gave up on its deadline to a timeout error.
func (d *Dispatcher) settle(tool Tool, o outcome) (any, error) {
	if o.err != nil && errors.Is(o.err, context.DeadlineExceeded) {
		return nil, d.timedOut(tool)
	}
	return o.value, o.err
}

func (d *Dispatcher) timedOut(tool Tool) error {
	return errorsx.Wrap(fmt.Errorf("tool %s timed out after %s", tool.Name(), d.timeout), errorsx.ReasonTimeout)
}

// DispatchAll runs every call of one round and returns the results in the
// order of calls. With parallel dispatch enabled at most concurrency calls
// run at once.
func (d *Dispatcher) DispatchAll(ctx context.Context, scope Scope, calls []history.ToolCall) []Result {
	results := make([]Result, len(calls))
	if !d.parallel || len(calls) < 2 {
		for i, call := range calls {
			results[i] = d.Dispatch(ctx, scope, call)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = d.Dispatch(ctx, scope, call)
			return nil
		})
	}
	_ = g.Wait() // Dispatch never fails
	return results
}
