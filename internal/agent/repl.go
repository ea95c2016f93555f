package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// exitTokens end the conversation. They match exactly: "Bye!" is ordinary input.
var exitTokens = map[string]struct{}{
	"bye":      {},
	"good bye": {},
	"exit":     {},
}

func IsExitToken(line string) bool {
	_, ok := exitTokens[line]
	return ok
}

const (
	userPrompt  = "User: "
	agentPrefix = "Travel Agent: "
)

// Run reads one line per turn from in and writes replies to out until the
// user types an exit token or the input ends. The session is closed on every
// return path.
func (a *Agent) Run(ctx context.Context, s *Session, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel() // releases the reader goroutine
	return a.RunLines(ctx, s, NewLineReader(ctx, in), out)
}

// RunLines is Run over a LineReader the caller may already have read from.
func (a *Agent) RunLines(ctx context.Context, s *Session, lines *LineReader, out io.Writer) error {
	defer func() {
		if err := s.Close(context.WithoutCancel(ctx)); err != nil {
			a.log.Warn("session close failed", "session", s.ID, "error", err)
		}
		a.log.Info("session ended", "session", s.ID, "messages", s.history.Len())
	}()

	for {
		fmt.Fprint(out, userPrompt)
		line, err := lines.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			fmt.Fprintln(out)
			return nil
		case ctx.Err() != nil:
			fmt.Fprintln(out)
			return ctx.Err()
		default:
			a.log.Warn("input read failed", "session", s.ID, "error", err)
			fmt.Fprintln(out)
			return nil
		}

		if IsExitToken(line) {
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		reply, err := a.Turn(ctx, s, line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, agentPrefix+reply)
	}
}
