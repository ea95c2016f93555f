package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/comigor/travelbot/internal/agent"
	"github.com/comigor/travelbot/internal/llm"
	"github.com/comigor/travelbot/internal/logger"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation (default)",
		Args:  cobra.NoArgs,
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	printBanner(out)

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.L.Warn("shutdown", "error", err)
		}
	}()

	if a.cfg.LLM.APIKey == "" {
		return errors.New("no API key configured: set llm.api_key, TRAVELBOT_LLM_API_KEY or GROQ_API_KEY")
	}
	if a.cfg.Metrics.Addr != "" {
		go serveMetrics(ctx, a.cfg.Metrics.Addr)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := agent.NewLineReader(ctx, cmd.InOrStdin())

	name, err := ask(ctx, lines, out, "What is your name? ")
	if err != nil {
		return interrupted(out, err)
	}
	email, err := ask(ctx, lines, out, "What is your email? ")
	if err != nil {
		return interrupted(out, err)
	}

	user, created, err := a.store.FindOrCreateUser(ctx, name, email)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if created {
		fmt.Fprintf(out, "Welcome %s! Your profile has been created.\n", user.Name)
	} else {
		fmt.Fprintf(out, "Welcome back %s!\n", user.Name)
	}

	port := llm.NewOpenAI(llm.NewClient(a.cfg.LLM), a.cfg.LLM)
	travelAgent := agent.New(port, a.registry, a.cfg.Agent, a.cfg.LLM.SystemPrompt)
	session := travelAgent.NewSession(user)

	err = travelAgent.RunLines(ctx, session, lines, out)
	fmt.Fprintln(out, "\n👋 Thanks for using TravelBot! Safe travels!")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// interrupted turns a Ctrl-C at a prompt into a clean exit.
func interrupted(out io.Writer, err error) error {
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(out)
		return nil
	}
	return err
}

// ask prompts until a non-blank answer is given.
func ask(ctx context.Context, lines *agent.LineReader, out io.Writer, question string) (string, error) {
	for {
		fmt.Fprint(out, question)
		line, err := lines.Next(ctx)
		if err != nil {
			return "", fmt.Errorf("read answer: %w", err)
		}
		if answer := strings.TrimSpace(line); answer != "" {
			return answer, nil
		}
	}
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.L.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.L.Error("metrics endpoint failed", "addr", addr, "error", err)
	}
}
