package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/comigor/travelbot/internal/config"
	"github.com/comigor/travelbot/internal/errorsx"
	"github.com/comigor/travelbot/internal/history"
	"github.com/comigor/travelbot/internal/logger"
)

// NewClient creates a new OpenAI-compatible client (OpenAI, Groq, ...).
func NewClient(cfg config.LLMConfig) *openai.Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return openai.NewClientWithConfig(config)
}

// OpenAI adapts a chat completion Client to the Port interface.
type OpenAI struct {
	client  Client
	model   string
	timeout time.Duration
	retry   RetryConfig
	limiter *rate.Limiter
	log     *slog.Logger
}

type Option func(*OpenAI)

// WithRetryConfig replaces the retry policy derived from the configuration.
func WithRetryConfig(rc RetryConfig) Option {
	return func(o *OpenAI) { o.retry = rc }
}

// NewOpenAI builds the inference port. A positive RequestsPerMinute enables
// client-side rate limiting.
func NewOpenAI(client Client, cfg config.LLMConfig, opts ...Option) *OpenAI {
	o := &OpenAI{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		retry:   RetryConfig{MaxAttempts: cfg.MaxRetries + 1, Jitter: 0.2},
		log:     logger.Component("llm"),
	}
	if cfg.RequestsPerMinute > 0 {
		o.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Infer sends one chat completion request and converts the first choice.
func (o *OpenAI) Infer(ctx context.Context, req Request) (Response, error) {
	creq := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: toOpenAIMessages(req.Messages),
		Tools:    toOpenAITools(req.Tools),
	}
	if req.DisableTools && len(creq.Tools) > 0 {
		creq.ToolChoice = "none"
	}

	start := time.Now()
	resp, err := Retry(ctx, o.retry, func(ctx context.Context) (openai.ChatCompletionResponse, error) {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return openai.ChatCompletionResponse{}, err
			}
		}
		attemptCtx := ctx
		if o.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, o.timeout)
			defer cancel()
		}
		resp, err := o.client.CreateChatCompletion(attemptCtx, creq)
		if err != nil {
			o.log.Warn("chat completion attempt failed", "model", o.model, "error", err)
		}
		return resp, err
	})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		inferenceDuration.WithLabelValues("error").Observe(elapsed)
		return Response{}, errorsx.Wrap(fmt.Errorf("chat completion: %w", err), errorsx.ReasonInference)
	}
	inferenceDuration.WithLabelValues("success").Observe(elapsed)
	inferenceTokens.WithLabelValues("input").Add(float64(resp.Usage.PromptTokens))
	inferenceTokens.WithLabelValues("output").Add(float64(resp.Usage.CompletionTokens))

	o.log.Debug("LLM response received", "model", o.model, "choices", len(resp.Choices), "usage", resp.Usage.TotalTokens)
	return fromOpenAI(resp)
}

func fromOpenAI(resp openai.ChatCompletionResponse) (Response, error) {
	if len(resp.Choices) == 0 {
		return Response{}, errorsx.Wrap(errors.New("chat completion returned no choices"), errorsx.ReasonProtocol)
	}
	choice := resp.Choices[0]
	out := Response{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, history.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func toOpenAIMessages(msgs []history.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		for _, tc := range m.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, cm)
	}
	return out
}

func toOpenAITools(defs []ToolDef) []openai.Tool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Function.Name,
				Description: d.Function.Description,
				Parameters:  d.Function.Parameters,
			},
		})
	}
	return out
}
