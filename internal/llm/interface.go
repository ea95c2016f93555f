package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/travelbot/internal/history"
)

// Client is minimal subset of openai.Client used by the adapter; it is easy to mock in tests.
type Client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Port is the inference boundary the conversation loop talks to.
type Port interface {
	Infer(ctx context.Context, req Request) (Response, error)
}

// Request carries the whole conversation and the tool catalogue for one round.
type Request struct {
	Messages []history.Message
	Tools    []ToolDef
	// DisableTools keeps the catalogue advertised but forbids the model from
	// calling any of it.
	DisableTools bool
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is either a final answer (Content) or a list of tool calls.
type Response struct {
	Content      string
	ToolCalls    []history.ToolCall
	FinishReason string
	Usage        Usage
}
