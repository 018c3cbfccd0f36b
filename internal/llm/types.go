// Package llm defines the pluggable boundary between the orchestrator core
// and concrete LLM transports. The core never talks to a provider API
// directly: planners and navigator proposers hold a Provider and call
// Complete, leaving authentication, retries, and wire formats to the
// concrete implementations in this package.
package llm

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/orchestrator/pkg/models"
)

// Provider is implemented by each concrete LLM backend (Anthropic, OpenAI,
// Bedrock, ...). The orchestrator core depends only on this interface; it
// never imports a provider SDK directly.
type Provider interface {
	// Complete sends a prompt and streams back the response.
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)
	// Name returns the provider identifier used in LLM config blobs.
	Name() string
	// Models lists the models this provider can serve.
	Models() []Model
	// SupportsTools reports whether tool-calling is available.
	SupportsTools() bool
}

// CompletionRequest carries everything a provider needs to answer one
// planner or proposer turn: conversation history, advertised tools, and
// generation parameters. Model is an opaque per-agent config string; the
// core treats it as a blob and never interprets it.
type CompletionRequest struct {
	Model     string               `json:"model"`
	System    string               `json:"system,omitempty"`
	Messages  []CompletionMessage  `json:"messages"`
	Tools     []Tool               `json:"tools,omitempty"`
	MaxTokens int                  `json:"max_tokens,omitempty"`
}

// CompletionMessage is one turn in the conversation sent to a provider.
type CompletionMessage struct {
	Role        string              `json:"role"`
	Content     string              `json:"content,omitempty"`
	ToolCalls   []models.ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []models.ToolResult `json:"tool_results,omitempty"`
}

// CompletionChunk is one piece of a streamed provider response. Text chunks
// accumulate into the proposer's free-text message; a non-nil ToolCall
// signals a tool proposal; Done closes the stream.
type CompletionChunk struct {
	Text         string          `json:"text,omitempty"`
	ToolCall     *models.ToolCall `json:"tool_call,omitempty"`
	Done         bool            `json:"done,omitempty"`
	Error        error           `json:"-"`
	InputTokens  int             `json:"input_tokens,omitempty"`
	OutputTokens int             `json:"output_tokens,omitempty"`
}

// ToCompletionMessages converts a dialogue history into the shape a
// Provider expects, shared by the planner and every navigator Proposer so
// each avoids hand-rolling the same role/content/tool-call mapping.
func ToCompletionMessages(history []models.Message) []CompletionMessage {
	out := make([]CompletionMessage, 0, len(history))
	for _, m := range history {
		out = append(out, CompletionMessage{
			Role:        string(m.Role),
			Content:     m.Content,
			ToolCalls:   m.ToolCalls,
			ToolResults: m.ToolResults,
		})
	}
	return out
}

// Model describes one model a provider can serve.
type Model struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ContextSize    int    `json:"context_size"`
	SupportsVision bool   `json:"supports_vision"`
}

// Tool is the shape a provider needs to advertise a registered tool to the
// model. It mirrors registry.Descriptor without importing the registry package,
// keeping llm free of a dependency on the tool registry.
type Tool struct {
	Name        string
	Description string
	Schema      json.RawMessage
}
