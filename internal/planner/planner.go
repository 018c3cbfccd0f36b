// Package planner implements the Planner Agent (C5): a single LLM-backed
// agent whose entire output contract is the envelope parsed by the
// envelope package. It never invokes tools directly — it only directs the
// Group Scheduler toward the next navigator.
package planner

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/haasonsaas/orchestrator/internal/envelope"
	"github.com/haasonsaas/orchestrator/internal/llm"
	"github.com/haasonsaas/orchestrator/internal/orcherr"
	"github.com/haasonsaas/orchestrator/pkg/models"
)

// staticMemoryPlaceholder is the template token the fixed system prompt
// substitutes with preloaded test data, when a static long-term memory is
// configured.
const staticMemoryPlaceholder = "$basic_test_information"

// StaticMemory is the read side of the C8 static memory mode: a single
// preloaded text blob, immutable for the lifetime of a command.
type StaticMemory interface {
	GetUserLTM() (string, bool)
}

// Agent is the Planner Agent: system prompt fixed externally, envelope as
// its sole output contract.
type Agent struct {
	Provider     llm.Provider
	SystemPrompt string
	Model        string
	MaxTokens    int
	Memory       StaticMemory

	// now is overridable in tests; production code leaves it nil and gets
	// time.Now.
	now func() time.Time
}

// New builds a Planner Agent. mem may be nil when static memory isn't
// configured; the system prompt's placeholder is then left untouched,
// matching the source agent's behavior of only substituting when static
// long-term memory is both enabled and non-empty.
func New(provider llm.Provider, systemPrompt, model string, mem StaticMemory) *Agent {
	return &Agent{
		Provider:     provider,
		SystemPrompt: systemPrompt,
		Model:        model,
		MaxTokens:    4096,
		Memory:       mem,
	}
}

func (a *Agent) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

// buildSystemPrompt substitutes the static memory placeholder (if static
// memory is configured and non-empty) and appends the current timestamp.
// Substitution uses a literal strings.Replacer rather than text/template:
// there is exactly one flat key/value pair, never a conditional or a loop,
// so the template package's extra machinery has nothing to do here.
func (a *Agent) buildSystemPrompt() string {
	prompt := a.SystemPrompt
	if a.Memory != nil {
		if ltm, ok := a.Memory.GetUserLTM(); ok && ltm != "" {
			replacer := strings.NewReplacer(staticMemoryPlaceholder, "\n"+ltm)
			prompt = replacer.Replace(prompt)
		}
	}
	return prompt + "\n" + "Current timestamp is " + a.clock().Format("2006-01-02 15:04:05")
}

// Turn sends the prior planner history (with the latest navigator summary
// already appended as the newest user message by the caller) to the
// provider and parses the response into an Envelope.
func (a *Agent) Turn(ctx context.Context, history []models.Message) (*envelope.Envelope, *models.Message, error) {
	if a.Provider == nil {
		return nil, nil, &orcherr.FatalExternal{Component: "planner", Cause: errors.New("no llm provider configured")}
	}

	req := &llm.CompletionRequest{
		Model:     a.Model,
		System:    a.buildSystemPrompt(),
		Messages:  llm.ToCompletionMessages(history),
		MaxTokens: a.MaxTokens,
	}

	stream, err := a.Provider.Complete(ctx, req)
	if err != nil {
		return nil, nil, &orcherr.FatalExternal{Component: "planner", Cause: err}
	}

	var text strings.Builder
	for chunk := range stream {
		if chunk.Error != nil {
			return nil, nil, &orcherr.FatalExternal{Component: "planner", Cause: chunk.Error}
		}
		text.WriteString(chunk.Text)
	}

	msg := &models.Message{
		Role:      models.RoleAssistant,
		Content:   text.String(),
		CreatedAt: a.clock(),
	}
	return envelope.Parse(msg.Content), msg, nil
}
