// Package navigator implements the Navigator Pair: the LLM-backed Proposer
// and the non-LLM Executor that drives it against a registered tool set for
// one navigator tag (browser, api, sql, sec, time_keeper, mcp, composio,
// executor). The Orchestrator hands each Pair a single reflection message
// and gets back one summary string; everything in between — the inner
// propose/execute cycle, loop detection, and sentinel handling — is private
// to this package.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/haasonsaas/orchestrator/internal/llm"
	"github.com/haasonsaas/orchestrator/internal/loopdetect"
	"github.com/haasonsaas/orchestrator/internal/orcherr"
	"github.com/haasonsaas/orchestrator/internal/registry"
	"github.com/haasonsaas/orchestrator/pkg/models"
)

// Sentinel terminates a Proposer's free-text turn; its presence is what
// tells the Executor the inner dialogue is done.
const Sentinel = "##TERMINATE TASK##"

// SaveInMemoryFlag marks a navigator summary as worth persisting to dynamic
// long-term memory. Detection and persistence live in the memory package;
// the navigator only has to avoid stripping it out of the summary.
const SaveInMemoryFlag = "##FLAG::SAVE_IN_MEM##"

const placeholderSummary = "navigator produced no output for this step"

// FatalTool is implemented by tool errors that mark their underlying
// resource as permanently unavailable. The Executor stops the inner
// dialogue instead of feeding the error back to the Proposer as a
// recoverable observation.
type FatalTool interface {
	FatalTool() bool
}

// Proposer is the LLM-backed half of a Navigator Pair: it sees the inner
// dialogue history and the tag's advertised tools and emits either a
// sentinel-terminated free-text message or a set of tool calls.
type Proposer struct {
	Tag          string
	Provider     llm.Provider
	SystemPrompt string
	Model        string
	Tools        []registry.ToolSchema
	MaxTokens    int
}

// NewProposer builds a Proposer for tag using provider, a fixed system
// prompt, and the tool schemas the registry advertises for that tag.
func NewProposer(tag string, provider llm.Provider, systemPrompt, model string, tools []registry.ToolSchema) *Proposer {
	return &Proposer{
		Tag:          tag,
		Provider:     provider,
		SystemPrompt: systemPrompt,
		Model:        model,
		Tools:        tools,
		MaxTokens:    4096,
	}
}

// Propose sends the inner dialogue history to the provider and collects one
// assistant turn: either accumulated free text, or a set of tool calls.
func (p *Proposer) Propose(ctx context.Context, history []models.Message) (*models.Message, error) {
	if p.Provider == nil {
		return nil, &orcherr.FatalExternal{Component: "navigator:" + p.Tag, Cause: errors.New("no llm provider configured")}
	}

	req := &llm.CompletionRequest{
		Model:     p.Model,
		System:    p.SystemPrompt,
		Messages:  llm.ToCompletionMessages(history),
		Tools:     toLLMTools(p.Tools),
		MaxTokens: p.MaxTokens,
	}

	stream, err := p.Provider.Complete(ctx, req)
	if err != nil {
		return nil, &orcherr.FatalExternal{Component: "navigator:" + p.Tag, Cause: err}
	}

	var text strings.Builder
	var toolCalls []models.ToolCall
	for chunk := range stream {
		if chunk.Error != nil {
			return nil, &orcherr.FatalExternal{Component: "navigator:" + p.Tag, Cause: chunk.Error}
		}
		if chunk.Text != "" {
			text.WriteString(chunk.Text)
		}
		if chunk.ToolCall != nil {
			toolCalls = append(toolCalls, *chunk.ToolCall)
		}
	}

	return &models.Message{
		Role:      models.RoleAssistant,
		Content:   text.String(),
		ToolCalls: toolCalls,
		CreatedAt: time.Now(),
	}, nil
}

func toLLMTools(schemas []registry.ToolSchema) []llm.Tool {
	out := make([]llm.Tool, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, llm.Tool{Name: s.Name, Description: s.Description, Schema: s.Schema})
	}
	return out
}

// Pair is one navigator tag's Proposer/Executor cooperating pair.
type Pair struct {
	Tag         string
	Proposer    *Proposer
	Registry    *registry.Registry
	MaxTurns    int
	BrowserLike bool
	CurrentURL  func() string
	Stuck       func([]models.Message) bool
	Logger      *slog.Logger
}

// NewPair builds a Pair for tag. maxTurns is the navigator_max_rounds
// budget; if zero, it defaults to 20 per spec. The returned Pair's
// CurrentURL field, when set on a BrowserLike pair, is consulted for the
// trailing "current_url" the summary appends.
func NewPair(tag string, proposer *Proposer, reg *registry.Registry, maxTurns int) *Pair {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &Pair{
		Tag:      tag,
		Proposer: proposer,
		Registry: reg,
		MaxTurns: maxTurns,
		Stuck:    loopdetect.Stuck,
		Logger:   slog.Default(),
	}
}

// Result is what a Pair hands back to the outer scheduler after one
// reflection message has run to termination.
type Result struct {
	Summary string
	History []models.Message
	Stuck   bool
	Turns   int
}

// Run drives the inner propose/execute cycle for a single reflection
// message until the Proposer emits the sentinel, the turn budget is
// exhausted, or the Loop Detector declares the dialogue stuck.
func (p *Pair) Run(ctx context.Context, reflection string) (*Result, error) {
	history := []models.Message{{Role: models.RoleUser, Content: reflection, CreatedAt: time.Now()}}

	for turn := 0; turn < p.MaxTurns; turn++ {
		if p.Stuck != nil && p.Stuck(history) {
			p.Logger.Warn("navigator loop detector tripped", "tag", p.Tag, "turn", turn)
			return &Result{
				Summary: p.extractSummary(lastAssistantContent(history)),
				History: history,
				Stuck:   true,
				Turns:   turn,
			}, &orcherr.LoopDetected{Tag: p.Tag}
		}

		msg, err := p.Proposer.Propose(ctx, history)
		if err != nil {
			return nil, err
		}
		history = append(history, *msg)

		if len(msg.ToolCalls) == 0 {
			if strings.Contains(msg.Content, Sentinel) {
				return &Result{
					Summary: p.extractSummary(msg.Content),
					History: history,
					Turns:   turn + 1,
				}, nil
			}
			// Free text without the sentinel: re-invoke the Proposer on the
			// next iteration, per the Executor's contract.
			continue
		}

		fatalErr := p.executeToolCalls(ctx, &history, msg.ToolCalls)
		if fatalErr != nil {
			return &Result{
				Summary: fmt.Sprintf("error: fatal: %v", fatalErr),
				History: history,
				Turns:   turn + 1,
			}, fatalErr
		}
	}

	return &Result{
		Summary: p.extractSummary(lastAssistantContent(history)),
		History: history,
		Turns:   p.MaxTurns,
	}, &orcherr.RoundBudgetExhausted{Scope: p.Tag, Limit: p.MaxTurns}
}

// executeToolCalls runs calls strictly sequentially against the registry,
// appending one tool-result message per call. It returns non-nil only when
// a handler reports a fatal error, at which point the dialogue must stop.
func (p *Pair) executeToolCalls(ctx context.Context, history *[]models.Message, calls []models.ToolCall) error {
	for _, call := range calls {
		start := time.Now()
		desc, err := p.Registry.Resolve(p.Tag, call.Name)
		if err != nil {
			p.observeError(history, call, fmt.Sprintf("error: tool_not_found: %v", err))
			p.Logger.Warn("navigator tool not found", "tag", p.Tag, "tool", call.Name)
			continue
		}

		result, err := desc.Tool.Execute(ctx, call.Input)
		if err != nil {
			var fatal FatalTool
			if errors.As(err, &fatal) && fatal.FatalTool() {
				p.Logger.Error("navigator tool failed fatally", "tag", p.Tag, "tool", call.Name, "error", err)
				return &orcherr.FatalExternal{Component: fmt.Sprintf("navigator:%s:%s", p.Tag, call.Name), Cause: err}
			}
			p.observeError(history, call, fmt.Sprintf("error: tool_invocation_error: %v", err))
			p.Logger.Warn("navigator tool invocation error", "tag", p.Tag, "tool", call.Name, "error", err, "duration", time.Since(start))
			continue
		}

		*history = append(*history, models.Message{
			Role:      models.RoleTool,
			CreatedAt: time.Now(),
			ToolResults: []models.ToolResult{{
				ToolCallID: call.ID,
				Content:    result.Content,
				IsError:    result.IsError,
			}},
		})
		p.Logger.Info("navigator tool invoked", "tag", p.Tag, "tool", call.Name, "is_error", result.IsError, "duration", time.Since(start))
	}
	return nil
}

func (p *Pair) observeError(history *[]models.Message, call models.ToolCall, observation string) {
	*history = append(*history, models.Message{
		Role:      models.RoleTool,
		CreatedAt: time.Now(),
		ToolResults: []models.ToolResult{{
			ToolCallID: call.ID,
			Content:    observation,
			IsError:    true,
		}},
	})
}

// extractSummary strips the sentinel, appends the current URL for
// browser-like navigators, and falls back to a recoverable placeholder on
// empty output.
func (p *Pair) extractSummary(message string) string {
	stripped := strings.ReplaceAll(message, Sentinel, "")
	stripped = strings.TrimSpace(stripped)
	if stripped == "" {
		return placeholderSummary
	}
	if p.BrowserLike && p.CurrentURL != nil {
		if url := p.CurrentURL(); url != "" {
			stripped = stripped + "\ncurrent_url: " + url
		}
	}
	return stripped
}

func lastAssistantContent(history []models.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleAssistant {
			return history[i].Content
		}
	}
	return ""
}
