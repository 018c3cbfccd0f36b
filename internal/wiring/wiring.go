// Package wiring assembles the pieces internal/config describes into a
// running Orchestrator: one llm.Provider, a Tool Registry populated per
// navigator tag, a Planner Agent, and one Navigator Pair per enabled tag.
// It exists so cmd/orchestrator stays a thin cobra shell around this
// construction logic, the same split the teacher keeps between its command
// builders and its gateway/service wiring.
package wiring

import (
	"fmt"
	"os"
	"strings"

	"github.com/haasonsaas/orchestrator/internal/config"
	"github.com/haasonsaas/orchestrator/internal/llm"
	"github.com/haasonsaas/orchestrator/internal/mcp"
	"github.com/haasonsaas/orchestrator/internal/memory"
	"github.com/haasonsaas/orchestrator/internal/navigator"
	"github.com/haasonsaas/orchestrator/internal/orchestrator"
	"github.com/haasonsaas/orchestrator/internal/planner"
	"github.com/haasonsaas/orchestrator/internal/registry"
	"github.com/haasonsaas/orchestrator/internal/scheduler"
	"github.com/haasonsaas/orchestrator/internal/tools/browser"
	"github.com/haasonsaas/orchestrator/internal/tools/composio"
	"github.com/haasonsaas/orchestrator/internal/tools/exec"
	"github.com/haasonsaas/orchestrator/internal/tools/httpapi"
	"github.com/haasonsaas/orchestrator/internal/tools/security"
	"github.com/haasonsaas/orchestrator/internal/tools/sql"
	"github.com/haasonsaas/orchestrator/internal/tools/timekeeper"
	"github.com/haasonsaas/orchestrator/internal/tools/vectormemory"
)

// BuildProvider constructs the single llm.Provider shared by the Planner and
// every Navigator Proposer. An empty Name defaults to anthropic, matching
// the source project's own default backend.
func BuildProvider(cfg config.ProviderConfig) (llm.Provider, error) {
	name := cfg.Name
	if name == "" {
		name = "anthropic"
	}
	switch name {
	case "anthropic":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		return llm.NewAnthropicProvider(llm.AnthropicConfig{APIKey: apiKey, BaseURL: cfg.BaseURL})
	case "openai":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		return llm.NewOpenAIProvider(apiKey), nil
	case "bedrock":
		return llm.NewBedrockProvider(llm.BedrockConfig{})
	default:
		return nil, fmt.Errorf("wiring: unknown provider %q", name)
	}
}

// BuildRegistry registers the fixed tool surface for every enabled
// navigator tag. It never errors on a tag it doesn't recognize the domain
// tools for (mcp with no configured servers, for instance) — it just
// registers nothing extra for that tag, leaving the navigator able to run
// with whatever tools are available.
func BuildRegistry(cfg *config.Config, mem *memory.Manager) (*registry.Registry, error) {
	reg := registry.New()
	enabled := map[string]bool{}
	for _, tag := range cfg.EnabledNavigators {
		enabled[tag] = true
	}

	if enabled["executor"] {
		execMgr := exec.NewManager("")
		if err := reg.Register([]string{"executor"}, exec.NewExecTool("exec", execMgr)); err != nil {
			return nil, err
		}
		if err := reg.Register([]string{"executor"}, exec.NewProcessTool(execMgr)); err != nil {
			return nil, err
		}
	}

	if enabled["sql"] {
		if err := reg.Register([]string{"sql"}, sql.NewQueryTool()); err != nil {
			return nil, err
		}
	}

	if enabled["sec"] {
		if err := reg.Register([]string{"sec"}, security.NewScanTool()); err != nil {
			return nil, err
		}
	}

	if enabled["time_keeper"] {
		if err := reg.Register([]string{"time_keeper"}, timekeeper.NewWaitTool()); err != nil {
			return nil, err
		}
		if err := reg.Register([]string{"time_keeper"}, timekeeper.NewTimestampTool("UTC")); err != nil {
			return nil, err
		}
		if err := reg.Register([]string{"time_keeper"}, timekeeper.NewScheduleTool()); err != nil {
			return nil, err
		}
	}

	if enabled["api"] {
		if err := reg.Register([]string{"api"}, httpapi.NewWebFetchTool(&httpapi.FetchConfig{MaxChars: 20000})); err != nil {
			return nil, err
		}
		searchCfg := &httpapi.Config{DefaultResultCount: 5, ExtractContent: true}
		if err := reg.Register([]string{"api"}, httpapi.NewWebSearchTool(searchCfg)); err != nil {
			return nil, err
		}
	}

	if enabled["composio"] {
		composioCfg := composio.Config{APIKey: os.Getenv("COMPOSIO_API_KEY")}
		if err := reg.Register([]string{"composio"}, composio.NewActionTool(composioCfg)); err != nil {
			return nil, err
		}
		if err := reg.Register([]string{"composio"}, composio.NewConnectionStatusTool(composioCfg)); err != nil {
			return nil, err
		}
	}

	if enabled["browser"] {
		pool, err := browser.NewPool(browser.PoolConfig{Headless: true})
		if err != nil {
			return nil, fmt.Errorf("wiring: browser pool: %w", err)
		}
		if err := reg.Register([]string{"browser"}, browser.NewBrowserTool(pool)); err != nil {
			return nil, err
		}
	}

	if enabled["mcp"] && cfg.MCP.Enabled && len(cfg.MCP.Servers) > 0 {
		mcpMgr := mcp.NewManager(&mcp.Config{Enabled: cfg.MCP.Enabled, Servers: cfg.MCP.Servers}, nil)
		mcp.RegisterTools(reg, mcpMgr)
	}

	// Vector memory read/write is available to every enabled navigator when
	// dynamic long-term memory is configured, not just the orchestrator's
	// own save-in-memory flag handling: a navigator mid-dialogue can pull up
	// something saved by an earlier command without waiting on the Planner.
	if mem != nil {
		memCfg := &memory.Config{}
		for tag := range enabled {
			if err := reg.Register([]string{tag}, vectormemory.NewSearchTool(mem, memCfg)); err != nil {
				return nil, err
			}
			if err := reg.Register([]string{tag}, vectormemory.NewWriteTool(mem, memCfg)); err != nil {
				return nil, err
			}
		}
	}

	return reg, nil
}

// BuildNavigators builds one Navigator Pair per enabled tag, wiring each
// Proposer to the tools the registry advertises for that tag.
func BuildNavigators(cfg *config.Config, provider llm.Provider, reg *registry.Registry) (map[string]*navigator.Pair, error) {
	pairs := make(map[string]*navigator.Pair, len(cfg.EnabledNavigators))
	for _, tag := range cfg.EnabledNavigators {
		navCfg, ok := cfg.Navigators[tag]
		if !ok {
			return nil, fmt.Errorf("wiring: navigator %q has no config entry", tag)
		}
		prompt, err := readPrompt(navCfg.SystemPrompt)
		if err != nil {
			return nil, fmt.Errorf("wiring: navigator %q system prompt: %w", tag, err)
		}
		model := modelFromLLMConfig(navCfg.LLMConfig, cfg.Planner.Model)
		proposer := navigator.NewProposer(tag, provider, prompt, model, reg.Describe(tag))
		pairs[tag] = navigator.NewPair(tag, proposer, reg, navCfg.MaxTurns)
	}
	return pairs, nil
}

// BuildPlanner builds the Planner Agent, wiring in a static memory loader
// when mem is non-nil.
func BuildPlanner(cfg *config.Config, provider llm.Provider, mem planner.StaticMemory) (*planner.Agent, error) {
	prompt, err := readPrompt(cfg.Planner.SystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("wiring: planner system prompt: %w", err)
	}
	return planner.New(provider, prompt, cfg.Planner.Model, mem), nil
}

// BuildOrchestrator ties a Planner, Navigator Pairs, and round budgets
// together into an Orchestrator ready for ProcessCommand.
func BuildOrchestrator(cfg *config.Config, agent *planner.Agent, navigators map[string]*navigator.Pair) *orchestrator.Orchestrator {
	return orchestrator.New(agent, navigators, scheduler.Budgets{
		PlannerMaxRounds:   cfg.PlannerMaxRounds,
		NavigatorMaxRounds: cfg.NavigatorMaxRounds,
	})
}

func readPrompt(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func modelFromLLMConfig(llmCfg map[string]any, fallback string) string {
	if v, ok := llmCfg["model"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}
