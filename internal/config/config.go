package config

import (
	"fmt"

	"github.com/haasonsaas/orchestrator/internal/mcp"
)

// Config is the root configuration for an orchestrator run, loaded from
// $include-resolving YAML or JSON5 via Load.
type Config struct {
	PlannerMaxRounds   int                        `yaml:"planner_max_rounds"`
	NavigatorMaxRounds int                        `yaml:"navigator_max_rounds"`
	EnabledNavigators  []string                   `yaml:"enabled_navigators"`
	MemoryMode         string                     `yaml:"memory_mode"`
	Navigators         map[string]NavigatorConfig `yaml:"navigators"`
	LogLevel           string                     `yaml:"log_level"`
	Memory             MemoryConfig               `yaml:"memory"`
	Planner            PlannerConfig              `yaml:"planner"`
	Provider           ProviderConfig             `yaml:"provider"`
	MCP                MCPConfig                  `yaml:"mcp"`
}

// PlannerConfig carries the Planner Agent's fixed system prompt location and
// model identifier. SystemPrompt is a file path, resolved by the caller that
// builds the Agent, not by this package.
type PlannerConfig struct {
	SystemPrompt string `yaml:"system_prompt"`
	Model        string `yaml:"model"`
}

// ProviderConfig configures the single LLM backend shared by the Planner and
// every Navigator Proposer. Name selects which concrete llm.Provider gets
// built; APIKey falls back to the provider's usual environment variable
// when left blank.
type ProviderConfig struct {
	Name    string `yaml:"name"` // anthropic, openai, or bedrock
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// NavigatorConfig carries a single navigator tag's LLM configuration and
// system prompt location. LLMConfig is left opaque (a raw map) since
// per-provider configuration shapes vary; navigators validate the fields
// they need when they start up.
type NavigatorConfig struct {
	LLMConfig    map[string]any `yaml:"llm_config"`
	SystemPrompt string         `yaml:"system_prompt"`
	MaxTurns     int            `yaml:"max_turns"`
}

// MemoryConfig configures the static/dynamic memory interface.
type MemoryConfig struct {
	StaticDataDir string `yaml:"static_data_dir"`
	DynamicDSN    string `yaml:"dynamic_dsn"`
}

// MCPConfig optionally wires Model Context Protocol servers into the mcp
// navigator tag's tool surface.
type MCPConfig struct {
	Enabled bool                `yaml:"enabled"`
	Servers []*mcp.ServerConfig `yaml:"servers"`
}

// Load reads path (resolving $include directives) and decodes it into a
// validated Config.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks required fields and that every enabled navigator tag has
// a corresponding entry in Navigators.
func (c *Config) Validate() error {
	if c.PlannerMaxRounds <= 0 {
		return fmt.Errorf("planner_max_rounds must be positive")
	}
	if c.NavigatorMaxRounds <= 0 {
		return fmt.Errorf("navigator_max_rounds must be positive")
	}
	switch c.MemoryMode {
	case "", "static", "dynamic":
	default:
		return fmt.Errorf("memory_mode must be %q or %q, got %q", "static", "dynamic", c.MemoryMode)
	}
	for _, tag := range c.EnabledNavigators {
		if _, ok := c.Navigators[tag]; !ok {
			return fmt.Errorf("unknown navigator tag %q: no navigators.%s entry", tag, tag)
		}
	}
	switch c.Provider.Name {
	case "", "anthropic", "openai", "bedrock":
	default:
		return fmt.Errorf("provider.name must be one of anthropic, openai, bedrock, got %q", c.Provider.Name)
	}
	return nil
}
