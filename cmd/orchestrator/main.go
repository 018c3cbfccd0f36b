// Package main provides the CLI entry point for the test-execution
// orchestrator.
//
// The orchestrator drives a Planner Agent and a fixed set of Navigator
// Pairs through a single Gherkin-style test command at a time, routing
// work between them via the Group Scheduler until the Planner's envelope
// terminates.
//
// # Basic Usage
//
// Run a single command against a configured orchestrator:
//
//	orchestrator run --config orchestrator.yaml "log in and verify the dashboard loads"
//
// Validate a configuration file without running anything:
//
//	orchestrator validate --config orchestrator.yaml
//
// List the tools visible to a navigator tag:
//
//	orchestrator tools --config orchestrator.yaml --tag browser
//
// # Environment Variables
//
//   - ANTHROPIC_API_KEY: Anthropic API key, used when provider.name is anthropic
//   - OPENAI_API_KEY: OpenAI API key, used when provider.name is openai
//   - COMPOSIO_API_KEY: Composio API key for the composio navigator
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/orchestrator/internal/config"
	"github.com/haasonsaas/orchestrator/internal/memory"
	"github.com/haasonsaas/orchestrator/internal/metrics"
	"github.com/haasonsaas/orchestrator/internal/orchestrator"
	"github.com/haasonsaas/orchestrator/internal/planner"
	"github.com/haasonsaas/orchestrator/internal/wiring"
	"github.com/haasonsaas/orchestrator/pkg/models"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "orchestrator",
		Short: "Autonomous BDD test-execution orchestrator",
		Long: `orchestrator drives a group-chat scheduler that routes Gherkin test
steps between a single Planner Agent and a fixed set of Navigator Pairs
(browser, api, sql, sec, time_keeper, mcp, composio, executor).`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(buildRunCmd(), buildValidateCmd(), buildToolsCmd())
	return rootCmd
}

func buildRunCmd() *cobra.Command {
	var (
		configPath  string
		sessionID   string
		currentURL  string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "run [command text]",
		Short: "Run one test command to completion and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, mgr, err := loadConfigAndMemory(configPath)
			if err != nil {
				return err
			}
			if mgr != nil {
				defer mgr.Close()
			}

			orch, err := buildOrchestrator(cfg, mgr)
			if err != nil {
				return err
			}

			m := metrics.New()
			orch.Events = m.Sink(time.Now())
			if metricsAddr != "" {
				srv := startMetricsServer(metricsAddr)
				defer srv.Close()
			}

			if strings.TrimSpace(sessionID) == "" {
				sessionID = "cli-session"
			}
			if orch.Memory != nil {
				orch.Memory = memory.NewDynamicMemory(mgr, models.Session{ID: sessionID})
			}

			result, err := orch.ProcessCommand(cmd.Context(), sessionID, args[0], currentURL)
			if result != nil {
				printResult(cmd.OutOrStdout(), result)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "orchestrator.yaml", "Path to YAML configuration file")
	cmd.Flags().StringVar(&sessionID, "session-id", "", "Session ID for memory scoping (default: cli-session)")
	cmd.Flags().StringVar(&currentURL, "current-url", "", "Seed current_url for browser-backed commands")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "If set, serve Prometheus metrics at this address (e.g. :9090) for the duration of the run")
	return cmd
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

func buildValidateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config OK: %d navigator(s) enabled, memory_mode=%q\n",
				len(cfg.EnabledNavigators), cfg.MemoryMode)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "orchestrator.yaml", "Path to YAML configuration file")
	return cmd
}

func buildToolsCmd() *cobra.Command {
	var (
		configPath string
		tag        string
	)
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools registered for a navigator tag",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, mgr, err := loadConfigAndMemory(configPath)
			if err != nil {
				return err
			}
			if mgr != nil {
				defer mgr.Close()
			}

			reg, err := wiring.BuildRegistry(cfg, mgr)
			if err != nil {
				return fmt.Errorf("build registry: %w", err)
			}

			tags := cfg.EnabledNavigators
			if tag != "" {
				tags = []string{tag}
			}
			out := cmd.OutOrStdout()
			for _, t := range tags {
				fmt.Fprintf(out, "%s:\n", t)
				for _, d := range reg.ListFor(t) {
					fmt.Fprintf(out, "  - %s: %s\n", d.Name, d.Description)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "orchestrator.yaml", "Path to YAML configuration file")
	cmd.Flags().StringVar(&tag, "tag", "", "Restrict listing to a single navigator tag (default: all enabled)")
	return cmd
}

func loadConfigAndMemory(configPath string) (*config.Config, *memory.Manager, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	var mgr *memory.Manager
	if cfg.MemoryMode == "dynamic" {
		mgr, err = memory.NewManager(&memory.Config{
			Enabled: true,
			Backend: "sqlite-vec",
			SQLiteVec: memory.SQLiteVecConfig{
				Path: cfg.Memory.DynamicDSN,
			},
			Embeddings: memory.EmbeddingsConfig{
				Provider: "openai",
				APIKey:   os.Getenv("OPENAI_API_KEY"),
			},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build memory manager: %w", err)
		}
	}
	return cfg, mgr, nil
}

func buildOrchestrator(cfg *config.Config, mgr *memory.Manager) (*orchestrator.Orchestrator, error) {
	provider, err := wiring.BuildProvider(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("build provider: %w", err)
	}

	reg, err := wiring.BuildRegistry(cfg, mgr)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	// staticMem stays a nil interface (not a nil *StaticLoader boxed into a
	// non-nil interface) unless static memory is actually configured, so
	// planner.Agent's "mem may be nil" contract holds.
	var staticMem planner.StaticMemory
	if cfg.MemoryMode == "static" {
		loader, err := memory.LoadStaticTestData(cfg.Memory.StaticDataDir)
		if err != nil {
			return nil, fmt.Errorf("load static test data: %w", err)
		}
		staticMem = loader
	}

	agent, err := wiring.BuildPlanner(cfg, provider, staticMem)
	if err != nil {
		return nil, fmt.Errorf("build planner: %w", err)
	}

	navigators, err := wiring.BuildNavigators(cfg, provider, reg)
	if err != nil {
		return nil, fmt.Errorf("build navigators: %w", err)
	}

	orch := wiring.BuildOrchestrator(cfg, agent, navigators)
	if cfg.MemoryMode == "dynamic" && mgr != nil {
		orch.Memory = memory.NewDynamicMemory(mgr, models.Session{ID: "cli-session"})
	}
	return orch, nil
}

func printResult(w io.Writer, result *orchestrator.ChatResult) {
	fmt.Fprintln(w, "--- chat log ---")
	for _, m := range result.ChatLog {
		fmt.Fprintf(w, "[%s] %s\n", m.Role, m.Content)
	}
	fmt.Fprintln(w, "--- final response ---")
	fmt.Fprintln(w, result.FinalResponse)
	fmt.Fprintf(w, "terminated_reason: %s\n", result.TerminatedReason)
	if len(result.Assertions) > 0 {
		fmt.Fprintln(w, "--- assertions ---")
		for _, a := range result.Assertions {
			status := "FAIL"
			if a.Passed {
				status = "PASS"
			}
			fmt.Fprintf(w, "[%s] %s\n", status, a.Summary)
		}
	}
	if result.CostSummary != nil {
		summary, _ := json.Marshal(result.CostSummary)
		fmt.Fprintf(w, "--- stats ---\n%s\n", summary)
	}
}
