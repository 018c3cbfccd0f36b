package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "orchestrator.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
planner_max_rounds: 20
navigator_max_rounds: 10
enabled_navigators: [browser, sql]
memory_mode: dynamic
navigators:
  browser:
    system_prompt: prompts/browser.txt
    max_turns: 10
  sql:
    system_prompt: prompts/sql.txt
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PlannerMaxRounds != 20 {
		t.Errorf("PlannerMaxRounds = %d, want 20", cfg.PlannerMaxRounds)
	}
	if len(cfg.EnabledNavigators) != 2 {
		t.Errorf("EnabledNavigators = %v", cfg.EnabledNavigators)
	}
}

func TestLoadRejectsUnknownNavigatorTag(t *testing.T) {
	path := writeConfig(t, `
planner_max_rounds: 20
navigator_max_rounds: 10
enabled_navigators: [browser]
navigators:
  sql:
    system_prompt: prompts/sql.txt
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown navigator tag")
	}
	if !strings.Contains(err.Error(), "browser") {
		t.Fatalf("expected browser in error, got %v", err)
	}
}

func TestLoadRejectsInvalidMemoryMode(t *testing.T) {
	path := writeConfig(t, `
planner_max_rounds: 20
navigator_max_rounds: 10
memory_mode: sometimes
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid memory_mode")
	}
}

func TestLoadRejectsMissingRoundBudgets(t *testing.T) {
	path := writeConfig(t, `
memory_mode: static
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for missing round budgets")
	}
}

func TestLoadResolvesIncludes(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.yaml")
	if err := os.WriteFile(basePath, []byte("memory_mode: static\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	mainPath := filepath.Join(dir, "main.yaml")
	contents := "$include: base.yaml\nplanner_max_rounds: 5\nnavigator_max_rounds: 5\n"
	if err := os.WriteFile(mainPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(mainPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MemoryMode != "static" {
		t.Errorf("MemoryMode = %q, want static (from include)", cfg.MemoryMode)
	}
}
