// Package security exposes the sec navigator's tool surface: a generalized
// scan(target) operation built on the orchestrator's filesystem/config
// security checks, rather than a fixed audit run against the host's own
// state directory.
package security

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/haasonsaas/orchestrator/internal/config"
	"github.com/haasonsaas/orchestrator/internal/registry"
	"github.com/haasonsaas/orchestrator/internal/security"
)

// ScanTool runs security checks against a caller-supplied target: a
// filesystem path (file or directory permission checks) or a config file
// (content + gateway checks), chosen by what target resolves to.
type ScanTool struct{}

// NewScanTool creates the scan tool.
func NewScanTool() *ScanTool { return &ScanTool{} }

func (t *ScanTool) Name() string { return "scan" }

func (t *ScanTool) Description() string {
	return "Runs security checks against a target path: filesystem permission checks for a file or directory, plus configuration content checks if the target is a nexus config file. Returns findings with severity."
}

func (t *ScanTool) Schema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "target": {"type": "string", "description": "Path to scan: a file, directory, or config path"},
    "check_symlinks": {"type": "boolean", "description": "Flag symlinked sensitive files as findings"}
  },
  "required": ["target"]
}`)
}

type scanInput struct {
	Target        string `json:"target"`
	CheckSymlinks bool   `json:"check_symlinks"`
}

// Execute runs the scan and returns findings as a JSON audit report.
func (t *ScanTool) Execute(ctx context.Context, params json.RawMessage) (*registry.ToolResult, error) {
	var input scanInput
	if err := json.Unmarshal(params, &input); err != nil {
		return errResult(fmt.Sprintf("invalid params: %v", err)), nil
	}
	if input.Target == "" {
		return errResult("target is required"), nil
	}

	info, err := os.Stat(input.Target)
	if err != nil {
		return errResult(fmt.Sprintf("cannot access target: %v", err)), nil
	}

	findings, err := security.CheckPath(input.Target)
	if err != nil {
		return errResult(fmt.Sprintf("scan failed: %v", err)), nil
	}

	if !info.IsDir() && looksLikeConfig(input.Target) {
		if cfg, err := config.Load(input.Target); err == nil {
			findings = append(findings, security.AuditConfigContent(cfg)...)
		}
	}

	report := security.AuditReport{
		Findings: findings,
	}
	report.Summary = summarize(findings)

	payload, err := json.Marshal(report)
	if err != nil {
		return errResult(fmt.Sprintf("failed to encode report: %v", err)), nil
	}
	return &registry.ToolResult{Content: string(payload)}, nil
}

func looksLikeConfig(path string) bool {
	for _, ext := range []string{".yaml", ".yml", ".json", ".json5"} {
		if len(path) > len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

func summarize(findings []security.AuditFinding) security.AuditSummary {
	summary := security.AuditSummary{}
	for _, f := range findings {
		switch f.Severity {
		case security.SeverityCritical, security.SeverityHigh:
			summary.Critical++
		case security.SeverityWarn, security.SeverityMedium:
			summary.Warn++
		case security.SeverityInfo, security.SeverityLow:
			summary.Info++
		}
	}
	return summary
}

func errResult(content string) *registry.ToolResult {
	return &registry.ToolResult{Content: content, IsError: true}
}
