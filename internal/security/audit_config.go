package security

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/haasonsaas/orchestrator/internal/config"
)

// hardcodedSecretPatterns match API key/token shapes that strongly suggest a
// secret was pasted directly into a config file instead of coming from an
// environment variable or secret store.
var hardcodedSecretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^sk-[a-zA-Z0-9]{20,}`),      // OpenAI API key
	regexp.MustCompile(`^ghp_[a-zA-Z0-9]{36}`),      // GitHub personal access token
	regexp.MustCompile(`^github_pat_[a-zA-Z0-9_]+`), // GitHub fine-grained PAT
	regexp.MustCompile(`^AKIA[0-9A-Z]{16}`),         // AWS access key
	regexp.MustCompile(`^AIza[0-9A-Za-z_-]{35}`),    // Google API key
}

// AuditConfigContent checks the orchestrator's loaded configuration for
// hardcoded secrets and insecure defaults in the navigator and memory
// surfaces.
func AuditConfigContent(cfg *config.Config) []AuditFinding {
	return auditConfigContent(cfg)
}

func auditConfigContent(cfg *config.Config) []AuditFinding {
	var findings []AuditFinding
	if cfg == nil {
		return findings
	}

	findings = append(findings, auditNavigatorSecrets(cfg)...)
	findings = append(findings, auditMemoryDSN(cfg)...)
	findings = append(findings, auditRoundBudgets(cfg)...)

	return findings
}

// auditNavigatorSecrets scans each navigator's LLM config map for values
// that look like hardcoded API keys.
func auditNavigatorSecrets(cfg *config.Config) []AuditFinding {
	var findings []AuditFinding

	for tag, nav := range cfg.Navigators {
		for key, value := range nav.LLMConfig {
			str, ok := value.(string)
			if !ok {
				continue
			}
			if !looksLikeSecretKey(key) {
				continue
			}
			for _, pattern := range hardcodedSecretPatterns {
				if pattern.MatchString(str) {
					findings = append(findings, AuditFinding{
						CheckID:     fmt.Sprintf("config.hardcoded_api_key.%s", tag),
						Severity:    SeverityWarn,
						Title:       fmt.Sprintf("Potential hardcoded API key in %s navigator config", tag),
						Detail:      fmt.Sprintf("navigators.%s.llm_config.%s appears to be a literal secret rather than an environment variable reference.", tag, key),
						Remediation: "Reference the credential through an environment variable instead of inlining it in the config file.",
					})
					break
				}
			}
		}
	}

	return findings
}

func looksLikeSecretKey(key string) bool {
	lower := strings.ToLower(key)
	for _, fragment := range []string{"key", "token", "secret", "password"} {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// auditMemoryDSN checks the dynamic memory backend's connection string for
// an embedded, literal password.
func auditMemoryDSN(cfg *config.Config) []AuditFinding {
	var findings []AuditFinding

	dsn := cfg.Memory.DynamicDSN
	if dsn != "" && containsEmbeddedPassword(dsn) {
		findings = append(findings, AuditFinding{
			CheckID:     "config.memory_dsn_password",
			Severity:    SeverityWarn,
			Title:       "Memory backend DSN may contain an embedded password",
			Detail:      "memory.dynamic_dsn appears to contain a literal password component.",
			Remediation: "Use an environment variable reference for the DSN's credentials.",
		})
	}

	return findings
}

// auditRoundBudgets flags missing or unbounded iteration budgets, which
// defeat the loop-detector's ability to guard against runaway sessions.
func auditRoundBudgets(cfg *config.Config) []AuditFinding {
	var findings []AuditFinding

	if cfg.PlannerMaxRounds <= 0 {
		findings = append(findings, AuditFinding{
			CheckID:     "config.planner_max_rounds_unset",
			Severity:    SeverityCritical,
			Title:       "Planner round budget is not set",
			Detail:      "planner_max_rounds is zero or unset; a misbehaving session has no outer iteration limit.",
			Remediation: "Set planner_max_rounds to a positive value.",
		})
	}

	if cfg.NavigatorMaxRounds <= 0 {
		findings = append(findings, AuditFinding{
			CheckID:     "config.navigator_max_rounds_unset",
			Severity:    SeverityCritical,
			Title:       "Navigator round budget is not set",
			Detail:      "navigator_max_rounds is zero or unset; a stuck navigator has no inner iteration limit.",
			Remediation: "Set navigator_max_rounds to a positive value.",
		})
	}

	return findings
}

// containsEmbeddedPassword checks if a connection string contains a
// user:password component rather than an environment variable reference.
func containsEmbeddedPassword(dsn string) bool {
	if !strings.Contains(dsn, "://") {
		return false
	}
	parts := strings.SplitN(dsn, "://", 2)
	if len(parts) != 2 {
		return false
	}
	authPart := strings.SplitN(parts[1], "@", 2)
	if len(authPart) != 2 {
		return false
	}
	if !strings.Contains(authPart[0], ":") {
		return false
	}
	userPass := strings.SplitN(authPart[0], ":", 2)
	return len(userPass) == 2 && userPass[1] != "" && !strings.HasPrefix(userPass[1], "${")
}
