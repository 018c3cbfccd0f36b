// Package composio implements the composio navigator's tool surface: a
// thin REST client against Composio's action-execution API. No official Go
// SDK exists for Composio, so this talks to the HTTP API directly with the
// standard library's net/http, the same way the teacher's own websearch
// tool talks to its backends without a vendor SDK.
package composio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/haasonsaas/orchestrator/internal/registry"
)

const defaultBaseURL = "https://backend.composio.dev/api/v2"

// Config configures the Composio tool's API credentials and target user.
type Config struct {
	APIKey  string
	UserID  string
	BaseURL string
}

func (c Config) resolvedBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

// ActionTool executes a named Composio action for the configured user.
type ActionTool struct {
	cfg    Config
	client *http.Client
}

// NewActionTool creates the execute_action tool.
func NewActionTool(cfg Config) *ActionTool {
	return &ActionTool{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *ActionTool) Name() string { return "execute_action" }

func (t *ActionTool) Description() string {
	return "Executes a Composio action slug (e.g. GMAIL_FETCH_EMAILS) against the configured user's connected accounts, with the given arguments."
}

func (t *ActionTool) Schema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "slug": {"type": "string", "description": "Composio action slug, e.g. GMAIL_FETCH_EMAILS"},
    "arguments": {"type": "object", "description": "Action-specific arguments"}
  },
  "required": ["slug"]
}`)
}

type actionInput struct {
	Slug      string         `json:"slug"`
	Arguments map[string]any `json:"arguments"`
}

type executeRequest struct {
	UserID    string         `json:"user_id"`
	Arguments map[string]any `json:"arguments"`
}

// Execute calls Composio's action-execution endpoint for the given slug.
func (t *ActionTool) Execute(ctx context.Context, params json.RawMessage) (*registry.ToolResult, error) {
	var input actionInput
	if err := json.Unmarshal(params, &input); err != nil {
		return errResult(fmt.Sprintf("invalid params: %v", err)), nil
	}
	if input.Slug == "" {
		return errResult("slug is required"), nil
	}
	if t.cfg.APIKey == "" {
		return errResult("composio api key is not configured"), nil
	}
	if t.cfg.UserID == "" {
		return errResult("composio user id is not configured"), nil
	}

	body, err := json.Marshal(executeRequest{
		UserID:    t.cfg.UserID,
		Arguments: input.Arguments,
	})
	if err != nil {
		return errResult(fmt.Sprintf("failed to encode request: %v", err)), nil
	}

	url := fmt.Sprintf("%s/actions/%s/execute", t.cfg.resolvedBaseURL(), input.Slug)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errResult(fmt.Sprintf("failed to build request: %v", err)), nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", t.cfg.APIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return errResult(fmt.Sprintf("request failed: %v", err)), nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errResult(fmt.Sprintf("failed to read response: %v", err)), nil
	}

	if resp.StatusCode >= 400 {
		return errResult(fmt.Sprintf("composio returned %d: %s", resp.StatusCode, string(respBody))), nil
	}

	return &registry.ToolResult{Content: string(respBody)}, nil
}

// ConnectionStatusTool lists the configured user's connected accounts
// across all apps, without executing any action.
type ConnectionStatusTool struct {
	cfg    Config
	client *http.Client
}

// NewConnectionStatusTool creates the check_connection_status tool.
func NewConnectionStatusTool(cfg Config) *ConnectionStatusTool {
	return &ConnectionStatusTool{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (t *ConnectionStatusTool) Name() string { return "check_connection_status" }

func (t *ConnectionStatusTool) Description() string {
	return "Checks whether the configured Composio user has an active connected account, and lists its connections."
}

func (t *ConnectionStatusTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

// Execute queries Composio's connected-accounts endpoint for the
// configured user.
func (t *ConnectionStatusTool) Execute(ctx context.Context, params json.RawMessage) (*registry.ToolResult, error) {
	if t.cfg.APIKey == "" {
		return errResult("composio api key is not configured"), nil
	}
	if t.cfg.UserID == "" {
		return errResult("composio user id is not configured"), nil
	}

	url := fmt.Sprintf("%s/connectedAccounts?user_id=%s", t.cfg.resolvedBaseURL(), t.cfg.UserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errResult(fmt.Sprintf("failed to build request: %v", err)), nil
	}
	req.Header.Set("X-API-Key", t.cfg.APIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return errResult(fmt.Sprintf("request failed: %v", err)), nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errResult(fmt.Sprintf("failed to read response: %v", err)), nil
	}

	if resp.StatusCode >= 400 {
		return errResult(fmt.Sprintf("composio returned %d: %s", resp.StatusCode, string(respBody))), nil
	}

	return &registry.ToolResult{Content: string(respBody)}, nil
}

func errResult(content string) *registry.ToolResult {
	return &registry.ToolResult{Content: content, IsError: true}
}
