package composio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestActionTool_RequiresSlug(t *testing.T) {
	tool := NewActionTool(Config{APIKey: "key", UserID: "user-1"})
	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result when slug is missing")
	}
}

func TestActionTool_RequiresAPIKey(t *testing.T) {
	tool := NewActionTool(Config{UserID: "user-1"})
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"slug": "GMAIL_FETCH_EMAILS"}`))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result when api key is missing")
	}
}

func TestActionTool_ExecutesAgainstEndpoint(t *testing.T) {
	var capturedPath string
	var capturedAPIKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedAPIKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "success", "data": {"messages": []}}`))
	}))
	defer server.Close()

	tool := NewActionTool(Config{APIKey: "test-key", UserID: "user-1", BaseURL: server.URL})
	params, _ := json.Marshal(map[string]any{
		"slug":      "GMAIL_FETCH_EMAILS",
		"arguments": map[string]any{"limit": 10},
	})
	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.Content)
	}
	if capturedPath != "/actions/GMAIL_FETCH_EMAILS/execute" {
		t.Errorf("path = %q, want %q", capturedPath, "/actions/GMAIL_FETCH_EMAILS/execute")
	}
	if capturedAPIKey != "test-key" {
		t.Errorf("api key header = %q, want %q", capturedAPIKey, "test-key")
	}
}

func TestActionTool_PropagatesUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "invalid api key"}`))
	}))
	defer server.Close()

	tool := NewActionTool(Config{APIKey: "bad-key", UserID: "user-1", BaseURL: server.URL})
	params, _ := json.Marshal(map[string]any{"slug": "GMAIL_FETCH_EMAILS"})
	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for a 401 response")
	}
}

func TestConnectionStatusTool_RequiresConfig(t *testing.T) {
	tool := NewConnectionStatusTool(Config{})
	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result when config is incomplete")
	}
}

func TestConnectionStatusTool_QueriesConnectedAccounts(t *testing.T) {
	var capturedQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedQuery = r.URL.RawQuery
		w.Write([]byte(`{"items": []}`))
	}))
	defer server.Close()

	tool := NewConnectionStatusTool(Config{APIKey: "key", UserID: "user-1", BaseURL: server.URL})
	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.Content)
	}
	if capturedQuery != "user_id=user-1" {
		t.Errorf("query = %q, want %q", capturedQuery, "user_id=user-1")
	}
}
