package models

import (
	"encoding/json"
	"testing"
)

func TestNavigatorEventType_Constants(t *testing.T) {
	tests := []struct {
		constant NavigatorEventType
		expected string
	}{
		{EventThinkingStart, "thinking_start"},
		{EventThinkingEnd, "thinking_end"},
		{EventToolQueued, "tool_queued"},
		{EventToolStarted, "tool_started"},
		{EventToolCompleted, "tool_completed"},
		{EventToolFailed, "tool_failed"},
		{EventToolTimeout, "tool_timeout"},
		{EventLoopDetected, "loop_detected"},
		{EventIterationStart, "iteration_start"},
		{EventIterationEnd, "iteration_end"},
	}

	for _, tt := range tests {
		t.Run(string(tt.constant), func(t *testing.T) {
			if string(tt.constant) != tt.expected {
				t.Errorf("constant = %q, want %q", tt.constant, tt.expected)
			}
		})
	}
}

func TestNavigatorEvent_Struct(t *testing.T) {
	event := NavigatorEvent{
		Type:       EventToolStarted,
		Tag:        "browser",
		Message:    "Starting click tool",
		ToolName:   "click",
		ToolCallID: "call-123",
		Iteration:  2,
		Meta:       map[string]any{"selector": "#submit"},
	}

	if event.Type != EventToolStarted {
		t.Errorf("Type = %v, want %v", event.Type, EventToolStarted)
	}
	if event.Tag != "browser" {
		t.Errorf("Tag = %q, want %q", event.Tag, "browser")
	}
	if event.ToolName != "click" {
		t.Errorf("ToolName = %q, want %q", event.ToolName, "click")
	}
	if event.Iteration != 2 {
		t.Errorf("Iteration = %d, want 2", event.Iteration)
	}
}

func TestNavigatorEvent_JSONRoundTrip(t *testing.T) {
	original := NavigatorEvent{
		Type:       EventToolCompleted,
		Tag:        "sql",
		Message:    "Tool completed successfully",
		ToolName:   "run_query",
		ToolCallID: "call-456",
		Iteration:  1,
		Meta:       map[string]any{"rows": "42"},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var decoded NavigatorEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if decoded.Type != original.Type {
		t.Errorf("Type = %v, want %v", decoded.Type, original.Type)
	}
	if decoded.Tag != original.Tag {
		t.Errorf("Tag = %q, want %q", decoded.Tag, original.Tag)
	}
	if decoded.Meta["rows"] != "42" {
		t.Errorf("Meta[rows] = %v, want %q", decoded.Meta["rows"], "42")
	}
}

func TestNewToolEvent(t *testing.T) {
	event := NewToolEvent(EventToolStarted, "click", "call-123")

	if event == nil {
		t.Fatal("event is nil")
	}
	if event.Type != EventToolStarted {
		t.Errorf("Type = %v, want %v", event.Type, EventToolStarted)
	}
	if event.ToolName != "click" {
		t.Errorf("ToolName = %q, want %q", event.ToolName, "click")
	}
	if event.ToolCallID != "call-123" {
		t.Errorf("ToolCallID = %q, want %q", event.ToolCallID, "call-123")
	}
}

func TestNavigatorEvent_Chaining(t *testing.T) {
	event := NewToolEvent(EventToolStarted, "click", "call-123").
		WithTag("browser").
		WithMessage("Starting click").
		WithIteration(3).
		WithMeta("selector", "#submit")

	if event.Type != EventToolStarted {
		t.Errorf("Type = %v, want %v", event.Type, EventToolStarted)
	}
	if event.Tag != "browser" {
		t.Errorf("Tag = %q, want %q", event.Tag, "browser")
	}
	if event.Message != "Starting click" {
		t.Errorf("Message = %q, want %q", event.Message, "Starting click")
	}
	if event.Iteration != 3 {
		t.Errorf("Iteration = %d, want 3", event.Iteration)
	}
	if event.Meta["selector"] != "#submit" {
		t.Errorf("Meta[selector] = %v, want %q", event.Meta["selector"], "#submit")
	}
}

func TestNavigatorEvent_WithMeta_MultipleFields(t *testing.T) {
	event := NewToolEvent(EventToolCompleted, "run_query", "call-1").
		WithMeta("key1", "value1").
		WithMeta("key2", 42).
		WithMeta("key3", true)

	if event.Meta["key1"] != "value1" {
		t.Errorf("Meta[key1] = %v, want %q", event.Meta["key1"], "value1")
	}
	if event.Meta["key2"] != 42 {
		t.Errorf("Meta[key2] = %v, want 42", event.Meta["key2"])
	}
	if event.Meta["key3"] != true {
		t.Errorf("Meta[key3] = %v, want true", event.Meta["key3"])
	}
}
