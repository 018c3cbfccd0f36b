package models

import (
	"time"
)

// SessionEvent is the unified event model for an orchestrator session. It
// provides a single event stream that drives logging, metrics, and any
// external observer of a command's progress through the group chat.
//
// Design principles:
//   - Versioned and forward-compatible (add fields, don't rename/remove)
//   - Single Type discriminator with optional payload pointers
//   - Monotonic Sequence for ordering guarantees across goroutines
type SessionEvent struct {
	// Version for forward compatibility. Current version: 1.
	Version int `json:"version"`

	// Type identifies the kind of event.
	Type SessionEventType `json:"type"`

	// Time is when the event occurred.
	Time time.Time `json:"time"`

	// Sequence is monotonic within a session for ordering guarantees.
	Sequence uint64 `json:"seq"`

	// SessionID identifies the command session this event belongs to.
	SessionID string `json:"session_id,omitempty"`

	// PlannerTurn is the 0-based planner turn number within the session.
	PlannerTurn int `json:"planner_turn,omitempty"`

	// NavigatorTurn is the 0-based inner-dialogue turn for the navigator
	// currently dispatched, if any.
	NavigatorTurn int `json:"navigator_turn,omitempty"`

	// Tag is the navigator tag involved, if this event is navigator-scoped.
	Tag string `json:"tag,omitempty"`

	// Exactly one payload should be non-nil for a given Type.
	Text   *TextEventPayload   `json:"text,omitempty"`
	Tool   *ToolEventPayload   `json:"tool,omitempty"`
	Stream *StreamEventPayload `json:"stream,omitempty"`
	Error  *ErrorEventPayload  `json:"error,omitempty"`
	Stats  *StatsEventPayload  `json:"stats,omitempty"`
}

// SessionEventType identifies the kind of session event.
type SessionEventType string

const (
	// Session lifecycle
	SessionEventStarted    SessionEventType = "session.started"
	SessionEventFinished   SessionEventType = "session.finished"
	SessionEventError      SessionEventType = "session.error"
	SessionEventCancelled  SessionEventType = "session.cancelled"
	SessionEventTimedOut   SessionEventType = "session.timed_out"

	// Planner lifecycle
	SessionEventPlannerTurnStarted  SessionEventType = "planner.turn_started"
	SessionEventPlannerTurnFinished SessionEventType = "planner.turn_finished"

	// Navigator dispatch
	SessionEventNavigatorDispatched    SessionEventType = "navigator.dispatched"
	SessionEventNavigatorTurnFinished  SessionEventType = "navigator.turn_finished"
	SessionEventNavigatorLoopDetected  SessionEventType = "navigator.loop_detected"

	// Model streaming
	SessionEventModelDelta     SessionEventType = "model.delta"
	SessionEventModelCompleted SessionEventType = "model.completed"

	// Tool execution and streaming IO
	SessionEventToolStarted  SessionEventType = "tool.started"
	SessionEventToolStdout   SessionEventType = "tool.stdout"
	SessionEventToolStderr   SessionEventType = "tool.stderr"
	SessionEventToolFinished SessionEventType = "tool.finished"
	SessionEventToolTimedOut SessionEventType = "tool.timed_out"
)

// TextEventPayload is generic human-readable text (logs, status messages).
type TextEventPayload struct {
	Text string `json:"text"`
}

// StreamEventPayload represents model streaming deltas and completion metadata.
type StreamEventPayload struct {
	// Delta is the incremental text (token-by-token or chunked).
	Delta string `json:"delta,omitempty"`

	// Final is optional final text on completion events.
	Final string `json:"final,omitempty"`

	// Provider/Model for debugging (optional).
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	// Token counts (optional; not all providers supply them).
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// ToolEventPayload describes tool calls and their streamed outputs.
// Args/Result are opaque []byte to avoid coupling to tool schemas.
type ToolEventPayload struct {
	// CallID identifies this specific tool invocation.
	CallID string `json:"call_id,omitempty"`

	// Name is the tool name.
	Name string `json:"name,omitempty"`

	// ArgsJSON is the raw JSON arguments (for started events).
	ArgsJSON []byte `json:"args_json,omitempty"`

	// Chunk is stdout/stderr content (for stdout/stderr events).
	Chunk string `json:"chunk,omitempty"`

	// For finished events:
	Success    bool          `json:"success,omitempty"`
	ResultJSON []byte        `json:"result_json,omitempty"`
	Elapsed    time.Duration `json:"elapsed,omitempty"`
}

// ErrorEventPayload standardizes errors for streaming and observers.
type ErrorEventPayload struct {
	// Message is the error description (required).
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Retriable indicates if the operation can be retried.
	Retriable bool `json:"retriable,omitempty"`

	// Err is the original error (runtime only, not serialized).
	// Used to preserve error types for errors.Is/errors.As.
	Err error `json:"-"`
}

// StatsEventPayload carries session statistics as an event.
type StatsEventPayload struct {
	Session *SessionStats `json:"session,omitempty"`
}

// SessionStats is an aggregated summary of a command session, derived from
// the event stream for observability.
type SessionStats struct {
	// SessionID identifies this session.
	SessionID string `json:"session_id,omitempty"`

	// Timing
	StartedAt  time.Time     `json:"started_at,omitempty"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
	WallTime   time.Duration `json:"wall_time,omitempty"`

	// Counts
	PlannerTurns   int `json:"planner_turns,omitempty"`
	NavigatorTurns int `json:"navigator_turns,omitempty"`

	// Tool metrics
	ToolCalls    int           `json:"tool_calls,omitempty"`
	ToolWallTime time.Duration `json:"tool_wall_time,omitempty"`
	ToolTimeouts int           `json:"tool_timeouts,omitempty"`

	// Model metrics
	ModelWallTime time.Duration `json:"model_wall_time,omitempty"`
	InputTokens   int           `json:"input_tokens,omitempty"`
	OutputTokens  int           `json:"output_tokens,omitempty"`

	// Loop-detector trips
	LoopDetections int `json:"loop_detections,omitempty"`

	// Reliability signals
	Cancelled bool `json:"cancelled,omitempty"` // Session was explicitly cancelled
	TimedOut  bool `json:"timed_out,omitempty"` // Session hit its outer turn budget

	// Error count
	Errors int `json:"errors,omitempty"`
}
