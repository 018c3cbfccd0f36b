// Package orcherr defines the orchestrator's core error taxonomy: concrete,
// structured error types the Orchestrator and its components return instead
// of opaque fmt.Errorf strings, so callers can switch on failure kind with
// errors.As.
package orcherr

import "fmt"

// ParseError reports that a planner envelope could not be read, even via
// the Response Parser's keyword fallback.
type ParseError struct {
	Raw   string
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse envelope: %v", e.Cause)
	}
	return "parse envelope: unreadable planner output"
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ToolNotFound reports that a navigator proposed a tool not registered
// under its visibility tag.
type ToolNotFound struct {
	Tag  string
	Name string
}

func (e *ToolNotFound) Error() string {
	return fmt.Sprintf("tool %q not found for navigator %q", e.Name, e.Tag)
}

// ToolInvocationError wraps a failure raised while executing a resolved
// tool handler.
type ToolInvocationError struct {
	Tag   string
	Name  string
	Cause error
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("tool %q (%s) invocation failed: %v", e.Name, e.Tag, e.Cause)
}

func (e *ToolInvocationError) Unwrap() error { return e.Cause }

// LoopDetected reports that the loop detector found a navigator stuck
// repeating the same tool call.
type LoopDetected struct {
	Tag string
}

func (e *LoopDetected) Error() string {
	return fmt.Sprintf("navigator %q appears stuck repeating the same tool call", e.Tag)
}

// RoundBudgetExhausted reports that a planner or navigator hit its
// configured turn budget without terminating.
type RoundBudgetExhausted struct {
	Scope string // "planner" or a navigator tag
	Limit int
}

func (e *RoundBudgetExhausted) Error() string {
	return fmt.Sprintf("%s exhausted its round budget (%d turns)", e.Scope, e.Limit)
}

// FatalExternal wraps an unrecoverable failure from an external dependency
// (LLM provider, tool backend) that the Orchestrator cannot retry past.
type FatalExternal struct {
	Component string
	Cause     error
}

func (e *FatalExternal) Error() string {
	return fmt.Sprintf("fatal error in %s: %v", e.Component, e.Cause)
}

func (e *FatalExternal) Unwrap() error { return e.Cause }

// Cancelled reports that the session was cancelled via its context before
// reaching termination.
type Cancelled struct {
	Reason string
}

func (e *Cancelled) Error() string {
	if e.Reason == "" {
		return "session cancelled"
	}
	return fmt.Sprintf("session cancelled: %s", e.Reason)
}
