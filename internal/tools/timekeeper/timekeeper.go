// Package timekeeper implements the time_keeper navigator's tool surface:
// bounded waits, current-timestamp lookups, and cron-style schedule
// evaluation for test steps that need to wait on a recurring trigger.
package timekeeper

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/haasonsaas/orchestrator/internal/datetime"
	"github.com/haasonsaas/orchestrator/internal/registry"
)

const maxWaitSeconds = 3600

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// WaitTool pauses for a bounded duration.
type WaitTool struct{}

// NewWaitTool creates the wait_for_duration tool.
func NewWaitTool() *WaitTool { return &WaitTool{} }

func (t *WaitTool) Name() string { return "wait_for_duration" }

func (t *WaitTool) Description() string {
	return "Waits for a specified number of seconds. Only accepts numeric values between 0 and 3600 seconds."
}

func (t *WaitTool) Schema() json.RawMessage {
	return registry.GenerateSchema[waitInput]()
}

type waitInput struct {
	Duration float64 `json:"duration" jsonschema:"required,description=Seconds to wait, between 0 and 3600"`
}

// Execute blocks for the requested duration or until ctx is cancelled.
func (t *WaitTool) Execute(ctx context.Context, params json.RawMessage) (*registry.ToolResult, error) {
	var input waitInput
	if err := json.Unmarshal(params, &input); err != nil {
		return errResult(fmt.Sprintf("invalid params: %v", err)), nil
	}
	if input.Duration < 0 {
		return errResult("duration cannot be negative"), nil
	}
	if input.Duration > maxWaitSeconds {
		return errResult(fmt.Sprintf("duration cannot exceed %d seconds", maxWaitSeconds)), nil
	}

	timer := time.NewTimer(time.Duration(input.Duration * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	return okResult(fmt.Sprintf("waited for %g seconds", input.Duration)), nil
}

// TimestampTool reports the current time.
type TimestampTool struct {
	Timezone string
}

// NewTimestampTool creates the get_current_timestamp tool. An empty
// timezone resolves to the host's local timezone.
func NewTimestampTool(timezone string) *TimestampTool {
	return &TimestampTool{Timezone: datetime.ResolveUserTimezone(timezone)}
}

func (t *TimestampTool) Name() string { return "get_current_timestamp" }

func (t *TimestampTool) Description() string {
	return "Returns the current timestamp in RFC3339 format."
}

func (t *TimestampTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

// Execute returns the current time as an RFC3339 string in the tool's
// configured timezone.
func (t *TimestampTool) Execute(ctx context.Context, params json.RawMessage) (*registry.ToolResult, error) {
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		loc = time.UTC
	}
	payload, _ := json.Marshal(struct {
		Timestamp string `json:"timestamp"`
	}{Timestamp: time.Now().In(loc).Format(time.RFC3339)})
	return &registry.ToolResult{Content: string(payload)}, nil
}

// ScheduleTool evaluates a cron expression and reports its next firing
// time, for steps that assert on a recurring trigger rather than waiting
// on it directly.
type ScheduleTool struct{}

// NewScheduleTool creates the next_scheduled_run tool.
func NewScheduleTool() *ScheduleTool { return &ScheduleTool{} }

func (t *ScheduleTool) Name() string { return "next_scheduled_run" }

func (t *ScheduleTool) Description() string {
	return "Parses a cron expression and returns the next time it would fire after now."
}

func (t *ScheduleTool) Schema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "cron": {"type": "string", "description": "Standard cron expression, e.g. \"0 */5 * * * *\""}
  },
  "required": ["cron"]
}`)
}

type scheduleInput struct {
	Cron string `json:"cron"`
}

// Execute parses the cron expression and reports the next run time.
func (t *ScheduleTool) Execute(ctx context.Context, params json.RawMessage) (*registry.ToolResult, error) {
	var input scheduleInput
	if err := json.Unmarshal(params, &input); err != nil {
		return errResult(fmt.Sprintf("invalid params: %v", err)), nil
	}
	schedule, err := cronParser.Parse(input.Cron)
	if err != nil {
		return errResult(fmt.Sprintf("invalid cron expression: %v", err)), nil
	}
	next := schedule.Next(time.Now())
	payload, _ := json.Marshal(struct {
		NextRun string `json:"next_run"`
	}{NextRun: next.Format(time.RFC3339)})
	return &registry.ToolResult{Content: string(payload)}, nil
}

func okResult(content string) *registry.ToolResult {
	return &registry.ToolResult{Content: content}
}

func errResult(content string) *registry.ToolResult {
	return &registry.ToolResult{Content: content, IsError: true}
}
