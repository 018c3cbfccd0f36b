package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haasonsaas/orchestrator/internal/llm"
	"github.com/haasonsaas/orchestrator/internal/navigator"
	"github.com/haasonsaas/orchestrator/internal/orcherr"
	"github.com/haasonsaas/orchestrator/internal/planner"
	"github.com/haasonsaas/orchestrator/internal/registry"
	"github.com/haasonsaas/orchestrator/internal/scheduler"
)

// scriptedProvider replays a fixed sequence of completions, one per call to
// Complete; the last entry repeats once exhausted so a test doesn't need to
// script every remaining round explicitly.
type scriptedProvider struct {
	turns []llm.CompletionChunk
	calls int
	err   error
}

func (s *scriptedProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (<-chan *llm.CompletionChunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	idx := s.calls
	if idx >= len(s.turns) {
		idx = len(s.turns) - 1
	}
	s.calls++
	chunk := s.turns[idx]
	ch := make(chan *llm.CompletionChunk, 1)
	go func() {
		defer close(ch)
		ch <- &chunk
	}()
	return ch, nil
}

func (s *scriptedProvider) Name() string        { return "scripted" }
func (s *scriptedProvider) Models() []llm.Model { return nil }
func (s *scriptedProvider) SupportsTools() bool { return true }

func newTestOrchestrator(plannerProvider llm.Provider, navigators map[string]*navigator.Pair) *Orchestrator {
	agent := planner.New(plannerProvider, "fixed planner prompt", "test-model", nil)
	o := New(agent, navigators, scheduler.Budgets{})
	o.now = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }
	return o
}

func newSentinelNavigator(tag, summaryText string) *navigator.Pair {
	provider := &scriptedProvider{turns: []llm.CompletionChunk{{Text: summaryText + " " + navigator.Sentinel}}}
	proposer := navigator.NewProposer(tag, provider, "nav system prompt", "test-model", nil)
	return navigator.NewPair(tag, proposer, registry.New(), 5)
}

func TestProcessCommand_TerminatesDirectlyWhenEnvelopeTerminates(t *testing.T) {
	provider := &scriptedProvider{turns: []llm.CompletionChunk{
		{Text: `{"terminate": "yes", "final_response": "all done", "target_helper": "Not_Applicable"}`},
	}}
	o := newTestOrchestrator(provider, nil)

	result, err := o.ProcessCommand(context.Background(), "sess-1", "run the smoke test", "")
	if err != nil {
		t.Fatalf("ProcessCommand error: %v", err)
	}
	if result.FinalResponse != "all done" {
		t.Fatalf("FinalResponse = %q, want %q", result.FinalResponse, "all done")
	}
	if result.TerminatedReason != TerminatedOK {
		t.Errorf("TerminatedReason = %q, want %q", result.TerminatedReason, TerminatedOK)
	}
	if result.CostSummary.PlannerTurns != 1 {
		t.Errorf("PlannerTurns = %d, want 1", result.CostSummary.PlannerTurns)
	}
}

func TestProcessCommand_DispatchesToNavigatorThenTerminates(t *testing.T) {
	plannerProvider := &scriptedProvider{turns: []llm.CompletionChunk{
		{Text: `{"terminate": "no", "next_step": "open the login page", "target_helper": "browser"}`},
		{Text: `{"terminate": "yes", "final_response": "logged in successfully", "target_helper": "Not_Applicable"}`},
	}}
	navigators := map[string]*navigator.Pair{
		"browser": newSentinelNavigator("browser", "the login page is open"),
	}
	o := newTestOrchestrator(plannerProvider, navigators)

	result, err := o.ProcessCommand(context.Background(), "sess-2", "log into the app", "")
	if err != nil {
		t.Fatalf("ProcessCommand error: %v", err)
	}
	if result.FinalResponse != "logged in successfully" {
		t.Fatalf("FinalResponse = %q, want %q", result.FinalResponse, "logged in successfully")
	}
	if result.CostSummary.PlannerTurns != 2 {
		t.Errorf("PlannerTurns = %d, want 2", result.CostSummary.PlannerTurns)
	}
	if result.CostSummary.NavigatorTurns == 0 {
		t.Error("expected at least one navigator turn recorded")
	}

	found := false
	for _, m := range result.ChatLog {
		if m.Content == "the login page is open" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the navigator summary to appear in the chat log")
	}
}

func TestProcessCommand_RecordsAssertions(t *testing.T) {
	provider := &scriptedProvider{turns: []llm.CompletionChunk{
		{Text: `{"terminate": "yes", "final_response": "checkout total verified", "is_assert": true, "assert_summary": "total equals $42.00", "is_passed": true, "target_helper": "Not_Applicable"}`},
	}}
	o := newTestOrchestrator(provider, nil)

	result, err := o.ProcessCommand(context.Background(), "sess-3", "verify the total", "")
	if err != nil {
		t.Fatalf("ProcessCommand error: %v", err)
	}
	if len(result.Assertions) != 1 {
		t.Fatalf("len(Assertions) = %d, want 1", len(result.Assertions))
	}
	if !result.Assertions[0].Passed || result.Assertions[0].Summary != "total equals $42.00" {
		t.Fatalf("unexpected assertion: %+v", result.Assertions[0])
	}
	if result.TerminatedReason != TerminatedOK {
		t.Errorf("TerminatedReason = %q, want %q", result.TerminatedReason, TerminatedOK)
	}
}

func TestProcessCommand_AssertionFailureStillTerminatesOK(t *testing.T) {
	provider := &scriptedProvider{turns: []llm.CompletionChunk{
		{Text: `{"terminate": "yes", "final_response": "Status mismatch", "is_assert": true, "assert_summary": "EXPECTED RESULT: 200\nACTUAL RESULT: 500", "is_passed": false, "target_helper": "Not_Applicable"}`},
	}}
	o := newTestOrchestrator(provider, nil)

	result, err := o.ProcessCommand(context.Background(), "sess-9", "verify the status code", "")
	if err != nil {
		t.Fatalf("ProcessCommand error: %v", err)
	}
	if result.FinalResponse != "Status mismatch" {
		t.Fatalf("FinalResponse = %q, want %q", result.FinalResponse, "Status mismatch")
	}
	if len(result.Assertions) != 1 || result.Assertions[0].Passed {
		t.Fatalf("unexpected assertions: %+v", result.Assertions)
	}
	if result.TerminatedReason != TerminatedOK {
		t.Errorf("TerminatedReason = %q, want %q (assertion failure is an expected terminal state, not an error)", result.TerminatedReason, TerminatedOK)
	}
}

func TestProcessCommand_UnparseableEnvelopeTerminatesAsParseError(t *testing.T) {
	provider := &scriptedProvider{turns: []llm.CompletionChunk{
		{Text: "   "},
	}}
	o := newTestOrchestrator(provider, nil)

	result, err := o.ProcessCommand(context.Background(), "sess-10", "do the thing", "")
	if err != nil {
		t.Fatalf("ProcessCommand error: %v", err)
	}
	if result.TerminatedReason != TerminatedParseError {
		t.Errorf("TerminatedReason = %q, want %q", result.TerminatedReason, TerminatedParseError)
	}
	if result.FinalResponse == "" {
		t.Error("expected a non-empty FinalResponse on parse failure")
	}
}

func TestProcessCommand_UnroutableTargetHelperTerminates(t *testing.T) {
	provider := &scriptedProvider{turns: []llm.CompletionChunk{
		{Text: `{"terminate": "no", "next_step": "do something", "target_helper": "not_a_real_tag"}`},
	}}
	o := newTestOrchestrator(provider, nil)

	result, err := o.ProcessCommand(context.Background(), "sess-4", "do the thing", "")
	if err != nil {
		t.Fatalf("ProcessCommand error: %v", err)
	}
	if result.CostSummary.PlannerTurns != 1 {
		t.Errorf("PlannerTurns = %d, want 1 (no navigator should have run)", result.CostSummary.PlannerTurns)
	}
	if result.TerminatedReason != TerminatedNoTarget {
		t.Errorf("TerminatedReason = %q, want %q", result.TerminatedReason, TerminatedNoTarget)
	}
	if result.FinalResponse == "" {
		t.Error("expected a non-empty FinalResponse even with no routable target_helper")
	}
}

type fakeDynamicMemory struct {
	saved []string
}

func (f *fakeDynamicMemory) SaveContent(ctx context.Context, content string) error {
	f.saved = append(f.saved, content)
	return nil
}

func TestProcessCommand_SavesToDynamicMemoryWhenFlagPresent(t *testing.T) {
	plannerProvider := &scriptedProvider{turns: []llm.CompletionChunk{
		{Text: `{"terminate": "no", "next_step": "note the total", "target_helper": "browser"}`},
		{Text: `{"terminate": "yes", "final_response": "done", "target_helper": "Not_Applicable"}`},
	}}
	navigators := map[string]*navigator.Pair{
		"browser": newSentinelNavigator("browser", "checkout total is $42.00 "+navigator.SaveInMemoryFlag),
	}
	mem := &fakeDynamicMemory{}
	o := newTestOrchestrator(plannerProvider, navigators)
	o.Memory = mem

	if _, err := o.ProcessCommand(context.Background(), "sess-5", "track the total", ""); err != nil {
		t.Fatalf("ProcessCommand error: %v", err)
	}
	if len(mem.saved) != 1 {
		t.Fatalf("expected one saved entry, got %d", len(mem.saved))
	}
	if mem.saved[0] != "checkout total is $42.00" {
		t.Fatalf("saved content = %q, want the flag stripped", mem.saved[0])
	}
}

func TestProcessCommand_PlannerErrorPropagates(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("provider unreachable")}
	o := newTestOrchestrator(provider, nil)

	_, err := o.ProcessCommand(context.Background(), "sess-6", "do the thing", "")
	if err == nil {
		t.Fatal("expected an error when the planner's provider fails")
	}
}

func TestProcessCommand_ExhaustsPlannerRoundBudget(t *testing.T) {
	plannerProvider := &scriptedProvider{turns: []llm.CompletionChunk{
		{Text: `{"terminate": "no", "next_step": "keep going", "target_helper": "browser"}`},
	}}
	navigators := map[string]*navigator.Pair{
		"browser": newSentinelNavigator("browser", "still working"),
	}
	agent := planner.New(plannerProvider, "fixed planner prompt", "test-model", nil)
	o := New(agent, navigators, scheduler.Budgets{PlannerMaxRounds: 1, NavigatorMaxRounds: 5})

	result, err := o.ProcessCommand(context.Background(), "sess-7", "never finish", "")
	var budgetErr *orcherr.RoundBudgetExhausted
	if !errors.As(err, &budgetErr) {
		t.Fatalf("expected RoundBudgetExhausted, got %v", err)
	}
	if !result.CostSummary.TimedOut {
		t.Error("expected CostSummary.TimedOut = true")
	}
	if result.TerminatedReason != TerminatedRoundBudget {
		t.Errorf("TerminatedReason = %q, want %q", result.TerminatedReason, TerminatedRoundBudget)
	}
	if result.FinalResponse == "" {
		t.Error("expected a non-empty FinalResponse describing the round budget exhaustion")
	}
}

func TestProcessCommand_RequiresPlanner(t *testing.T) {
	o := New(nil, nil, scheduler.Budgets{})
	if _, err := o.ProcessCommand(context.Background(), "sess-8", "anything", ""); err == nil {
		t.Fatal("expected an error when no planner is configured")
	}
}
