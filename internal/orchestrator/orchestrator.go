// Package orchestrator implements the Orchestrator (C7): the outermost
// driver that turns one command into a finished ChatResult by cycling the
// Planner Agent and the Group Scheduler's routing decisions against
// whichever Navigator Pair the Planner currently wants dispatched.
//
// State machine (mirrors the Planner/Navigator cycle the rest of this
// module implements piecewise):
//
//	Init          -> seed planner history with the command, enter AwaitPlanner
//	AwaitPlanner  -> run one planner turn
//	  envelope terminated           -> Terminal
//	  scheduler routes to a tag     -> RunNavigator
//	  scheduler has nowhere to go   -> Terminal (degenerate: no usable target_helper)
//	RunNavigator  -> run the Navigator Pair to completion on one reflection
//	  pair succeeds                 -> append summary to planner history, AwaitPlanner
//	  pair hits a fatal error       -> Terminal (with an error final_response)
//	Terminal      -> build ChatResult and return
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/haasonsaas/orchestrator/internal/navigator"
	"github.com/haasonsaas/orchestrator/internal/orcherr"
	"github.com/haasonsaas/orchestrator/internal/planner"
	"github.com/haasonsaas/orchestrator/internal/scheduler"
	"github.com/haasonsaas/orchestrator/pkg/models"
)

// DynamicMemory is the write/read side of the dynamic long-term memory mode
// the Orchestrator consults when a navigator summary carries the
// save-in-memory flag. It is satisfied by *memory.DynamicMemory; kept as an
// interface here so the orchestrator package does not need to import the
// vector-search stack just to call two methods.
type DynamicMemory interface {
	SaveContent(ctx context.Context, content string) error
}

// EventSink receives structured lifecycle events as a command runs. Nil is a
// valid "don't care" sink; the Orchestrator always logs through its Logger
// regardless of whether a sink is configured.
type EventSink func(models.SessionEvent)

// Orchestrator ties one Planner Agent to a fixed set of Navigator Pairs and
// drives the outer planner/navigator cycle for a single command at a time.
// It holds no per-command state between calls to ProcessCommand.
type Orchestrator struct {
	Planner    *planner.Agent
	Navigators map[string]*navigator.Pair
	Budgets    scheduler.Budgets
	Memory     DynamicMemory
	Logger     *slog.Logger
	Events     EventSink

	now func() time.Time
}

// New builds an Orchestrator. budgets.PlannerMaxRounds/NavigatorMaxRounds
// fall back to scheduler.DefaultBudgets for any field left at zero.
func New(agent *planner.Agent, navigators map[string]*navigator.Pair, budgets scheduler.Budgets) *Orchestrator {
	def := scheduler.DefaultBudgets()
	if budgets.PlannerMaxRounds <= 0 {
		budgets.PlannerMaxRounds = def.PlannerMaxRounds
	}
	if budgets.NavigatorMaxRounds <= 0 {
		budgets.NavigatorMaxRounds = def.NavigatorMaxRounds
	}
	return &Orchestrator{
		Planner:    agent,
		Navigators: navigators,
		Budgets:    budgets,
		Logger:     slog.Default(),
	}
}

func (o *Orchestrator) clock() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now()
}

// Assertion records one is_assert envelope's pass/fail verdict, in the order
// the Planner raised it.
type Assertion struct {
	Summary string
	Passed  bool
}

// TerminatedReason classifies why a command's session reached a terminal
// state.
type TerminatedReason string

const (
	TerminatedOK            TerminatedReason = "ok"
	TerminatedRoundBudget   TerminatedReason = "round_budget"
	TerminatedNavBudget     TerminatedReason = "nav_budget"
	TerminatedCancelled     TerminatedReason = "cancelled"
	TerminatedParseError    TerminatedReason = "parse_error"
	TerminatedNoTarget      TerminatedReason = "no_target"
	TerminatedFatalExternal TerminatedReason = "fatal_external"
)

// ChatResult is what ProcessCommand hands back once a command has reached a
// terminal state, one way or another.
type ChatResult struct {
	ChatLog          []models.Message
	CostSummary      *models.SessionStats
	FinalResponse    string
	Assertions       []Assertion
	TerminatedReason TerminatedReason
}

var currentURLPattern = regexp.MustCompile(`current_url:\s*(\S+)\s*$`)

// ProcessCommand runs command to completion: seeding the Planner's history,
// cycling Planner turns against the Group Scheduler's routing decisions and
// Navigator Pair dispatches, and returning once the Planner's envelope
// terminates, the outer round budget is exhausted, or a navigator hits an
// unrecoverable error.
func (o *Orchestrator) ProcessCommand(ctx context.Context, sessionID, command, currentURL string) (*ChatResult, error) {
	if o.Planner == nil {
		return nil, &orcherr.FatalExternal{Component: "orchestrator", Cause: errors.New("no planner configured")}
	}

	stats := &models.SessionStats{SessionID: sessionID, StartedAt: o.clock()}
	var seq uint64
	emit := func(ev models.SessionEvent) {
		seq++
		ev.Version = 1
		ev.Time = o.clock()
		ev.Sequence = seq
		ev.SessionID = sessionID
		o.Logger.Info("orchestrator event", "type", ev.Type, "tag", ev.Tag, "planner_turn", ev.PlannerTurn)
		if o.Events != nil {
			o.Events(ev)
		}
	}

	emit(models.SessionEvent{Type: models.SessionEventStarted})

	initial := command
	if currentURL != "" {
		initial += "\ncurrent_url: " + currentURL
	}
	history := []models.Message{{Role: models.RoleUser, Content: initial, CreatedAt: o.clock()}}

	finish := func(finalResponse string, assertions []Assertion, reason TerminatedReason) *ChatResult {
		stats.FinishedAt = o.clock()
		stats.WallTime = stats.FinishedAt.Sub(stats.StartedAt)
		stats.Cancelled = reason == TerminatedCancelled
		emit(models.SessionEvent{Type: models.SessionEventFinished, Stats: &models.StatsEventPayload{Session: stats}})
		return &ChatResult{
			ChatLog:          history,
			CostSummary:      stats,
			FinalResponse:    finalResponse,
			Assertions:       assertions,
			TerminatedReason: reason,
		}
	}

	var assertions []Assertion

	for round := 0; round < o.Budgets.PlannerMaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			stats.Errors++
			emit(models.SessionEvent{Type: models.SessionEventCancelled, PlannerTurn: round})
			return finish(fmt.Sprintf("command cancelled: %v", err), assertions, TerminatedCancelled), &orcherr.Cancelled{Reason: err.Error()}
		}

		emit(models.SessionEvent{Type: models.SessionEventPlannerTurnStarted, PlannerTurn: round})
		env, msg, err := o.Planner.Turn(ctx, history)
		if err != nil {
			stats.Errors++
			emit(models.SessionEvent{Type: models.SessionEventError, PlannerTurn: round, Error: &models.ErrorEventPayload{Message: err.Error(), Err: err}})
			return finish(fmt.Sprintf("planner turn failed: %v", err), assertions, TerminatedFatalExternal), err
		}
		history = append(history, *msg)
		stats.PlannerTurns++
		emit(models.SessionEvent{Type: models.SessionEventPlannerTurnFinished, PlannerTurn: round})

		if env.IsAssert {
			assertions = append(assertions, Assertion{Summary: env.AssertSummary, Passed: env.IsPassed})
		}

		if env.Terminated() {
			finalResponse := env.FinalResponse
			reason := TerminatedOK
			if strings.TrimSpace(finalResponse) == "" {
				finalResponse = "parse failure"
				reason = TerminatedParseError
			}
			return finish(finalResponse, assertions, reason), nil
		}

		reflection := scheduler.Reflection(env, currentURL)
		transition := scheduler.Step(scheduler.State{LastSpeaker: scheduler.SpeakerUser, LastMessage: reflection}, scheduler.KnownTags)
		if transition.Terminal {
			o.Logger.Warn("orchestrator: planner gave no routable target_helper", "target_helper", env.TargetHelper, "round", round)
			finalResponse := env.FinalResponse
			if strings.TrimSpace(finalResponse) == "" {
				finalResponse = fmt.Sprintf("no routable target_helper %q", env.TargetHelper)
			}
			return finish(finalResponse, assertions, TerminatedNoTarget), nil
		}

		tag := strings.TrimPrefix(transition.Next, "proposer:")
		pair, ok := o.Navigators[tag]
		if !ok {
			stats.Errors++
			err := &orcherr.ToolNotFound{Tag: tag, Name: "<navigator>"}
			emit(models.SessionEvent{Type: models.SessionEventError, PlannerTurn: round, Tag: tag, Error: &models.ErrorEventPayload{Message: err.Error(), Err: err}})
			return finish(fmt.Sprintf("navigator %q not configured", tag), assertions, TerminatedFatalExternal), err
		}

		emit(models.SessionEvent{Type: models.SessionEventNavigatorDispatched, PlannerTurn: round, Tag: tag})
		result, err := pair.Run(ctx, reflection)
		if result != nil {
			stats.NavigatorTurns += result.Turns
		}
		if err != nil {
			var loopErr *orcherr.LoopDetected
			var budgetErr *orcherr.RoundBudgetExhausted
			switch {
			case errors.As(err, &loopErr):
				stats.LoopDetections++
				emit(models.SessionEvent{Type: models.SessionEventNavigatorLoopDetected, PlannerTurn: round, Tag: tag})
			case errors.As(err, &budgetErr):
				o.Logger.Warn("orchestrator: navigator exhausted its round budget", "tag", tag, "round", round)
			default:
				stats.Errors++
				emit(models.SessionEvent{Type: models.SessionEventError, PlannerTurn: round, Tag: tag, Error: &models.ErrorEventPayload{Message: err.Error(), Err: err}})
				return finish(fmt.Sprintf("navigator %q failed: %v", tag, err), assertions, TerminatedFatalExternal), err
			}
			// Loop detection and budget exhaustion are recoverable at the
			// orchestrator level: the navigator still produced a usable
			// (if incomplete) summary, so the Planner gets a chance to
			// adapt rather than the whole command failing outright.
		}
		emit(models.SessionEvent{Type: models.SessionEventNavigatorTurnFinished, PlannerTurn: round, Tag: tag})

		summary := result.Summary
		if url, ok := extractCurrentURL(summary); ok {
			currentURL = url
		}
		if o.Memory != nil && strings.Contains(summary, navigator.SaveInMemoryFlag) {
			stripped := strings.TrimSpace(strings.ReplaceAll(summary, navigator.SaveInMemoryFlag, ""))
			if err := o.Memory.SaveContent(ctx, stripped); err != nil {
				o.Logger.Warn("orchestrator: failed to persist navigator summary to dynamic memory", "tag", tag, "error", err)
			}
			summary = stripped
		}

		history = append(history, models.Message{Role: models.RoleUser, Content: summary, CreatedAt: o.clock()})
	}

	stats.Errors++
	budgetErr := &orcherr.RoundBudgetExhausted{Scope: "planner", Limit: o.Budgets.PlannerMaxRounds}
	emit(models.SessionEvent{Type: models.SessionEventTimedOut})
	result := finish("planner round budget exhausted", assertions, TerminatedRoundBudget)
	result.CostSummary.TimedOut = true
	return result, budgetErr
}

func extractCurrentURL(summary string) (string, bool) {
	m := currentURLPattern.FindStringSubmatch(summary)
	if m == nil {
		return "", false
	}
	return m[1], true
}
