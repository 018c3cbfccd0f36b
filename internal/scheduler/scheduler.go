// Package scheduler implements the Group Scheduler (C6): a deterministic
// state-transition function over a fixed set of speakers — the user, the
// Planner, and one Proposer/Executor pair per navigator tag. It decides, turn
// by turn, who speaks next, and builds the reflection message a Planner
// envelope turns into a Navigator Pair's reflection input.
//
// The teacher's internal/multiagent.Router picks a next speaker by scoring a
// priority-ordered list of fuzzy triggers (keywords, regexes, "always"
// fallbacks) against free-text messages. That is the wrong shape here: the
// speaker graph is fixed and small, and every transition is already fully
// determined by who just spoke and whether their message carries a sentinel
// or a target_helper tag. So this package keeps the router's entry-point
// shape — a single function that looks at the last message and returns the
// next speaker — but replaces the scored trigger list with five unconditional
// rules evaluated in a fixed order.
package scheduler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/haasonsaas/orchestrator/internal/envelope"
	"github.com/haasonsaas/orchestrator/internal/navigator"
)

// KnownTags is the fixed navigator vocabulary. A target_helper or speaker tag
// outside this set can never be routed to.
var KnownTags = []string{"browser", "api", "sql", "sec", "time_keeper", "mcp", "composio", "executor"}

// Speaker identifiers for the two fixed members of the speaker set.
const (
	SpeakerUser    = "user"
	SpeakerPlanner = "planner"
	Terminal       = "terminal"
)

// ProposerName and ExecutorName build the speaker identifiers for a
// navigator tag's Proposer/Executor pair.
func ProposerName(tag string) string { return "proposer:" + tag }
func ExecutorName(tag string) string { return "executor:" + tag }

var targetHelperPattern = regexp.MustCompile(`##target_helper:\s*([A-Za-z_]+)##`)

// State is the scheduler's entire input: who spoke last, and what they said.
// The spec defines scheduling as a pure function of exactly this pair —
// nothing else is consulted.
type State struct {
	LastSpeaker string
	LastMessage string
}

// Transition is the scheduler's decision for one step.
type Transition struct {
	Next     string
	Terminal bool
}

// Budgets bounds the two nested loops the scheduler governs: the outer
// Planner/reflection cycle, and the inner Proposer/Executor cycle for
// whichever navigator is currently active.
type Budgets struct {
	PlannerMaxRounds   int
	NavigatorMaxRounds int
}

// DefaultBudgets returns the spec's default round caps.
func DefaultBudgets() Budgets {
	return Budgets{PlannerMaxRounds: 100, NavigatorMaxRounds: 20}
}

// Step evaluates the five transition rules in order against state and
// returns the next speaker. knownTags restricts which navigator tags are
// routable; callers normally pass KnownTags.
//
// Rule 1: the sentinel ends the dialogue unconditionally, regardless of who
// spoke it.
// Rule 2: a user message carries the target_helper routing tag; missing or
// Not_Applicable terminates.
// Rule 3: a Proposer's turn always hands off to its own Executor.
// Rule 4: an Executor's turn always hands back to its own Proposer.
// Rule 5: anything else is routed by tag-prefix match on the speaker name,
// a defensive fallback that should not be reachable given rules 1-4 cover
// every legitimate speaker.
func Step(state State, knownTags []string) Transition {
	if strings.Contains(state.LastMessage, navigator.Sentinel) {
		return Transition{Next: Terminal, Terminal: true}
	}

	switch {
	case state.LastSpeaker == SpeakerUser:
		tag, ok := parseTargetHelper(state.LastMessage)
		if !ok || tag == envelope.NotApplicable || !containsTag(knownTags, tag) {
			return Transition{Next: Terminal, Terminal: true}
		}
		return Transition{Next: ProposerName(tag)}

	case isProposer(state.LastSpeaker):
		return Transition{Next: ExecutorName(tagFromSpeaker(state.LastSpeaker, "proposer:"))}

	case isExecutor(state.LastSpeaker):
		return Transition{Next: ProposerName(tagFromSpeaker(state.LastSpeaker, "executor:"))}

	default:
		for _, tag := range knownTags {
			if strings.HasPrefix(state.LastSpeaker, tag) {
				return Transition{Next: ProposerName(tag)}
			}
		}
		return Transition{Next: Terminal, Terminal: true}
	}
}

func parseTargetHelper(message string) (string, bool) {
	m := targetHelperPattern.FindStringSubmatch(message)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func isProposer(speaker string) bool { return strings.HasPrefix(speaker, "proposer:") }
func isExecutor(speaker string) bool { return strings.HasPrefix(speaker, "executor:") }

func tagFromSpeaker(speaker, prefix string) string {
	return strings.TrimPrefix(speaker, prefix)
}

// Reflection builds the message a Navigator Pair receives from a Planner
// envelope: the next_step text, the current URL appended for browser-type
// navigators, and a trailing target_helper tag the scheduler itself reads
// back out on the following turn. If the envelope carries no next_step, the
// Planner has nothing concrete for a navigator to do, and the Navigator Pair
// is handed the literal instruction to skip the step rather than being
// invoked with an empty reflection.
func Reflection(env *envelope.Envelope, currentURL string) string {
	if env == nil || strings.TrimSpace(env.NextStep) == "" {
		return "skip this step"
	}

	var b strings.Builder
	b.WriteString(env.NextStep)
	if env.TargetHelper == "browser" && currentURL != "" {
		fmt.Fprintf(&b, "\ncurrent_url: %s", currentURL)
	}
	fmt.Fprintf(&b, "\n##target_helper: %s##", env.TargetHelper)
	return b.String()
}
