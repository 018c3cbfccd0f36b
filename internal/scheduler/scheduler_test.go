package scheduler

import (
	"testing"

	"github.com/haasonsaas/orchestrator/internal/envelope"
	"github.com/haasonsaas/orchestrator/internal/navigator"
)

func TestStep_SentinelAlwaysTerminates(t *testing.T) {
	state := State{LastSpeaker: ProposerName("browser"), LastMessage: "all done " + navigator.Sentinel}
	got := Step(state, KnownTags)
	if !got.Terminal || got.Next != Terminal {
		t.Fatalf("Step() = %+v, want terminal", got)
	}
}

func TestStep_UserMessageRoutesByTargetHelper(t *testing.T) {
	state := State{LastSpeaker: SpeakerUser, LastMessage: "open the login page\n##target_helper: browser##"}
	got := Step(state, KnownTags)
	want := ProposerName("browser")
	if got.Terminal || got.Next != want {
		t.Fatalf("Step() = %+v, want %q", got, want)
	}
}

func TestStep_UserMessageWithoutTagTerminates(t *testing.T) {
	state := State{LastSpeaker: SpeakerUser, LastMessage: "no routing tag here"}
	got := Step(state, KnownTags)
	if !got.Terminal {
		t.Fatalf("Step() = %+v, want terminal", got)
	}
}

func TestStep_UserMessageWithNotApplicableTerminates(t *testing.T) {
	state := State{LastSpeaker: SpeakerUser, LastMessage: "final answer\n##target_helper: Not_Applicable##"}
	got := Step(state, KnownTags)
	if !got.Terminal {
		t.Fatalf("Step() = %+v, want terminal", got)
	}
}

func TestStep_UserMessageWithUnknownTagTerminates(t *testing.T) {
	state := State{LastSpeaker: SpeakerUser, LastMessage: "do something\n##target_helper: not_a_real_tag##"}
	got := Step(state, KnownTags)
	if !got.Terminal {
		t.Fatalf("Step() = %+v, want terminal for an unroutable tag", got)
	}
}

func TestStep_ProposerHandsOffToOwnExecutor(t *testing.T) {
	state := State{LastSpeaker: ProposerName("sql"), LastMessage: "running a query"}
	got := Step(state, KnownTags)
	want := ExecutorName("sql")
	if got.Terminal || got.Next != want {
		t.Fatalf("Step() = %+v, want %q", got, want)
	}
}

func TestStep_ExecutorHandsBackToOwnProposer(t *testing.T) {
	state := State{LastSpeaker: ExecutorName("sql"), LastMessage: "query result: 3 rows"}
	got := Step(state, KnownTags)
	want := ProposerName("sql")
	if got.Terminal || got.Next != want {
		t.Fatalf("Step() = %+v, want %q", got, want)
	}
}

func TestStep_UnrecognizedSpeakerFallsBackToTagPrefixMatch(t *testing.T) {
	state := State{LastSpeaker: "api_reflection", LastMessage: "doesn't matter"}
	got := Step(state, KnownTags)
	want := ProposerName("api")
	if got.Terminal || got.Next != want {
		t.Fatalf("Step() = %+v, want %q", got, want)
	}
}

func TestStep_UnrecognizedSpeakerWithNoMatchTerminates(t *testing.T) {
	state := State{LastSpeaker: "mystery_speaker", LastMessage: "doesn't matter"}
	got := Step(state, KnownTags)
	if !got.Terminal {
		t.Fatalf("Step() = %+v, want terminal", got)
	}
}

func TestReflection_BuildsNextStepWithTargetHelperTag(t *testing.T) {
	env := &envelope.Envelope{NextStep: "submit the form", TargetHelper: "api"}
	got := Reflection(env, "")
	want := "submit the form\n##target_helper: api##"
	if got != want {
		t.Fatalf("Reflection() = %q, want %q", got, want)
	}
}

func TestReflection_AppendsCurrentURLForBrowserNavigators(t *testing.T) {
	env := &envelope.Envelope{NextStep: "click submit", TargetHelper: "browser"}
	got := Reflection(env, "https://example.com/checkout")
	want := "click submit\ncurrent_url: https://example.com/checkout\n##target_helper: browser##"
	if got != want {
		t.Fatalf("Reflection() = %q, want %q", got, want)
	}
}

func TestReflection_OmitsURLForNonBrowserNavigators(t *testing.T) {
	env := &envelope.Envelope{NextStep: "run the query", TargetHelper: "sql"}
	got := Reflection(env, "https://example.com/checkout")
	want := "run the query\n##target_helper: sql##"
	if got != want {
		t.Fatalf("Reflection() = %q, want %q", got, want)
	}
}

func TestReflection_MissingNextStepSkipsTheStep(t *testing.T) {
	env := &envelope.Envelope{TargetHelper: "browser"}
	if got := Reflection(env, ""); got != "skip this step" {
		t.Fatalf("Reflection() = %q, want %q", got, "skip this step")
	}
	if got := Reflection(nil, ""); got != "skip this step" {
		t.Fatalf("Reflection(nil) = %q, want %q", got, "skip this step")
	}
}

func TestDefaultBudgets(t *testing.T) {
	b := DefaultBudgets()
	if b.PlannerMaxRounds != 100 || b.NavigatorMaxRounds != 20 {
		t.Fatalf("DefaultBudgets() = %+v, want {100 20}", b)
	}
}
