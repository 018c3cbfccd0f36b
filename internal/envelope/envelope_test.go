package envelope

import "testing"

func TestParse_WellFormedJSON(t *testing.T) {
	msg := `{"plan":["step one","step two"],"next_step":"open the login page","terminate":"no","target_helper":"browser"}`
	env := Parse(msg)

	if len(env.Plan) != 2 || env.Plan[0] != "step one" {
		t.Fatalf("unexpected plan: %+v", env.Plan)
	}
	if env.NextStep != "open the login page" {
		t.Fatalf("NextStep = %q", env.NextStep)
	}
	if env.Terminate != "no" {
		t.Fatalf("Terminate = %q, want no", env.Terminate)
	}
	if env.TargetHelper != "browser" {
		t.Fatalf("TargetHelper = %q, want browser", env.TargetHelper)
	}
	if env.Terminated() {
		t.Fatal("Terminated() should be false")
	}
}

func TestParse_FencedJSONBlock(t *testing.T) {
	msg := "Sure, here you go:\n```json\n{\"terminate\": \"yes\", \"final_response\": \"done\"}\n```"
	env := Parse(msg)

	if !env.Terminated() {
		t.Fatal("expected terminate=yes")
	}
	if env.FinalResponse != "done" {
		t.Fatalf("FinalResponse = %q, want done", env.FinalResponse)
	}
}

func TestParse_BareFence(t *testing.T) {
	msg := "```\n{\"terminate\":\"no\",\"next_step\":\"click submit\"}\n```"
	env := Parse(msg)

	if env.Terminated() {
		t.Fatal("expected terminate=no")
	}
	if env.NextStep != "click submit" {
		t.Fatalf("NextStep = %q", env.NextStep)
	}
}

func TestParse_KeywordFallback(t *testing.T) {
	msg := `plan: "navigate then assert" next_step: "open url" terminate: "no, not yet" final_response: "n/a"`
	env := Parse(msg)

	if env.Terminate != "no" {
		t.Fatalf("Terminate = %q, want no", env.Terminate)
	}
	if env.NextStep != "open url" {
		t.Fatalf("NextStep = %q, want %q", env.NextStep, "open url")
	}
}

func TestParse_KeywordFallbackTerminateYes(t *testing.T) {
	msg := `next_step: "" terminate: "yes, task complete" final_response: "all steps passed"`
	env := Parse(msg)

	if !env.Terminated() {
		t.Fatal("expected terminate=yes")
	}
	if env.FinalResponse != "all steps passed" {
		t.Fatalf("FinalResponse = %q", env.FinalResponse)
	}
}

func TestParse_NoAnchorKeywordsDefensiveTermination(t *testing.T) {
	msg := "I am not sure what happened, the page seems broken."
	env := Parse(msg)

	if !env.Terminated() {
		t.Fatal("expected defensive terminate=yes when no anchor keywords found")
	}
	if env.FinalResponse != msg {
		t.Fatalf("FinalResponse = %q, want raw message", env.FinalResponse)
	}
	if env.TargetHelper != NotApplicable {
		t.Fatalf("TargetHelper = %q, want %q", env.TargetHelper, NotApplicable)
	}
}

func TestParse_YAMLFencedBlock(t *testing.T) {
	msg := "```yaml\nterminate: \"no\"\nnext_step: \"run the query\"\ntarget_helper: sql\n```"
	env := Parse(msg)

	if env.Terminated() {
		t.Fatal("expected terminate=no")
	}
	if env.NextStep != "run the query" {
		t.Fatalf("NextStep = %q", env.NextStep)
	}
	if env.TargetHelper != "sql" {
		t.Fatalf("TargetHelper = %q, want sql", env.TargetHelper)
	}
}

func TestParse_RoundTripWellFormedJSON(t *testing.T) {
	msg := `{"plan":["a"],"next_step":"b","terminate":"no","is_assert":true,"assert_summary":"EXPECTED 200 ACTUAL 200","is_passed":true,"target_helper":"api"}`
	env := Parse(msg)

	if !env.IsAssert || !env.IsPassed {
		t.Fatal("expected is_assert and is_passed true")
	}
	if env.AssertSummary != "EXPECTED 200 ACTUAL 200" {
		t.Fatalf("AssertSummary = %q", env.AssertSummary)
	}
}
