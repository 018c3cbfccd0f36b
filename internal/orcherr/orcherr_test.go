package orcherr

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseError_UnwrapAndAs(t *testing.T) {
	cause := fmt.Errorf("unexpected token")
	err := fmt.Errorf("planner turn failed: %w", &ParseError{Raw: "garbage", Cause: cause})

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatal("expected errors.As to find *ParseError")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the wrapped cause")
	}
}

func TestToolNotFound_Message(t *testing.T) {
	err := &ToolNotFound{Tag: "sql", Name: "run_query"}
	if got := err.Error(); got == "" {
		t.Fatal("expected non-empty error message")
	}
}

func TestRoundBudgetExhausted_Message(t *testing.T) {
	err := &RoundBudgetExhausted{Scope: "planner", Limit: 20}
	want := "planner exhausted its round budget (20 turns)"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestCancelled_DefaultReason(t *testing.T) {
	err := &Cancelled{}
	if err.Error() != "session cancelled" {
		t.Fatalf("Error() = %q", err.Error())
	}
}
