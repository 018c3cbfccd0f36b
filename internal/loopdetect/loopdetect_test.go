package loopdetect

import (
	"encoding/json"
	"testing"

	"github.com/haasonsaas/orchestrator/pkg/models"
)

func toolCallMsg(name, argsJSON string) models.Message {
	return models.Message{
		Role: models.RoleAssistant,
		ToolCalls: []models.ToolCall{
			{ID: "1", Name: name, Input: json.RawMessage(argsJSON)},
		},
	}
}

func toolResultMsg(content string) models.Message {
	return models.Message{Role: models.RoleTool, Content: content}
}

func TestStuck_ThreeIdenticalProposalsInterleavedWithResults(t *testing.T) {
	messages := []models.Message{
		toolCallMsg("click", `{"selector":"#submit"}`),
		toolResultMsg("element not clickable"),
		toolCallMsg("click", `{"selector": "#submit"}`),
		toolResultMsg("element not clickable"),
		toolCallMsg("click", `{  "selector"  :  "#submit"  }`),
	}

	if !Stuck(messages) {
		t.Fatal("expected Stuck=true for three structurally identical proposals")
	}
}

func TestStuck_AlternatingToolNamesNotStuck(t *testing.T) {
	messages := []models.Message{
		toolCallMsg("click", `{"selector":"#submit"}`),
		toolResultMsg("not clickable"),
		toolCallMsg("scroll", `{"direction":"down"}`),
		toolResultMsg("scrolled"),
		toolCallMsg("click", `{"selector":"#submit"}`),
	}

	if Stuck(messages) {
		t.Fatal("expected Stuck=false when tool names alternate")
	}
}

func TestStuck_AlternatingArgumentsNotStuck(t *testing.T) {
	messages := []models.Message{
		toolCallMsg("click", `{"selector":"#a"}`),
		toolResultMsg("not clickable"),
		toolCallMsg("click", `{"selector":"#b"}`),
		toolResultMsg("not clickable"),
		toolCallMsg("click", `{"selector":"#a"}`),
	}

	if Stuck(messages) {
		t.Fatal("expected Stuck=false when arguments alternate")
	}
}

func TestStuck_FewerThanThreshold(t *testing.T) {
	messages := []models.Message{
		toolCallMsg("click", `{"selector":"#submit"}`),
		toolResultMsg("not clickable"),
		toolCallMsg("click", `{"selector":"#submit"}`),
	}

	if Stuck(messages) {
		t.Fatal("expected Stuck=false with only two repeats")
	}
}

func TestStuck_PlainTextProposalBreaksStreak(t *testing.T) {
	messages := []models.Message{
		toolCallMsg("click", `{"selector":"#submit"}`),
		toolResultMsg("not clickable"),
		{Role: models.RoleAssistant, Content: "let me think about this differently"},
		toolCallMsg("click", `{"selector":"#submit"}`),
	}

	if Stuck(messages) {
		t.Fatal("expected Stuck=false after a plain-text proposal")
	}
}

func TestStuck_EmptyMessages(t *testing.T) {
	if Stuck(nil) {
		t.Fatal("expected Stuck=false for empty history")
	}
}
