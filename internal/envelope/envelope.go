// Package envelope parses planner output into the structured per-turn
// record the rest of the orchestrator operates on, falling back to
// keyword-anchored slicing when the planner's text is not valid JSON.
package envelope

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// Envelope is the structured record a planner turn produces.
type Envelope struct {
	Plan          []string `json:"plan,omitempty"`
	NextStep      string   `json:"next_step,omitempty"`
	Terminate     string   `json:"terminate"`
	FinalResponse string   `json:"final_response,omitempty"`
	IsAssert      bool     `json:"is_assert,omitempty"`
	AssertSummary string   `json:"assert_summary,omitempty"`
	IsPassed      bool     `json:"is_passed,omitempty"`
	TargetHelper  string   `json:"target_helper,omitempty"`
}

// NotApplicable is the target_helper sentinel for turns with no navigator.
const NotApplicable = "Not_Applicable"

// Terminated reports whether the envelope's terminate field is "yes".
func (e *Envelope) Terminated() bool {
	return e != nil && e.Terminate == "yes"
}

// Parse extracts an Envelope from raw planner text. It tries a ```yaml
// fence first, then a structured JSON parse (optionally fence-wrapped), and
// falls back to keyword-anchored slicing when the text isn't valid JSON,
// matching the fallback the planner's text-only outputs have always needed.
func Parse(message string) *Envelope {
	if yamlBody, ok := extractYAMLFence(message); ok {
		if env, ok := fromYAML(yamlBody); ok {
			return env
		}
	}

	body := unwrapFence(message)
	body = strings.TrimSpace(body)
	body = strings.ReplaceAll(body, `\n`, "\n")
	body = strings.ReplaceAll(body, "\n", " ")

	var rawFields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &rawFields); err == nil {
		if env, ok := fromRawFields(rawFields); ok {
			return env
		}
	}

	if env, ok := parseByKeywords(body); ok {
		return env
	}

	return &Envelope{
		Terminate:     "yes",
		FinalResponse: strings.TrimSpace(message),
		TargetHelper:  NotApplicable,
	}
}

// unwrapFence strips a ```json ... ``` fence if present, otherwise strips
// a bare ``` fence and a leading "json" language tag.
func unwrapFence(message string) string {
	if idx := strings.Index(message, "```json"); idx != -1 {
		start := idx + len("```json")
		rest := message[start:]
		if end := strings.Index(rest, "```"); end != -1 {
			return rest[:end]
		}
		return rest
	}

	trimmed := message
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimPrefix(trimmed, "json")
	return trimmed
}

// extractYAMLFence returns the interior of a ```yaml fenced block, if one
// is present. Planner prompts built from the JSON5 template layer sometimes
// echo YAML back; every JSON document is valid YAML, so this is checked
// ahead of the JSON path rather than folded into it.
func extractYAMLFence(message string) (string, bool) {
	idx := strings.Index(message, "```yaml")
	if idx == -1 {
		return "", false
	}
	start := idx + len("```yaml")
	rest := message[start:]
	end := strings.Index(rest, "```")
	if end == -1 {
		return rest, true
	}
	return rest[:end], true
}

func fromYAML(body string) (*Envelope, bool) {
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(body), &raw); err != nil || len(raw) == 0 {
		return nil, false
	}
	fields := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		encoded, err := json.Marshal(v)
		if err != nil {
			continue
		}
		fields[k] = encoded
	}
	return fromRawFields(fields)
}

func fromRawFields(fields map[string]json.RawMessage) (*Envelope, bool) {
	if len(fields) == 0 {
		return nil, false
	}
	env := &Envelope{TargetHelper: NotApplicable}

	if raw, ok := fields["plan"]; ok {
		var plan []string
		if err := json.Unmarshal(raw, &plan); err == nil {
			env.Plan = plan
		} else {
			var single string
			if err := json.Unmarshal(raw, &single); err == nil && single != "" {
				env.Plan = []string{single}
			}
		}
	}
	if raw, ok := fields["next_step"]; ok {
		_ = json.Unmarshal(raw, &env.NextStep)
	}
	if raw, ok := fields["terminate"]; ok {
		var term string
		_ = json.Unmarshal(raw, &term)
		env.Terminate = normalizeTerminate(term)
	}
	if raw, ok := fields["final_response"]; ok {
		_ = json.Unmarshal(raw, &env.FinalResponse)
	}
	if raw, ok := fields["is_assert"]; ok {
		_ = json.Unmarshal(raw, &env.IsAssert)
	}
	if raw, ok := fields["assert_summary"]; ok {
		_ = json.Unmarshal(raw, &env.AssertSummary)
	}
	if raw, ok := fields["is_passed"]; ok {
		_ = json.Unmarshal(raw, &env.IsPassed)
	}
	if raw, ok := fields["target_helper"]; ok {
		var helper string
		if err := json.Unmarshal(raw, &helper); err == nil && helper != "" {
			env.TargetHelper = helper
		}
	}

	if env.Terminate == "" {
		env.Terminate = "no"
	}
	return env, true
}

// parseByKeywords locates the substrings "plan", "next_step", "terminate"
// and "final_response" in order and slices the text between consecutive
// keywords as the respective field value.
func parseByKeywords(message string) (*Envelope, bool) {
	env := &Envelope{TargetHelper: NotApplicable}
	found := false

	if planIdx := strings.Index(message, "plan"); planIdx != -1 {
		if nextIdx := strings.Index(message, "next_step"); nextIdx != -1 {
			start := planIdx + len("plan")
			if start < nextIdx {
				env.Plan = splitPlan(cleanField(message[start:nextIdx]))
				found = true
			}
		}
	}

	if nextIdx := strings.Index(message, "next_step"); nextIdx != -1 {
		if termIdx := strings.Index(message, "terminate"); termIdx != -1 {
			start := nextIdx + len("next_step")
			if start < termIdx {
				env.NextStep = cleanField(message[start:termIdx])
				found = true
			}
		}
	}

	termIdx := strings.Index(message, "terminate")
	finalIdx := strings.Index(message, "final_response")
	switch {
	case termIdx != -1 && finalIdx != -1:
		start := termIdx + len("terminate")
		if start < finalIdx {
			matched := cleanField(message[start:finalIdx])
			env.Terminate = normalizeTerminate(matched)
			found = true
		}
		start = finalIdx + len("final_response")
		if start <= len(message) {
			env.FinalResponse = cleanField(message[start:])
		}
	case termIdx != -1:
		matched := cleanField(message[termIdx+len("terminate"):])
		env.Terminate = normalizeTerminate(matched)
		found = true
	}

	if !found {
		return nil, false
	}
	if env.Terminate == "" {
		env.Terminate = "no"
	}
	return env, true
}

func cleanField(s string) string {
	s = strings.ReplaceAll(s, `"`, "")
	return strings.TrimSpace(strings.Trim(s, ":, "))
}

func splitPlan(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeTerminate(s string) string {
	if strings.Contains(strings.ToLower(s), "yes") {
		return "yes"
	}
	return "no"
}
