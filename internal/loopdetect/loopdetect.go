// Package loopdetect decides whether a navigator's inner dialogue is stuck
// repeating the same tool call with no observable progress.
package loopdetect

import (
	"bytes"
	"encoding/json"

	"github.com/haasonsaas/orchestrator/pkg/models"
)

// repeatThreshold is the number of consecutive identical tool-call
// proposals required to declare a navigator stuck.
const repeatThreshold = 3

// Stuck scans messages from most recent backward and reports whether the
// last repeatThreshold tool-call proposals from the navigator are
// structurally identical, interleaved only with tool-result messages.
// A plain-text proposal or a distinct tool call breaks the streak.
func Stuck(messages []models.Message) bool {
	window := make([]string, 0, repeatThreshold)
	for i := len(messages) - 1; i >= 0 && len(window) < repeatThreshold; i-- {
		msg := messages[i]
		if msg.Role == models.RoleTool {
			continue
		}
		if len(msg.ToolCalls) == 0 {
			break
		}
		sig, ok := signature(msg.ToolCalls[0])
		if !ok {
			break
		}
		window = append(window, sig)
	}

	if len(window) < repeatThreshold {
		return false
	}
	first := window[0]
	for _, sig := range window[1:] {
		if sig != first {
			return false
		}
	}
	return true
}

func signature(call models.ToolCall) (string, bool) {
	compact, err := compactJSON(call.Input)
	if err != nil {
		return "", false
	}
	return call.Name + "|" + compact, true
}

func compactJSON(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}
	return buf.String(), nil
}
