package chat

import (
	"encoding/json"
	"strings"

	"github.com/soyeahso/creatorpilot/internal/domain"
	"github.com/tidwall/gjson"
)

// TurnsFromHistory rebuilds a transcript from the server's flat message log.
//
// System messages are dropped. Each assistant message absorbs the tool
// messages that immediately follow it and emits them as tool turns, in
// order, before its own text turn; the text turn is skipped when the
// content is blank. Tool messages are matched to the function the
// assistant invoked by tool_call_id, falling back to "unknown". Tool
// content that is not a JSON object degrades to a plain tool turn carrying
// the raw text.
func TurnsFromHistory(msgs []domain.RawMessage) []domain.Turn {
	return turnsFromHistory(msgs, nil)
}

func turnsFromHistory(msgs []domain.RawMessage, onUnknown func(toolCallID string)) []domain.Turn {
	visible := make([]domain.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != domain.RoleSystem {
			visible = append(visible, m)
		}
	}

	turns := make([]domain.Turn, 0, len(visible))
	for i := 0; i < len(visible); {
		m := visible[i]
		switch m.Role {
		case domain.RoleUser:
			turns = append(turns, domain.UserTurn(m.Content))
			i++

		case domain.RoleAssistant:
			j := i + 1
			for ; j < len(visible) && visible[j].Role == domain.RoleTool; j++ {
				turns = append(turns, toolTurn(m, visible[j], onUnknown))
			}
			if strings.TrimSpace(m.Content) != "" {
				turns = append(turns, domain.AssistantTurn(m.Content))
			}
			i = j

		default:
			turns = append(turns, domain.Turn{Role: m.Role, Content: m.Content})
			i++
		}
	}
	return turns
}

func toolTurn(assistant, tool domain.RawMessage, onUnknown func(string)) domain.Turn {
	name, ok := assistant.FunctionNameFor(tool.ToolCallID)
	if !ok {
		name = domain.UnknownFunction
		if onUnknown != nil {
			onUnknown(tool.ToolCallID)
		}
	}

	result, ok := parseToolResult(tool.Content)
	if !ok {
		return domain.RawToolTurn(tool.Content)
	}

	return domain.ToolTurn(domain.ToolCall{
		ID:           tool.ToolCallID,
		FunctionName: name,
		Result:       result,
	})
}

// parseToolResult reads content as a result envelope. Any valid JSON object
// qualifies; envelope fields of unexpected types are coerced rather than
// rejected.
func parseToolResult(content string) (domain.ToolResult, bool) {
	trimmed := strings.TrimSpace(content)
	if !gjson.Valid(trimmed) {
		return domain.ToolResult{}, false
	}
	env := gjson.Parse(trimmed)
	if !env.IsObject() {
		return domain.ToolResult{}, false
	}

	res := domain.ToolResult{Success: env.Get("success").Bool()}
	if data := env.Get("data"); data.Exists() && data.Type != gjson.Null {
		res.Data = json.RawMessage(data.Raw)
	}
	res.Error = envelopeError(env.Get("error"))
	return res, true
}

// envelopeError flattens the error field: a string as is, an object by its
// message, anything else as raw JSON.
func envelopeError(e gjson.Result) string {
	switch {
	case !e.Exists() || e.Type == gjson.Null:
		return ""
	case e.Type == gjson.String:
		return e.String()
	case e.IsObject() && e.Get("message").Type == gjson.String:
		return e.Get("message").String()
	default:
		return e.Raw
	}
}

func countVisible(msgs []domain.RawMessage) int {
	n := 0
	for _, m := range msgs {
		if m.Role != domain.RoleSystem {
			n++
		}
	}
	return n
}
