package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleConstants(t *testing.T) {
	assert.Equal(t, Role("user"), RoleUser)
	assert.Equal(t, Role("assistant"), RoleAssistant)
	assert.Equal(t, Role("tool"), RoleTool)
	assert.Equal(t, Role("system"), RoleSystem)
}

func TestTurnConstructors(t *testing.T) {
	u := UserTurn("hi")
	assert.Equal(t, RoleUser, u.Role)
	assert.Equal(t, "hi", u.Content)
	assert.Nil(t, u.ToolCall)

	a := AssistantTurn("hello")
	assert.Equal(t, RoleAssistant, a.Role)
	assert.Nil(t, a.ToolCall)

	call := ToolCall{ID: "c1", FunctionName: "list_campaigns", Result: ToolResult{Success: true}}
	tt := ToolTurn(call)
	require.NotNil(t, tt.ToolCall)
	assert.True(t, tt.IsStructured())
	assert.Equal(t, "list_campaigns", tt.ToolCall.FunctionName)

	// the turn owns its copy
	call.FunctionName = "mutated"
	assert.Equal(t, "list_campaigns", tt.ToolCall.FunctionName)

	raw := RawToolTurn("not json")
	assert.Equal(t, RoleTool, raw.Role)
	assert.False(t, raw.IsStructured())
	assert.Equal(t, "not json", raw.Content)
}

func TestTurnValidate(t *testing.T) {
	tests := []struct {
		name    string
		turn    Turn
		wantErr bool
	}{
		{"user", UserTurn("x"), false},
		{"assistant", AssistantTurn("x"), false},
		{"structured tool", ToolTurn(ToolCall{ID: "1", FunctionName: "bulk_outreach"}), false},
		{"degraded tool", RawToolTurn("oops"), false},
		{"empty role", Turn{Content: "x"}, true},
		{"user with tool call", Turn{Role: RoleUser, ToolCall: &ToolCall{FunctionName: "f"}}, true},
		{"assistant with tool call", Turn{Role: RoleAssistant, ToolCall: &ToolCall{FunctionName: "f"}}, true},
		{"tool call without name", Turn{Role: RoleTool, ToolCall: &ToolCall{ID: "1"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.turn.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTurn))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSessionClone(t *testing.T) {
	s := Session{ConversationID: "abc", Turns: []Turn{UserTurn("a")}}
	c := s.Clone()
	c.Turns[0].Content = "changed"
	assert.Equal(t, "a", s.Turns[0].Content)
	assert.True(t, s.HasConversation())
	assert.False(t, Session{}.HasConversation())
}

func TestSendMessageRequestOmitsEmptyConversation(t *testing.T) {
	data, err := json.Marshal(SendMessageRequest{Message: "hello"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"hello"}`, string(data))

	data, err = json.Marshal(SendMessageRequest{Message: "hello", ConversationID: "c-1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"hello","conversationId":"c-1"}`, string(data))
}

func TestSendMessageResponseDecode(t *testing.T) {
	body := `{
		"message": "Found 2 campaigns",
		"conversationId": "conv-9",
		"toolCalls": [
			{"id": "call_1", "functionName": "list_campaigns", "result": {"success": true, "data": {"campaigns": []}}}
		]
	}`

	var resp SendMessageResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, "Found 2 campaigns", resp.Message)
	assert.Equal(t, "conv-9", resp.ConversationID)
	assert.False(t, resp.IsError)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "list_campaigns", resp.ToolCalls[0].FunctionName)
	assert.True(t, resp.ToolCalls[0].Result.Success)
	assert.JSONEq(t, `{"campaigns": []}`, string(resp.ToolCalls[0].Result.Data))
}

func TestRawMessageDecode(t *testing.T) {
	body := `{"messages": [
		{"role": "assistant", "content": "", "tool_calls": [
			{"id": "call_a", "type": "function", "function": {"name": "discover_creators", "arguments": "{\"niche\":\"fitness\"}"}}
		]},
		{"role": "tool", "content": "{\"success\":true}", "tool_call_id": "call_a"}
	]}`

	var hist ConversationHistory
	require.NoError(t, json.Unmarshal([]byte(body), &hist))
	require.Len(t, hist.Messages, 2)

	name, ok := hist.Messages[0].FunctionNameFor("call_a")
	assert.True(t, ok)
	assert.Equal(t, "discover_creators", name)

	_, ok = hist.Messages[0].FunctionNameFor("call_b")
	assert.False(t, ok)

	assert.Equal(t, "call_a", hist.Messages[1].ToolCallID)
}
