package chat

import (
	"fmt"
	"testing"

	"github.com/soyeahso/creatorpilot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assistantWithCalls(content string, ids ...string) domain.RawMessage {
	m := domain.RawMessage{Role: domain.RoleAssistant, Content: content}
	for _, id := range ids {
		m.ToolCalls = append(m.ToolCalls, domain.RawToolCall{
			ID:       id,
			Type:     "function",
			Function: domain.RawFunctionCall{Name: "fn_" + id, Arguments: "{}"},
		})
	}
	return m
}

func toolMsg(id, content string) domain.RawMessage {
	return domain.RawMessage{Role: domain.RoleTool, ToolCallID: id, Content: content}
}

func TestTurnsFromHistory_ToolTurnsPrecedeAssistantText(t *testing.T) {
	for k := 0; k <= 5; k++ {
		for _, text := range []string{"Done!", "   "} {
			t.Run(fmt.Sprintf("k=%d text=%q", k, text), func(t *testing.T) {
				ids := make([]string, k)
				for i := range ids {
					ids[i] = fmt.Sprintf("call_%d", i)
				}

				msgs := []domain.RawMessage{
					{Role: domain.RoleSystem, Content: "system prompt"},
					{Role: domain.RoleUser, Content: "go"},
					assistantWithCalls(text, ids...),
				}
				for _, id := range ids {
					msgs = append(msgs, toolMsg(id, `{"success":true}`))
				}

				turns := TurnsFromHistory(msgs)

				wantLen := 1 + k
				if text == "Done!" {
					wantLen++
				}
				require.Len(t, turns, wantLen)
				assert.Equal(t, domain.UserTurn("go"), turns[0])

				for i := 0; i < k; i++ {
					tt := turns[1+i]
					require.True(t, tt.IsStructured())
					assert.Equal(t, ids[i], tt.ToolCall.ID)
					assert.Equal(t, "fn_"+ids[i], tt.ToolCall.FunctionName)
					assert.True(t, tt.ToolCall.Result.Success)
				}
				if text == "Done!" {
					assert.Equal(t, domain.AssistantTurn("Done!"), turns[len(turns)-1])
				}
			})
		}
	}
}

func TestTurnsFromHistory_Empty(t *testing.T) {
	assert.Empty(t, TurnsFromHistory(nil))
	assert.Empty(t, TurnsFromHistory([]domain.RawMessage{{Role: domain.RoleSystem, Content: "x"}}))
}

func TestTurnsFromHistory_MultipleSteps(t *testing.T) {
	msgs := []domain.RawMessage{
		{Role: domain.RoleUser, Content: "find creators"},
		assistantWithCalls("", "a"),
		toolMsg("a", `{"success":true,"data":{"creators":[]}}`),
		assistantWithCalls("Found none. Try another niche?", "b"),
		toolMsg("b", `{"success":false,"error":"quota"}`),
		{Role: domain.RoleUser, Content: "ok"},
		{Role: domain.RoleAssistant, Content: "Sure."},
	}

	turns := TurnsFromHistory(msgs)
	require.Len(t, turns, 6)

	assert.Equal(t, domain.RoleUser, turns[0].Role)
	assert.Equal(t, "fn_a", turns[1].ToolCall.FunctionName)
	assert.JSONEq(t, `{"creators":[]}`, string(turns[1].ToolCall.Result.Data))
	assert.Equal(t, "fn_b", turns[2].ToolCall.FunctionName)
	assert.False(t, turns[2].ToolCall.Result.Success)
	assert.Equal(t, "quota", turns[2].ToolCall.Result.Error)
	assert.Equal(t, domain.AssistantTurn("Found none. Try another niche?"), turns[3])
	assert.Equal(t, domain.UserTurn("ok"), turns[4])
	assert.Equal(t, domain.AssistantTurn("Sure."), turns[5])

	for _, tt := range turns {
		assert.NoError(t, tt.Validate())
	}
}

func TestTurnsFromHistory_SystemBetweenAssistantAndTool(t *testing.T) {
	msgs := []domain.RawMessage{
		assistantWithCalls("text", "a"),
		{Role: domain.RoleSystem, Content: "injected"},
		toolMsg("a", `{"success":true}`),
	}

	turns := TurnsFromHistory(msgs)
	require.Len(t, turns, 2)
	assert.True(t, turns[0].IsStructured())
	assert.Equal(t, domain.AssistantTurn("text"), turns[1])
}

func TestTurnsFromHistory_UnknownToolCallID(t *testing.T) {
	msgs := []domain.RawMessage{
		assistantWithCalls("", "a"),
		toolMsg("zzz", `{"success":true}`),
	}

	var unknown []string
	turns := turnsFromHistory(msgs, func(id string) { unknown = append(unknown, id) })

	require.Len(t, turns, 1)
	assert.Equal(t, domain.UnknownFunction, turns[0].ToolCall.FunctionName)
	assert.Equal(t, "zzz", turns[0].ToolCall.ID)
	assert.Equal(t, []string{"zzz"}, unknown)
}

func TestTurnsFromHistory_MatchesTriggeringAssistantOnly(t *testing.T) {
	msgs := []domain.RawMessage{
		assistantWithCalls("", "a"),
		toolMsg("a", `{"success":true}`),
		assistantWithCalls("", "b"),
		toolMsg("a", `{"success":true}`),
	}

	turns := TurnsFromHistory(msgs)
	require.Len(t, turns, 2)
	assert.Equal(t, "fn_a", turns[0].ToolCall.FunctionName)
	assert.Equal(t, domain.UnknownFunction, turns[1].ToolCall.FunctionName)
}

func TestTurnsFromHistory_GracefulJSONDegradation(t *testing.T) {
	for _, content := range []string{"not json at all", "{broken", "[1,2]", "42", `"str"`, ""} {
		t.Run(content, func(t *testing.T) {
			msgs := []domain.RawMessage{
				assistantWithCalls("after", "a"),
				toolMsg("a", content),
			}

			turns := TurnsFromHistory(msgs)
			require.Len(t, turns, 2)
			assert.Equal(t, domain.RoleTool, turns[0].Role)
			assert.Nil(t, turns[0].ToolCall)
			assert.Equal(t, content, turns[0].Content)
			assert.Equal(t, domain.AssistantTurn("after"), turns[1])
		})
	}
}

func TestTurnsFromHistory_LooseEnvelopeFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    domain.ToolResult
	}{
		{
			name:    "object error",
			content: `{"success":false,"error":{"message":"rate limited","code":429}}`,
			want:    domain.ToolResult{Error: "rate limited"},
		},
		{
			name:    "object error without message",
			content: `{"success":false,"error":{"code":429}}`,
			want:    domain.ToolResult{Error: `{"code":429}`},
		},
		{
			name:    "string success",
			content: `{"success":"true","data":{"a":1}}`,
			want:    domain.ToolResult{Success: true, Data: []byte(`{"a":1}`)},
		},
		{
			name:    "null error and data",
			content: `{"success":true,"data":null,"error":null}`,
			want:    domain.ToolResult{Success: true},
		},
		{
			name:    "numeric error",
			content: ` {"success":0,"error":500} `,
			want:    domain.ToolResult{Error: "500"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turns := TurnsFromHistory([]domain.RawMessage{
				assistantWithCalls("", "a"),
				toolMsg("a", tt.content),
			})

			require.Len(t, turns, 1)
			require.NotNil(t, turns[0].ToolCall)
			got := turns[0].ToolCall.Result
			assert.Equal(t, tt.want.Success, got.Success)
			assert.Equal(t, tt.want.Error, got.Error)
			if tt.want.Data == nil {
				assert.Nil(t, got.Data)
			} else {
				assert.JSONEq(t, string(tt.want.Data), string(got.Data))
			}
		})
	}
}

func TestTurnsFromHistory_OrphanAndOtherRoles(t *testing.T) {
	msgs := []domain.RawMessage{
		toolMsg("a", `{"success":true}`),
		{Role: "developer", Content: "note"},
		{Role: domain.RoleUser, Content: "hi"},
	}

	turns := TurnsFromHistory(msgs)
	require.Len(t, turns, 3)
	assert.Equal(t, domain.Turn{Role: domain.RoleTool, Content: `{"success":true}`}, turns[0])
	assert.Equal(t, domain.Turn{Role: "developer", Content: "note"}, turns[1])
	assert.Equal(t, domain.UserTurn("hi"), turns[2])
}

func TestTurnsFromHistory_AssistantTextKeptVerbatim(t *testing.T) {
	turns := TurnsFromHistory([]domain.RawMessage{{Role: domain.RoleAssistant, Content: "  padded  "}})
	require.Len(t, turns, 1)
	assert.Equal(t, "  padded  ", turns[0].Content)
}
