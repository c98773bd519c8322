package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// ErrInvalidTurn is returned by Turn.Validate.
var ErrInvalidTurn = errors.New("invalid turn")

// ToolResult is the success/data/error envelope a tool returns.
type ToolResult struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ToolCall is a completed tool invocation attached to a tool turn.
type ToolCall struct {
	ID           string     `json:"id"`
	FunctionName string     `json:"functionName"`
	Result       ToolResult `json:"result"`
}

// Turn is one entry in the chat transcript.
type Turn struct {
	Role     Role      `json:"role"`
	Content  string    `json:"content"`
	ToolCall *ToolCall `json:"toolCall,omitempty"`
}

func UserTurn(text string) Turn      { return Turn{Role: RoleUser, Content: text} }
func AssistantTurn(text string) Turn { return Turn{Role: RoleAssistant, Content: text} }

// ToolTurn wraps a structured tool call.
func ToolTurn(call ToolCall) Turn {
	c := call
	return Turn{Role: RoleTool, ToolCall: &c}
}

// RawToolTurn is a tool turn whose payload could not be decoded.
func RawToolTurn(content string) Turn {
	return Turn{Role: RoleTool, Content: content}
}

// IsStructured reports whether the turn carries a decoded tool call.
func (t Turn) IsStructured() bool {
	return t.Role == RoleTool && t.ToolCall != nil
}

// Validate checks that only tool turns carry tool calls.
func (t Turn) Validate() error {
	if t.Role == "" {
		return fmt.Errorf("%w: empty role", ErrInvalidTurn)
	}
	if t.ToolCall == nil {
		return nil
	}
	if t.Role != RoleTool {
		return fmt.Errorf("%w: %s turn carries a tool call", ErrInvalidTurn, t.Role)
	}
	if t.ToolCall.FunctionName == "" {
		return fmt.Errorf("%w: tool call %q has no function name", ErrInvalidTurn, t.ToolCall.ID)
	}
	return nil
}
