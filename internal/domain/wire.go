package domain

// SendMessageRequest is the body of POST /chat/message.
type SendMessageRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
}

// SendMessageResponse is the reply to POST /chat/message.
type SendMessageResponse struct {
	Message        string     `json:"message"`
	ToolCalls      []ToolCall `json:"toolCalls"`
	ConversationID string     `json:"conversationId"`
	IsError        bool       `json:"isError,omitempty"`
}

// ConversationHistory is the reply to GET /chat/conversation/{id}.
type ConversationHistory struct {
	Messages []RawMessage `json:"messages"`
}

// RawMessage is one record of the server's flat message log.
type RawMessage struct {
	Role       Role          `json:"role"`
	Content    string        `json:"content"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
	ToolCalls  []RawToolCall `json:"tool_calls,omitempty"`
}

// RawToolCall is a tool invocation recorded on an assistant message.
type RawToolCall struct {
	ID       string          `json:"id"`
	Type     string          `json:"type,omitempty"`
	Function RawFunctionCall `json:"function"`
}

// RawFunctionCall names the invoked function and its JSON-encoded arguments.
type RawFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// FunctionNameFor returns the function name of the tool call with the given
// id, or false when m issued no such call.
func (m RawMessage) FunctionNameFor(toolCallID string) (string, bool) {
	for _, tc := range m.ToolCalls {
		if tc.ID == toolCallID {
			return tc.Function.Name, true
		}
	}
	return "", false
}
