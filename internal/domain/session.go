package domain

import (
	"slices"
	"time"
)

// Session is a point-in-time view of the reconciled transcript.
type Session struct {
	ConversationID string `json:"conversationId,omitempty"` // empty until the backend assigns one
	Turns          []Turn `json:"turns"`
	LoadingHistory bool   `json:"loadingHistory"`
	Sending        bool   `json:"sending"`
}

// HasConversation reports whether a conversation id has been assigned.
func (s Session) HasConversation() bool {
	return s.ConversationID != ""
}

// Clone returns a copy that shares no slice storage with s.
func (s Session) Clone() Session {
	c := s
	c.Turns = slices.Clone(s.Turns)
	return c
}

// Conversation is the raw server-side message log for one conversation.
type Conversation struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Messages  []RawMessage `json:"messages,omitempty"`
}
