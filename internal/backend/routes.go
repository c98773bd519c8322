package backend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/soyeahso/creatorpilot/internal/domain"
	"github.com/soyeahso/creatorpilot/internal/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// saveFailedReply is returned, flagged as an error, when a processed
// message could not be written to the conversation log.
const saveFailedReply = "Sorry, I couldn't save this conversation. Please try again."

// registerRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /chat/message", s.handleSendMessage)
	mux.HandleFunc("GET /chat/conversation/{id}", s.handleGetConversation)
	mux.HandleFunc("DELETE /chat/conversation/{id}", s.handleDeleteConversation)
	mux.HandleFunc("GET /campaigns", s.handleListCampaigns)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: s.version,
		Uptime:  s.uptime().String(),
	})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req domain.SendMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	s.chatMu.Lock()
	defer s.chatMu.Unlock()

	conv, err := s.openConversation(req.ConversationID)
	if err != nil {
		s.log.Error().Err(err).Str("conversation", req.ConversationID).Msg("opening conversation")
		writeError(w, http.StatusInternalServerError, "could not open conversation")
		return
	}

	answer := s.assistant.Respond(r.Context(), req.Message)

	msgs := []domain.RawMessage{{Role: domain.RoleUser, Content: req.Message}}
	resp := domain.SendMessageResponse{
		Message:        answer.Reply,
		ToolCalls:      []domain.ToolCall{},
		ConversationID: conv.ID,
	}
	for _, step := range answer.Steps {
		assistant := domain.RawMessage{Role: domain.RoleAssistant}
		var results []domain.RawMessage
		for _, call := range step {
			assistant.ToolCalls = append(assistant.ToolCalls, domain.RawToolCall{
				ID:       call.ID,
				Type:     "function",
				Function: domain.RawFunctionCall{Name: call.Name, Arguments: call.Arguments},
			})
			content, _ := json.Marshal(call.Result)
			results = append(results, domain.RawMessage{Role: domain.RoleTool, ToolCallID: call.ID, Content: string(content)})
			resp.ToolCalls = append(resp.ToolCalls, domain.ToolCall{ID: call.ID, FunctionName: call.Name, Result: call.Result})
		}
		msgs = append(msgs, assistant)
		msgs = append(msgs, results...)
	}
	if answer.Reply != "" {
		msgs = append(msgs, domain.RawMessage{Role: domain.RoleAssistant, Content: answer.Reply})
	}

	if err := s.conversations.Append(conv.ID, msgs...); err != nil {
		s.log.Error().Err(err).Str("conversation", conv.ID).Msg("appending to conversation")
		writeJSON(w, http.StatusOK, domain.SendMessageResponse{
			Message:        saveFailedReply,
			ToolCalls:      []domain.ToolCall{},
			ConversationID: conv.ID,
			IsError:        true,
		})
		return
	}

	s.log.Debug().
		Str("conversation", conv.ID).
		Int("toolCalls", len(resp.ToolCalls)).
		Msg("message answered")
	writeJSON(w, http.StatusOK, resp)
}

// openConversation returns the conversation with id, or a new one seeded
// with the system prompt when id is empty or unknown.
func (s *Server) openConversation(id string) (domain.Conversation, error) {
	if id != "" {
		conv, err := s.conversations.Get(id)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return domain.Conversation{}, err
		}
		s.log.Info().Str("conversation", id).Msg("unknown conversation, starting a new one")
	}

	conv, err := s.conversations.Create()
	if err != nil {
		return domain.Conversation{}, err
	}
	if err := s.conversations.Append(conv.ID, domain.RawMessage{Role: domain.RoleSystem, Content: SystemPrompt}); err != nil {
		return domain.Conversation{}, err
	}
	s.log.Info().Str("conversation", conv.ID).Msg("conversation created")
	return conv, nil
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	conv, err := s.conversations.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("conversation", id).Msg("loading conversation")
		writeError(w, http.StatusInternalServerError, "could not load conversation")
		return
	}

	msgs := conv.Messages
	if msgs == nil {
		msgs = []domain.RawMessage{}
	}
	writeJSON(w, http.StatusOK, domain.ConversationHistory{Messages: msgs})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.conversations.Delete(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("conversation", id).Msg("deleting conversation")
		writeError(w, http.StatusInternalServerError, "could not delete conversation")
		return
	}
	s.log.Info().Str("conversation", id).Msg("conversation deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": s.catalog.Campaigns()})
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
