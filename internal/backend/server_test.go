package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/soyeahso/creatorpilot/internal/api"
	"github.com/soyeahso/creatorpilot/internal/chat"
	"github.com/soyeahso/creatorpilot/internal/config"
	"github.com/soyeahso/creatorpilot/internal/domain"
	"github.com/soyeahso/creatorpilot/internal/hooks"
	"github.com/soyeahso/creatorpilot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, token string) (*Server, *httptest.Server) {
	t.Helper()
	t.Setenv("CREATORPILOT_SERVER_TOKEN", "")
	catalog := seededCatalog(t, NewMemoryCreators())
	s := New(config.ServerConfig{Token: token}, store.NewMemoryConversationStore(), catalog, testLog())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func postMessage(t *testing.T, url, token string, req domain.SendMessageRequest) (*http.Response, domain.SendMessageResponse) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	httpReq, err := http.NewRequest(http.MethodPost, url+"/chat/message", bytes.NewReader(body))
	require.NoError(t, err)
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out domain.SendMessageResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	_, ts := testServer(t, "secret")

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	var h healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, "ok", h.Status)
}

func TestAuthRequired(t *testing.T) {
	_, ts := testServer(t, "secret")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer secret", http.StatusOK},
		{"scheme case", "bearer secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, ts.URL+"/campaigns", nil)
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestSendMessage_Validation(t *testing.T) {
	_, ts := testServer(t, "")

	resp, _ := postMessage(t, ts.URL, "", domain.SendMessageRequest{Message: "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	raw, err := http.Post(ts.URL+"/chat/message", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestSendMessage_LogsConversation(t *testing.T) {
	s, ts := testServer(t, "")

	resp, out := postMessage(t, ts.URL, "", domain.SendMessageRequest{Message: "find skincare creators"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, out.ConversationID)
	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, domain.ToolDiscoverCreators, out.ToolCalls[0].FunctionName)
	assert.True(t, out.ToolCalls[0].Result.Success)
	assert.False(t, out.IsError)

	conv, err := s.conversations.Get(out.ConversationID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 5)
	assert.Equal(t, domain.RoleSystem, conv.Messages[0].Role)
	assert.Equal(t, domain.RoleUser, conv.Messages[1].Role)
	assert.Equal(t, domain.RoleAssistant, conv.Messages[2].Role)
	require.Len(t, conv.Messages[2].ToolCalls, 1)
	assert.Equal(t, out.ToolCalls[0].ID, conv.Messages[2].ToolCalls[0].ID)
	assert.Equal(t, domain.RoleTool, conv.Messages[3].Role)
	assert.Equal(t, out.ToolCalls[0].ID, conv.Messages[3].ToolCallID)
	assert.Equal(t, domain.AssistantTurn(out.Message), domain.Turn{Role: conv.Messages[4].Role, Content: conv.Messages[4].Content})

	// follow-up in the same conversation
	_, out2 := postMessage(t, ts.URL, "", domain.SendMessageRequest{Message: "list campaigns", ConversationID: out.ConversationID})
	assert.Equal(t, out.ConversationID, out2.ConversationID)
}

func TestSendMessage_UnknownConversationStartsNew(t *testing.T) {
	_, ts := testServer(t, "")
	_, out := postMessage(t, ts.URL, "", domain.SendMessageRequest{Message: "hi", ConversationID: "gone"})
	assert.NotEmpty(t, out.ConversationID)
	assert.NotEqual(t, "gone", out.ConversationID)
	assert.Equal(t, helpReply, out.Message)
	assert.Empty(t, out.ToolCalls)
}

type failingAppendStore struct {
	*store.MemoryConversationStore
	failAfter int
	calls     int
}

func (f *failingAppendStore) Append(id string, msgs ...domain.RawMessage) error {
	f.calls++
	if f.calls > f.failAfter {
		return assert.AnError
	}
	return f.MemoryConversationStore.Append(id, msgs...)
}

func TestSendMessage_SaveFailureIsErrorReply(t *testing.T) {
	// the system prompt append succeeds, the turn append fails
	conversations := &failingAppendStore{MemoryConversationStore: store.NewMemoryConversationStore(), failAfter: 1}
	s := New(config.ServerConfig{}, conversations, seededCatalog(t, NewMemoryCreators()), testLog(), WithToken(""))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, out := postMessage(t, ts.URL, "", domain.SendMessageRequest{Message: "list campaigns"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out.IsError)
	assert.Equal(t, saveFailedReply, out.Message)
}

func TestConversationEndpoints(t *testing.T) {
	_, ts := testServer(t, "")
	_, out := postMessage(t, ts.URL, "", domain.SendMessageRequest{Message: "list campaigns"})

	resp, err := http.Get(ts.URL + "/chat/conversation/" + out.ConversationID)
	require.NoError(t, err)
	var hist domain.ConversationHistory
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&hist))
	resp.Body.Close()
	assert.Len(t, hist.Messages, 5)

	del, err := http.NewRequest(http.MethodDelete, ts.URL+"/chat/conversation/"+out.ConversationID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(del)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.DefaultClient.Do(del)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/chat/conversation/" + out.ConversationID)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	catalog := seededCatalog(t, NewMemoryCreators())
	s := New(config.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}}, store.NewMemoryConversationStore(), catalog, testLog(), WithToken(""))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/chat/message", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestNotFound(t *testing.T) {
	_, ts := testServer(t, "")
	resp, err := http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResolveBindAddr(t *testing.T) {
	tests := []struct {
		cfg  config.ServerConfig
		want string
	}{
		{config.ServerConfig{Port: 8080, Bind: "loopback"}, "127.0.0.1:8080"},
		{config.ServerConfig{Port: 8080}, "127.0.0.1:8080"},
		{config.ServerConfig{Port: 9000, Bind: "lan"}, "0.0.0.0:9000"},
		{config.ServerConfig{Port: 9000, Bind: "custom", CustomBindHost: "10.0.0.5"}, "10.0.0.5:9000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveBindAddr(tt.cfg))
	}
}

func TestSafeEqual(t *testing.T) {
	assert.True(t, safeEqual("abc", "abc"))
	assert.False(t, safeEqual("abc", "abd"))
	assert.False(t, safeEqual("abc", "abcd"))
	assert.False(t, safeEqual("", "a"))
}

func TestRunEmitsLifecycleHooks(t *testing.T) {
	hm := hooks.NewManager(testLog())
	var mu sync.Mutex
	var events []string
	record := func(_ context.Context, p hooks.Payload) error {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, p.Event)
		return nil
	}
	hm.On(hooks.EventServerStart, "test", record)
	hm.On(hooks.EventServerStop, "test", record)

	s := New(config.ServerConfig{Port: 0, Bind: "loopback"}, store.NewMemoryConversationStore(),
		seededCatalog(t, NewMemoryCreators()), testLog(), WithHooks(hm), WithToken(""))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != "" }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{hooks.EventServerStart, hooks.EventServerStop}, events)
}

// TestReconcilerAgainstBackend drives the chat reconciler through the real
// API client against the reference backend.
func TestReconcilerAgainstBackend(t *testing.T) {
	_, ts := testServer(t, "secret")

	client := api.New(config.BackendConfig{BaseURL: ts.URL, Token: "secret", TimeoutSeconds: 5}, testLog())
	kv := store.NewMemoryKV()
	r := chat.NewReconciler(client, kv, testLog(), chat.WithGreeting("Hi!"))
	defer r.Close()

	ctx := context.Background()
	require.NoError(t, r.Initialize(ctx))
	assert.Equal(t, []domain.Turn{domain.AssistantTurn("Hi!")}, r.Turns())

	require.NoError(t, r.Send(ctx, `create a campaign "Summer Glow" for skincare with a $5k budget`))
	r.Wait()
	id := r.ConversationID()
	require.NotEmpty(t, id)

	// after the refetch the transcript mirrors the server log
	turns := r.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, domain.UserTurn(`create a campaign "Summer Glow" for skincare with a $5k budget`), turns[0])
	require.True(t, turns[1].IsStructured())
	assert.Equal(t, domain.ToolCreateCampaign, turns[1].ToolCall.FunctionName)
	assert.Equal(t, domain.RoleAssistant, turns[2].Role)

	require.NoError(t, r.Send(ctx, `run outreach for "Summer Glow"`))
	turns = r.Turns()
	require.Len(t, turns, 7)
	assert.Equal(t, domain.ToolBulkOutreach, turns[4].ToolCall.FunctionName)
	assert.Equal(t, domain.ToolBulkOutreach, turns[5].ToolCall.FunctionName)

	// a fresh reconciler rehydrates the same transcript
	r2 := chat.NewReconciler(client, kv, testLog(), chat.WithGreeting("Hi!"))
	defer r2.Close()
	require.NoError(t, r2.Initialize(ctx))
	assert.Equal(t, id, r2.ConversationID())
	assert.Equal(t, turns, r2.Turns())

	campaigns, err := client.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, domain.CampaignActive, campaigns[0].Status)

	r2.Clear(ctx)
	r2.Wait()
	_, err = client.GetConversation(ctx, id)
	assert.True(t, api.IsNotFound(err))
}
