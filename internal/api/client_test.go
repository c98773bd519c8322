package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soyeahso/creatorpilot/internal/config"
	"github.com/soyeahso/creatorpilot/internal/domain"
	"github.com/soyeahso/creatorpilot/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, h http.Handler, mutate ...func(*config.BackendConfig)) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.BackendConfig{BaseURL: srv.URL + "/", TimeoutSeconds: 5, Retries: 2}
	for _, m := range mutate {
		m(&cfg)
	}
	return New(cfg, logging.New(nil, "silent"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestSendMessage(t *testing.T) {
	var gotReq domain.SendMessageRequest
	var gotHeaders http.Header

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/message", r.URL.Path)
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		writeJSON(w, http.StatusOK, domain.SendMessageResponse{
			Message:        "Here are your campaigns",
			ConversationID: "conv-1",
			ToolCalls: []domain.ToolCall{{
				ID: "call_1", FunctionName: domain.ToolListCampaigns,
				Result: domain.ToolResult{Success: true, Data: json.RawMessage(`{"campaigns":[]}`)},
			}},
		})
	}), func(cfg *config.BackendConfig) { cfg.Token = "secret-token" })

	resp, err := c.SendMessage(context.Background(), domain.SendMessageRequest{Message: "show campaigns"})
	require.NoError(t, err)

	assert.Equal(t, "show campaigns", gotReq.Message)
	assert.Empty(t, gotReq.ConversationID)
	assert.Equal(t, "Bearer secret-token", gotHeaders.Get("Authorization"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.NotEmpty(t, gotHeaders.Get(RequestIDHeader))
	assert.Contains(t, gotHeaders.Get("User-Agent"), "creatorpilot/")

	assert.Equal(t, "conv-1", resp.ConversationID)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, domain.ToolListCampaigns, resp.ToolCalls[0].FunctionName)
}

func TestNoTokenNoAuthorization(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, Health{Status: "ok"})
	}))

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
}

func TestPostIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := c.SendMessage(context.Background(), domain.SendMessageRequest{Message: "hi"})
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "/chat/message", se.Path)
	assert.Contains(t, se.Body, "boom")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetIsRetried(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, domain.ConversationHistory{Messages: []domain.RawMessage{
			{Role: domain.RoleUser, Content: "hello"},
		}})
	}))

	hist, err := c.GetConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, hist.Messages, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "still down", http.StatusBadGateway)
	}), func(cfg *config.BackendConfig) { cfg.Retries = 1 })

	_, err := c.GetConversation(context.Background(), "conv-1")
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDeleteConversationNotFound(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/chat/conversation/conv%2F1", r.URL.EscapedPath())
		http.NotFound(w, r)
	}))

	err := c.DeleteConversation(context.Background(), "conv/1")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestDeleteConversationNoContent(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	require.NoError(t, c.DeleteConversation(context.Background(), "conv-1"))
}

func TestListCampaigns(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/campaigns", r.URL.Path)
		writeJSON(w, http.StatusOK, CampaignList{Campaigns: []domain.Campaign{
			{ID: "c1", Name: "Spring Launch", Status: domain.CampaignActive, Budget: 15000},
		}})
	}))

	campaigns, err := c.ListCampaigns(context.Background())
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, "Spring Launch", campaigns[0].Name)
}

func TestDecodeError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{not json"))
	}))

	_, err := c.ListCampaigns(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding GET /campaigns")
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(config.BackendConfig{BaseURL: url, TimeoutSeconds: 1}, logging.New(nil, "silent"))
	_, err := c.SendMessage(context.Background(), domain.SendMessageRequest{Message: "hi"})
	require.Error(t, err)

	var se *StatusError
	assert.False(t, errors.As(err, &se))
}

func TestContextCancelled(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.SendMessage(ctx, domain.SendMessageRequest{Message: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{Method: "GET", Path: "/x", StatusCode: 404, Body: "missing\n"}
	assert.Equal(t, "GET /x: 404 Not Found: missing", err.Error())

	err = &StatusError{Method: "POST", Path: "/y", StatusCode: 500}
	assert.Equal(t, "POST /y: 500 Internal Server Error", err.Error())
}

func TestBaseURLTrimmed(t *testing.T) {
	c := New(config.BackendConfig{BaseURL: "http://example.com/api/"}, logging.New(nil, "silent"))
	assert.Equal(t, "http://example.com/api", c.BaseURL())
}
