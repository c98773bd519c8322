// Package api is the HTTP client for the campaign backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"

	"github.com/soyeahso/creatorpilot/internal/config"
	"github.com/soyeahso/creatorpilot/internal/domain"
	"github.com/soyeahso/creatorpilot/internal/logging"
	"github.com/soyeahso/creatorpilot/internal/version"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const maxErrorBody = 64 << 10

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if body := strings.TrimSpace(e.Body); body != "" {
		if len(body) > 200 {
			body = body[:200] + "..."
		}
		msg += ": " + body
	}
	return msg
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Client talks to the campaign backend over JSON/HTTP.
type Client struct {
	baseURL string
	once    *http.Client // non-idempotent requests, never retried
	retried *http.Client // GET and DELETE
	log     *logging.Logger
}

// New builds a client from the backend config section.
func New(cfg config.BackendConfig, log *logging.Logger) *Client {
	log = log.Sub("api")

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	var transport http.RoundTripper = cleanhttp.DefaultPooledTransport()
	if cfg.Token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"}),
			Base:   transport,
		}
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Transport: transport, Timeout: timeout}
	rc.RetryMax = max(cfg.Retries, 0)
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = leveledLogger{log: log}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		once:    &http.Client{Transport: transport, Timeout: timeout},
		retried: rc.StandardClient(),
		log:     log,
	}
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends body (JSON-encoded when non-nil) to path and decodes the JSON
// response into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	start := time.Now()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	reqID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set(RequestIDHeader, reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hc := c.once
	if method == http.MethodGet || method == http.MethodDelete {
		hc = c.retried
	}

	resp, err := hc.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Str("requestId", reqID).Msg("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("requestId", reqID).
		Dur("duration", time.Since(start)).
		Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// SendMessage posts a user message and returns the assistant's reply.
func (c *Client) SendMessage(ctx context.Context, req domain.SendMessageRequest) (domain.SendMessageResponse, error) {
	var resp domain.SendMessageResponse
	err := c.Do(ctx, http.MethodPost, "/chat/message", req, &resp)
	return resp, err
}

// GetConversation fetches the raw message log of a conversation.
func (c *Client) GetConversation(ctx context.Context, id string) (domain.ConversationHistory, error) {
	var hist domain.ConversationHistory
	err := c.Do(ctx, http.MethodGet, "/chat/conversation/"+url.PathEscape(id), nil, &hist)
	return hist, err
}

// DeleteConversation removes a conversation on the backend.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/chat/conversation/"+url.PathEscape(id), nil, nil)
}

// CampaignList is the body of GET /campaigns.
type CampaignList struct {
	Campaigns []domain.Campaign `json:"campaigns"`
}

// ListCampaigns returns every campaign visible to the caller.
func (c *Client) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	var list CampaignList
	if err := c.Do(ctx, http.MethodGet, "/campaigns", nil, &list); err != nil {
		return nil, err
	}
	return list.Campaigns, nil
}

// Health is the body of GET /health.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.Do(ctx, http.MethodGet, "/health", nil, &h)
	return h, err
}
