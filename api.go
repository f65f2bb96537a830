package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Typed backend errors the UI maps to user-facing notices.
var (
	ErrUnauthorized = errors.New("not authorized, run /login")
	ErrNoSession    = errors.New("no active session")
)

// CredentialFunc produces the bearer token for a request. Returning an empty
// token sends the request unauthenticated.
type CredentialFunc func(ctx context.Context) (string, error)

// APIClient talks to the assistant backend: session lifecycle plus the
// streaming chat endpoint.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	credential CredentialFunc
}

// NewAPIClient creates a client for the given base URL. The client's Timeout
// is left zero; per-turn deadlines ride the request context so that a
// cancelled turn aborts a blocked body read.
func NewAPIClient(baseURL string, credential CredentialFunc) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		credential: credential,
	}
}

// RemoteSession is one entry from the backend session listing.
type RemoteSession struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

type chatRequest struct {
	Message      string `json:"message"`
	SessionID    string `json:"sessionId,omitempty"`
	IsDeepSearch bool   `json:"isDeepSearch"`
}

// CreateSession asks the backend for a fresh conversation session and
// returns its id.
func (c *APIClient) CreateSession(ctx context.Context) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/chat/session", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("create session: decode response: %w", err)
	}
	if body.SessionID == "" {
		return "", errors.New("create session: empty session id")
	}
	return body.SessionID, nil
}

// StreamMessage sends one user turn into an existing session and returns the
// answer stream. The caller owns the returned body and must close it.
func (c *APIClient) StreamMessage(ctx context.Context, sessionID, message string, deepSearch bool) (io.ReadCloser, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	return c.stream(ctx, "/api/chat", chatRequest{
		Message:      message,
		SessionID:    sessionID,
		IsDeepSearch: deepSearch,
	}, nil)
}

// NewConversation sends a turn without a session; the backend creates one and
// returns its id in the X-Session-Id header ahead of the stream.
func (c *APIClient) NewConversation(ctx context.Context, message string, deepSearch bool) (string, io.ReadCloser, error) {
	var sessionID string
	body, err := c.stream(ctx, "/api/chat/new", chatRequest{
		Message:      message,
		IsDeepSearch: deepSearch,
	}, func(resp *http.Response) {
		sessionID = resp.Header.Get("X-Session-Id")
	})
	if err != nil {
		return "", nil, err
	}
	if sessionID == "" {
		body.Close()
		return "", nil, errors.New("new conversation: missing X-Session-Id header")
	}
	return sessionID, body, nil
}

// ListSessions fetches the remote session listing, newest first.
func (c *APIClient) ListSessions(ctx context.Context) ([]RemoteSession, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/chat/sessions", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var sessions []RemoteSession
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		return nil, fmt.Errorf("list sessions: decode response: %w", err)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

func (c *APIClient) stream(ctx context.Context, path string, body chatRequest, onResponse func(*http.Response)) (io.ReadCloser, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	if onResponse != nil {
		onResponse(resp)
	}
	return resp.Body, nil
}

func (c *APIClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("bad backend URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.credential != nil {
		token, err := c.credential(ctx)
		if err != nil {
			return nil, fmt.Errorf("credential: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// checkStatus maps non-2xx responses to errors, extracting the backend's
// {"error": "..."} body when present.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	msg := readErrorBody(resp.Body)
	if msg == "" {
		msg = resp.Status
	}
	return fmt.Errorf("backend error (%d): %s", resp.StatusCode, msg)
}

func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		slog.Debug("api.error_body_unparsed", "body", truncateForLog(string(data)))
		return ""
	}
	return body.Error
}
