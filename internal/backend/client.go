// ABOUTME: REST client for the conversational-AI backend's user/conversation/message endpoints.
// ABOUTME: Single best-effort calls with a fixed timeout; no retry policy.

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Backend errors
var (
	// ErrConversationNotFound means no conversation exists for the external key.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrUnauthorized means the API key was rejected.
	ErrUnauthorized = errors.New("backend rejected api key")
)

const defaultTimeout = 30 * time.Second

// Config holds backend client settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the conversational-AI backend.
type Client struct {
	http *resty.Client
}

// NewClient creates a backend client with the API key attached to every
// request.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-API-Key", cfg.APIKey)

	return &Client{http: cli}
}

type userRequest struct {
	ExternalID  string `json:"external_id"`
	DisplayName string `json:"display_name,omitempty"`
}

type userResponse struct {
	ID string `json:"id"`
}

// EnsureUser creates (or returns) the backend user for a chat sender.
// The endpoint is idempotent by external ID.
func (c *Client) EnsureUser(ctx context.Context, externalID, displayName string) (string, error) {
	var out userResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(userRequest{ExternalID: externalID, DisplayName: displayName}).
		SetResult(&out).
		Post("/v1/users")
	if err != nil {
		return "", fmt.Errorf("ensure user request: %w", err)
	}
	if err := mapError(resp); err != nil {
		return "", fmt.Errorf("ensure user: %w", err)
	}
	return out.ID, nil
}

type conversationResponse struct {
	ID string `json:"id"`
}

// FindConversation looks up a conversation by its external key.
// Returns ErrConversationNotFound when the backend has no record for it.
func (c *Client) FindConversation(ctx context.Context, key string) (string, error) {
	var out conversationResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("external_key", key).
		SetResult(&out).
		Get("/v1/conversations")
	if err != nil {
		return "", fmt.Errorf("find conversation request: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return "", ErrConversationNotFound
	}
	if err := mapError(resp); err != nil {
		return "", fmt.Errorf("find conversation: %w", err)
	}
	return out.ID, nil
}

type createConversationRequest struct {
	ExternalKey string `json:"external_key"`
	UserID      string `json:"user_id"`
	Title       string `json:"title,omitempty"`
}

// CreateConversation starts a new backend conversation addressed by the
// external key.
func (c *Client) CreateConversation(ctx context.Context, key, userID, title string) (string, error) {
	var out conversationResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(createConversationRequest{ExternalKey: key, UserID: userID, Title: title}).
		SetResult(&out).
		Post("/v1/conversations")
	if err != nil {
		return "", fmt.Errorf("create conversation request: %w", err)
	}
	if err := mapError(resp); err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	return out.ID, nil
}

type sendMessageRequest struct {
	Text   string `json:"text"`
	Sender string `json:"sender,omitempty"`
}

type sendMessageResponse struct {
	Reply struct {
		Text string `json:"text"`
	} `json:"reply"`
}

// SendMessage posts a user message into a conversation and returns the AI
// reply text. This blocks until the backend has generated the reply.
func (c *Client) SendMessage(ctx context.Context, conversationID, sender, text string) (string, error) {
	var out sendMessageResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{Text: text, Sender: sender}).
		SetResult(&out).
		Post("/v1/conversations/" + conversationID + "/messages")
	if err != nil {
		return "", fmt.Errorf("send message request: %w", err)
	}
	if err := mapError(resp); err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return out.Reply.Text, nil
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Error string `json:"error"`
}

// mapError translates non-2xx responses into errors, preferring the
// backend's own error message when the body carries one.
func mapError(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		return ErrUnauthorized
	}

	body := strings.TrimSpace(string(resp.Body()))
	var eb errorBody
	if err := json.Unmarshal([]byte(body), &eb); err == nil && eb.Error != "" {
		return fmt.Errorf("backend status %d: %s", resp.StatusCode(), eb.Error)
	}
	return fmt.Errorf("backend status %d: %s", resp.StatusCode(), body)
}
