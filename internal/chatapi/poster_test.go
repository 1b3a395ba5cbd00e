// ABOUTME: Tests for the Chat reply poster.
// ABOUTME: Points the generated client at an httptest server and inspects the create calls.

package chatapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// capturedRequest records what the fake Chat API received.
type capturedRequest struct {
	path        string
	replyOption string
	body        map[string]any
}

func newTestPoster(t *testing.T, status int) (*Poster, *capturedRequest) {
	t.Helper()

	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.replyOption = r.URL.Query().Get("messageReplyOption")
		_ = json.NewDecoder(r.Body).Decode(&captured.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "spaces/AAA/messages/NEW"})
	}))
	t.Cleanup(srv.Close)

	p, err := New(t.Context(), "", nil,
		option.WithoutAuthentication(),
		option.WithEndpoint(srv.URL),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return p, captured
}

func TestPostReply_Threaded(t *testing.T) {
	p, captured := newTestPoster(t, http.StatusOK)

	err := p.PostReply(t.Context(), "spaces/AAA", "spaces/AAA/threads/TTT", "the answer")
	require.NoError(t, err)

	assert.Equal(t, "/v1/spaces/AAA/messages", captured.path)
	assert.Equal(t, "REPLY_MESSAGE_FALLBACK_TO_NEW_THREAD", captured.replyOption)
	assert.Equal(t, "the answer", captured.body["text"])

	thread, ok := captured.body["thread"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "spaces/AAA/threads/TTT", thread["name"])
}

func TestPostReply_Unthreaded(t *testing.T) {
	p, captured := newTestPoster(t, http.StatusOK)

	err := p.PostReply(t.Context(), "spaces/DM", "", "hi")
	require.NoError(t, err)

	assert.Equal(t, "/v1/spaces/DM/messages", captured.path)
	assert.Empty(t, captured.replyOption)
	assert.NotContains(t, captured.body, "thread")
}

func TestPostReply_APIError(t *testing.T) {
	p, _ := newTestPoster(t, http.StatusForbidden)

	err := p.PostReply(t.Context(), "spaces/AAA", "", "hi")
	assert.Error(t, err)
}

func TestNew_MissingCredentialsFile(t *testing.T) {
	_, err := New(t.Context(), "/nonexistent/creds.json", nil)
	assert.Error(t, err)
}
