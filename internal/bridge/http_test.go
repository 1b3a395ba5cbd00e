// ABOUTME: Tests for the webhook HTTP surface.
// ABOUTME: Covers the 400/200 contract, reply payloads, health, and middleware scoping.

package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/familiar-bridge/internal/chatevent"
)

// fakeService returns a canned reply for message events.
type fakeService struct {
	reply *chatevent.Reply
	seen  *chatevent.Message
}

func (f *fakeService) HandleEvent(_ context.Context, m *chatevent.Message) *chatevent.Reply {
	f.seen = m
	return f.reply
}

func newTestMux(svc EventHandler, webhook func(http.Handler) http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(svc, "1.2.3", nil).Register(mux, webhook)
	return mux
}

func postEvent(mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleEvent_MalformedJSONGets400(t *testing.T) {
	mux := newTestMux(&fakeService{}, nil)

	rec := postEvent(mux, `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid json"}`, rec.Body.String())
}

func TestHandleEvent_UnknownShapeAckedEmpty(t *testing.T) {
	mux := newTestMux(&fakeService{}, nil)

	rec := postEvent(mux, `{"type":"CARD_CLICKED"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestHandleEvent_MessageGetsReplyPayload(t *testing.T) {
	svc := &fakeService{reply: &chatevent.Reply{Text: "the answer"}}
	mux := newTestMux(svc, nil)

	rec := postEvent(mux, `{"type":"MESSAGE","space":{"name":"spaces/S"},"message":{"text":"q","sender":{"name":"users/1"}}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text":"the answer"}`, rec.Body.String())

	require.NotNil(t, svc.seen)
	assert.Equal(t, "spaces/S", svc.seen.Space)
}

func TestHandleEvent_NilReplyAckedEmpty(t *testing.T) {
	mux := newTestMux(&fakeService{reply: nil}, nil)

	rec := postEvent(mux, `{"type":"REMOVED_FROM_SPACE","space":{"name":"spaces/S"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestHandleHealth(t *testing.T) {
	mux := newTestMux(&fakeService{}, nil)

	for _, path := range []string{"/", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, path)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "alive", body["status"])
		assert.Equal(t, "1.2.3", body["version"])
	}
}

func TestRegister_MiddlewareWrapsOnlyWebhook(t *testing.T) {
	deny := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"nope"}`, http.StatusUnauthorized)
		})
	}
	mux := newTestMux(&fakeService{}, deny)

	rec := postEvent(mux, `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	healthRec := httptest.NewRecorder()
	mux.ServeHTTP(healthRec, req)
	assert.Equal(t, http.StatusOK, healthRec.Code, "health must stay open for probes")
}
