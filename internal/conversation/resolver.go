// ABOUTME: Resolver maps conversation keys to backend conversation IDs.
// ABOUTME: Lookup-or-create against the backend with an in-memory cache in front.

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/familiar-bridge/internal/backend"
)

// ConversationBackend defines what the resolver needs from the AI backend.
type ConversationBackend interface {
	EnsureUser(ctx context.Context, externalID, displayName string) (string, error)
	FindConversation(ctx context.Context, key string) (string, error)
	CreateConversation(ctx context.Context, key, userID, title string) (string, error)
}

// Resolver resolves derived conversation keys to remote conversation IDs.
// The cache is an optimization only: the backend owns the conversation
// records, so losing the cache just costs an extra lookup per key.
type Resolver struct {
	backend ConversationBackend
	logger  *slog.Logger

	mu    sync.RWMutex
	known map[string]string // key -> remote conversation ID
}

// NewResolver creates a Resolver. Pass nil logger for default.
func NewResolver(b ConversationBackend, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		backend: b,
		logger:  logger.With("component", "resolver"),
		known:   make(map[string]string),
	}
}

// Identity carries the chat-side identity used when a conversation has to
// be created on the backend.
type Identity struct {
	SenderID   string
	SenderName string
	Space      string
}

// Resolve returns the remote conversation ID for the given key, creating
// the backend user and conversation on first contact.
//
// Lookup order: local cache, then backend lookup by external key, then
// create. Two concurrent first-contact requests may both reach the create
// path; the backend keys conversations by external key, so the second
// create resolves to the same conversation.
func (r *Resolver) Resolve(ctx context.Context, key string, id Identity) (string, error) {
	r.mu.RLock()
	convID, ok := r.known[key]
	r.mu.RUnlock()
	if ok {
		return convID, nil
	}

	convID, err := r.backend.FindConversation(ctx, key)
	switch {
	case err == nil:
		r.remember(key, convID)
		return convID, nil
	case !errors.Is(err, backend.ErrConversationNotFound):
		return "", fmt.Errorf("conversation lookup: %w", err)
	}

	userID, err := r.backend.EnsureUser(ctx, id.SenderID, id.SenderName)
	if err != nil {
		return "", fmt.Errorf("ensuring user: %w", err)
	}

	convID, err = r.backend.CreateConversation(ctx, key, userID, id.Space)
	if err != nil {
		return "", fmt.Errorf("creating conversation: %w", err)
	}

	r.logger.Debug("conversation created",
		"conversation_key", key,
		"conversation_id", convID,
		"user_id", userID)

	r.remember(key, convID)
	return convID, nil
}

// remember caches a resolved key.
func (r *Resolver) remember(key, convID string) {
	r.mu.Lock()
	r.known[key] = convID
	r.mu.Unlock()
}
