// ABOUTME: Orchestration for inbound chat events: dedupe, resolve, relay, reply.
// ABOUTME: Outbound failures are logged and swallowed; the webhook is always acknowledged.

package bridge

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/familiar-bridge/internal/chatevent"
	"github.com/2389/familiar-bridge/internal/conversation"
	"github.com/2389/familiar-bridge/internal/mdtext"
)

// ConversationResolver maps a derived key to a backend conversation ID.
type ConversationResolver interface {
	Resolve(ctx context.Context, key string, id conversation.Identity) (string, error)
}

// MessageSender relays a user message and returns the AI reply text.
type MessageSender interface {
	SendMessage(ctx context.Context, conversationID, sender, text string) (string, error)
}

// ReplyPoster posts a reply into the originating space via the platform API.
type ReplyPoster interface {
	PostReply(ctx context.Context, space, thread, text string) error
}

// DeliveryWindow reports redelivered webhook events.
type DeliveryWindow interface {
	Duplicate(key string) bool
}

// Service handles normalized chat events. One inbound event produces at
// most two sequential outbound calls (resolve, send); there is no shared
// mutable state between events beyond the resolver and dedupe caches.
type Service struct {
	resolver ConversationResolver
	sender   MessageSender
	poster   ReplyPoster // nil means synchronous replies only
	window   DeliveryWindow
	logger   *slog.Logger

	greeting     string
	replyTimeout time.Duration
}

// Options configures a Service.
type Options struct {
	Resolver ConversationResolver
	Sender   MessageSender
	Poster   ReplyPoster
	Window   DeliveryWindow
	Logger   *slog.Logger

	Greeting     string
	ReplyTimeout time.Duration
}

// NewService creates the orchestration service.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	replyTimeout := opts.ReplyTimeout
	if replyTimeout <= 0 {
		replyTimeout = 25 * time.Second
	}
	return &Service{
		resolver:     opts.Resolver,
		sender:       opts.Sender,
		poster:       opts.Poster,
		window:       opts.Window,
		logger:       logger.With("component", "bridge"),
		greeting:     opts.Greeting,
		replyTimeout: replyTimeout,
	}
}

// HandleEvent processes one normalized event and returns the payload to
// send in the webhook response, or nil for a bare acknowledgement. Errors
// never escape: failed relays are logged and the event is acked anyway so
// the platform does not retry-storm the endpoint.
func (s *Service) HandleEvent(ctx context.Context, m *chatevent.Message) *chatevent.Reply {
	logger := s.logger.With("delivery_id", uuid.New().String())

	switch m.Kind {
	case chatevent.KindAddedToSpace:
		logger.Info("added to space", "space", m.Space, "inviter", m.SenderName)
		return chatevent.NewReply(m, s.greeting)
	case chatevent.KindRemovedFromSpace:
		logger.Info("removed from space", "space", m.Space)
		return nil
	}

	if m.Text == "" {
		logger.Debug("message without text, acknowledging", "space", m.Space)
		return nil
	}

	if m.Name != "" && s.window != nil && s.window.Duplicate(m.Name) {
		logger.Debug("duplicate delivery ignored", "message", m.Name)
		return nil
	}

	if s.poster != nil {
		// Async mode: ack the webhook now, post the reply via the
		// platform API when the backend answers. The webhook context
		// dies with the response, so the relay gets a detached one.
		go s.relayAsync(m, logger)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.replyTimeout)
	defer cancel()

	text, err := s.relay(ctx, m, logger)
	if err != nil {
		logger.Error("relay failed", "error", err, "space", m.Space)
		return nil
	}
	return chatevent.NewReply(m, text)
}

// relay resolves the conversation and forwards the message, returning the
// rendered reply text.
func (s *Service) relay(ctx context.Context, m *chatevent.Message, logger *slog.Logger) (string, error) {
	key := conversation.DeriveKey(m.Space, m.Thread, m.SenderID)

	convID, err := s.resolver.Resolve(ctx, key, conversation.Identity{
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Space:      m.Space,
	})
	if err != nil {
		return "", err
	}

	logger.Debug("relaying message",
		"conversation_key", key,
		"conversation_id", convID,
		"sender", m.SenderID)

	reply, err := s.sender.SendMessage(ctx, convID, m.SenderName, m.Text)
	if err != nil {
		return "", err
	}

	return mdtext.Render(reply), nil
}

// relayAsync runs the relay off the request path and posts the result back
// into the originating thread.
func (s *Service) relayAsync(m *chatevent.Message, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), s.replyTimeout)
	defer cancel()

	text, err := s.relay(ctx, m, logger)
	if err != nil {
		logger.Error("relay failed", "error", err, "space", m.Space)
		return
	}

	if err := s.poster.PostReply(ctx, m.Space, m.Thread, text); err != nil {
		logger.Error("posting reply failed", "error", err, "space", m.Space)
	}
}
