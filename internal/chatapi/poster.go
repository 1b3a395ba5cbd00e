// ABOUTME: Google Chat send-message client for asynchronous replies.
// ABOUTME: Service-account credentials with the chat.bot scope; replies are threaded when possible.

package chatapi

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/chat/v1"
	"google.golang.org/api/option"
)

// Poster sends messages into Chat spaces on behalf of the bridge's app
// identity.
type Poster struct {
	svc    *chat.Service
	logger *slog.Logger
}

// New creates a Poster. credentialsFile points at a service-account JSON
// key; extra options are accepted so tests can swap the endpoint and
// transport.
func New(ctx context.Context, credentialsFile string, logger *slog.Logger, opts ...option.ClientOption) (*Poster, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if credentialsFile != "" {
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading chat credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, chat.ChatBotScope)
		if err != nil {
			return nil, fmt.Errorf("parsing chat credentials: %w", err)
		}
		opts = append([]option.ClientOption{option.WithTokenSource(creds.TokenSource)}, opts...)
	}

	svc, err := chat.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating chat service: %w", err)
	}

	return &Poster{svc: svc, logger: logger.With("component", "chatapi")}, nil
}

// PostReply creates a message in the given space. When thread is set the
// reply lands in that thread, falling back to a new thread if the platform
// no longer accepts replies there.
func (p *Poster) PostReply(ctx context.Context, space, thread, text string) error {
	msg := &chat.Message{Text: text}
	if thread != "" {
		msg.Thread = &chat.Thread{Name: thread}
	}

	call := p.svc.Spaces.Messages.Create(space, msg).Context(ctx)
	if thread != "" {
		call = call.MessageReplyOption("REPLY_MESSAGE_FALLBACK_TO_NEW_THREAD")
	}

	created, err := call.Do()
	if err != nil {
		return fmt.Errorf("posting chat message: %w", err)
	}

	p.logger.Debug("reply posted", "space", space, "message", created.Name)
	return nil
}
