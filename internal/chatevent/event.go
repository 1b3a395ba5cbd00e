// ABOUTME: Inbound Google Chat event parsing for both supported payload shapes.
// ABOUTME: Normalizes legacy flat events and nested interaction events into one Message.

package chatevent

import (
	"encoding/json"
	"errors"
	"strings"
)

// Event shape errors
var (
	// ErrInvalidJSON means the request body was not valid JSON.
	ErrInvalidJSON = errors.New("invalid json")

	// ErrUnknownShape means the JSON parsed but matched no known event shape.
	ErrUnknownShape = errors.New("unknown event shape")
)

// Kind identifies which event shape a payload matched.
type Kind string

const (
	KindMessage          Kind = "MESSAGE"
	KindAddedToSpace     Kind = "ADDED_TO_SPACE"
	KindRemovedFromSpace Kind = "REMOVED_FROM_SPACE"
)

// Message is the normalized form of an inbound chat event. Interaction
// events and legacy flat events both reduce to this.
type Message struct {
	Kind        Kind
	Interactive bool // true when the payload was the nested interaction shape

	Space      string // space resource name, e.g. "spaces/AAAA"
	Thread     string // thread resource name, empty for unthreaded DMs
	SenderID   string // user resource name, e.g. "users/1234"
	SenderName string // display name
	Text       string

	// Name is the message resource name, used as the dedupe key.
	// May be empty for membership events.
	Name string
}

// user is the sender block shared by both shapes.
type user struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type namedResource struct {
	Name string `json:"name"`
}

// chatMessage is the message block shared by both shapes.
type chatMessage struct {
	Name   string         `json:"name"`
	Text   string         `json:"text"`
	Sender *user          `json:"sender"`
	Thread *namedResource `json:"thread"`
	Space  *namedResource `json:"space"`
}

// envelope covers both the legacy flat event and the nested interaction
// event. Unknown fields are ignored; the platform adds new ones freely.
type envelope struct {
	Type    string         `json:"type"`
	Message *chatMessage   `json:"message"`
	Space   *namedResource `json:"space"`
	User    *user          `json:"user"`

	Chat *struct {
		MessagePayload *struct {
			Message *chatMessage   `json:"message"`
			Space   *namedResource `json:"space"`
		} `json:"messagePayload"`
	} `json:"chat"`
}

// Parse decodes a webhook body into a normalized Message.
// Returns ErrInvalidJSON for malformed bodies and ErrUnknownShape for
// well-formed JSON that matches neither supported event format.
func Parse(body []byte) (*Message, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, ErrInvalidJSON
	}

	// Interaction event: chat.messagePayload.message
	if env.Chat != nil && env.Chat.MessagePayload != nil && env.Chat.MessagePayload.Message != nil {
		return fromInteraction(env.Chat.MessagePayload.Message, env.Chat.MessagePayload.Space), nil
	}

	switch env.Type {
	case "MESSAGE":
		if env.Message == nil {
			return nil, ErrUnknownShape
		}
		return fromLegacy(&env), nil
	case "ADDED_TO_SPACE":
		m := &Message{Kind: KindAddedToSpace}
		if env.Space != nil {
			m.Space = env.Space.Name
		}
		if env.User != nil {
			m.SenderID = env.User.Name
			m.SenderName = env.User.DisplayName
		}
		return m, nil
	case "REMOVED_FROM_SPACE":
		m := &Message{Kind: KindRemovedFromSpace}
		if env.Space != nil {
			m.Space = env.Space.Name
		}
		return m, nil
	}

	return nil, ErrUnknownShape
}

// fromInteraction builds a Message from the nested interaction shape.
func fromInteraction(msg *chatMessage, space *namedResource) *Message {
	m := &Message{
		Kind:        KindMessage,
		Interactive: true,
		Name:        msg.Name,
		Text:        strings.TrimSpace(msg.Text),
	}
	if msg.Sender != nil {
		m.SenderID = msg.Sender.Name
		m.SenderName = msg.Sender.DisplayName
	}
	if msg.Thread != nil {
		m.Thread = msg.Thread.Name
	}
	switch {
	case msg.Space != nil:
		m.Space = msg.Space.Name
	case space != nil:
		m.Space = space.Name
	}
	return m
}

// fromLegacy builds a Message from the flat event shape.
func fromLegacy(env *envelope) *Message {
	m := &Message{
		Kind: KindMessage,
		Name: env.Message.Name,
		Text: strings.TrimSpace(env.Message.Text),
	}
	if env.Message.Sender != nil {
		m.SenderID = env.Message.Sender.Name
		m.SenderName = env.Message.Sender.DisplayName
	}
	if env.Message.Thread != nil {
		m.Thread = env.Message.Thread.Name
	}
	if env.Space != nil {
		m.Space = env.Space.Name
	} else if env.Message.Space != nil {
		m.Space = env.Message.Space.Name
	}
	// Legacy DM events carry the sender at the top level only.
	if m.SenderID == "" && env.User != nil {
		m.SenderID = env.User.Name
		m.SenderName = env.User.DisplayName
	}
	return m
}
