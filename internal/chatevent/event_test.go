// ABOUTME: Tests for inbound event parsing across both payload shapes.
// ABOUTME: Covers interaction events, legacy events, membership events, and malformed input.

package chatevent

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const interactionEvent = `{
	"chat": {
		"messagePayload": {
			"message": {
				"name": "spaces/AAA/messages/MMM",
				"text": "  hello there  ",
				"sender": {"name": "users/1234", "displayName": "Ada"},
				"thread": {"name": "spaces/AAA/threads/TTT"},
				"space": {"name": "spaces/AAA"}
			}
		}
	}
}`

const legacyEvent = `{
	"type": "MESSAGE",
	"space": {"name": "spaces/BBB"},
	"user": {"name": "users/9", "displayName": "Top Level"},
	"message": {
		"name": "spaces/BBB/messages/M2",
		"text": "ping",
		"sender": {"name": "users/5678", "displayName": "Grace"},
		"thread": {"name": "spaces/BBB/threads/T2"}
	}
}`

func TestParse_InteractionEvent(t *testing.T) {
	m, err := Parse([]byte(interactionEvent))
	require.NoError(t, err)

	assert.Equal(t, KindMessage, m.Kind)
	assert.True(t, m.Interactive)
	assert.Equal(t, "spaces/AAA", m.Space)
	assert.Equal(t, "spaces/AAA/threads/TTT", m.Thread)
	assert.Equal(t, "users/1234", m.SenderID)
	assert.Equal(t, "Ada", m.SenderName)
	assert.Equal(t, "hello there", m.Text)
	assert.Equal(t, "spaces/AAA/messages/MMM", m.Name)
}

func TestParse_LegacyEvent(t *testing.T) {
	m, err := Parse([]byte(legacyEvent))
	require.NoError(t, err)

	assert.Equal(t, KindMessage, m.Kind)
	assert.False(t, m.Interactive)
	assert.Equal(t, "spaces/BBB", m.Space)
	assert.Equal(t, "spaces/BBB/threads/T2", m.Thread)
	assert.Equal(t, "users/5678", m.SenderID)
	assert.Equal(t, "Grace", m.SenderName)
	assert.Equal(t, "ping", m.Text)
}

func TestParse_LegacyDMFallsBackToTopLevelUser(t *testing.T) {
	body := `{
		"type": "MESSAGE",
		"space": {"name": "spaces/DM"},
		"user": {"name": "users/42", "displayName": "Solo"},
		"message": {"name": "spaces/DM/messages/M", "text": "hi"}
	}`
	m, err := Parse([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, "users/42", m.SenderID)
	assert.Equal(t, "Solo", m.SenderName)
	assert.Empty(t, m.Thread)
}

func TestParse_AddedToSpace(t *testing.T) {
	body := `{"type": "ADDED_TO_SPACE", "space": {"name": "spaces/NEW"}, "user": {"name": "users/7", "displayName": "Inviter"}}`
	m, err := Parse([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, KindAddedToSpace, m.Kind)
	assert.Equal(t, "spaces/NEW", m.Space)
	assert.Equal(t, "Inviter", m.SenderName)
}

func TestParse_RemovedFromSpace(t *testing.T) {
	m, err := Parse([]byte(`{"type": "REMOVED_FROM_SPACE", "space": {"name": "spaces/GONE"}}`))
	require.NoError(t, err)
	assert.Equal(t, KindRemovedFromSpace, m.Kind)
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	assert.True(t, errors.Is(err, ErrInvalidJSON))
}

func TestParse_UnknownShape(t *testing.T) {
	_, err := Parse([]byte(`{"type": "CARD_CLICKED", "something": true}`))
	assert.True(t, errors.Is(err, ErrUnknownShape))

	_, err = Parse([]byte(`{"totally": "unrelated"}`))
	assert.True(t, errors.Is(err, ErrUnknownShape))
}

func TestParse_MessageTypeWithoutMessageBlock(t *testing.T) {
	_, err := Parse([]byte(`{"type": "MESSAGE"}`))
	assert.True(t, errors.Is(err, ErrUnknownShape))
}

func TestNewReply_InteractionWrapsAction(t *testing.T) {
	m := &Message{Interactive: true}
	r := NewReply(m, "answer")

	require.NotNil(t, r.Action)
	assert.Equal(t, "NEW_MESSAGE", r.Action.ActionMethod)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":{"actionMethod":"NEW_MESSAGE"},"text":"answer"}`, string(data))
}

func TestNewReply_LegacyIsBareText(t *testing.T) {
	r := NewReply(&Message{}, "answer")

	assert.Nil(t, r.Action)
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"answer"}`, string(data))
}
