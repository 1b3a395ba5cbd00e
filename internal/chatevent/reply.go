// ABOUTME: Reply payload construction for Google Chat webhook responses.
// ABOUTME: Interaction events need an action wrapper; legacy events take bare text.

package chatevent

// Action is the interaction-event response wrapper. NEW_MESSAGE tells the
// platform to render the text as a fresh message in the thread.
type Action struct {
	ActionMethod string `json:"actionMethod"`
}

// Reply is the synchronous webhook response body.
type Reply struct {
	Action *Action `json:"action,omitempty"`
	Text   string  `json:"text"`
}

// NewReply builds the response payload appropriate for the event that
// triggered it. Interaction events require the action wrapper; legacy
// events reject it.
func NewReply(m *Message, text string) *Reply {
	r := &Reply{Text: text}
	if m.Interactive {
		r.Action = &Action{ActionMethod: "NEW_MESSAGE"}
	}
	return r
}
