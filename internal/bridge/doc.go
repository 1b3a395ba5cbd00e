// Package bridge wires the webhook surface to the conversational-AI
// backend: parse the event, derive the conversation, relay the message,
// and return or post the reply.
package bridge
