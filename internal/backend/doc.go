// Package backend is the REST client for the conversational-AI service:
// user provisioning, conversation lookup-or-create, and message exchange.
package backend
