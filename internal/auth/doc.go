// Package auth verifies the bearer tokens Google Chat attaches to webhook
// deliveries, so only the platform can drive the bridge.
package auth
