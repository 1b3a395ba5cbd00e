// Package chatevent parses inbound Google Chat webhook payloads and builds
// the reply payloads the platform expects for each event shape.
package chatevent
