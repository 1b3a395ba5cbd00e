// Package dedupe tracks recently seen webhook deliveries so redelivered
// chat events are acknowledged without being processed twice.
package dedupe
