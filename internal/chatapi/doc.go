// Package chatapi posts messages back into Google Chat spaces via the
// platform's REST API, used when replies cannot ride the webhook response.
package chatapi
