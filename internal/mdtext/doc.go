// Package mdtext renders the backend's markdown replies into the text
// markup Google Chat understands (*bold*, _italic_, ~strike~, <url|text>).
package mdtext
