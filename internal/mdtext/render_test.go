// ABOUTME: Tests for markdown to Chat markup rendering.
// ABOUTME: Covers the inline conversions, blocks, lists, and plain-text passthrough.

package mdtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "hello there", "hello there"},
		{"bold", "hello **world**", "hello *world*"},
		{"italic", "hello *world*", "hello _world_"},
		{"strikethrough", "~~gone~~", "~gone~"},
		{"inline code", "run `go vet` first", "run `go vet` first"},
		{"link", "see [the docs](https://example.com)", "see <https://example.com|the docs>"},
		{"heading becomes bold", "# Summary", "*Summary*"},
		{"unordered list", "- first\n- second", "- first\n- second"},
		{"ordered list", "1. first\n2. second", "1. first\n2. second"},
		{"fenced code block", "```\nfmt.Println(1)\n```", "```\nfmt.Println(1)\n```"},
		{"paragraphs preserved", "one\n\ntwo", "one\n\ntwo"},
		{"soft line break", "one\ntwo", "one\ntwo"},
		{"nested emphasis", "**really *sure***", "*really _sure_*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.in))
		})
	}
}

func TestRender_EmptyInput(t *testing.T) {
	assert.Equal(t, "", Render(""))
}

func TestRender_MixedDocument(t *testing.T) {
	in := "# Answer\n\nUse `DeriveKey` like this:\n\n```\nkey := DeriveKey(a, b, c)\n```"
	want := "*Answer*\n\nUse `DeriveKey` like this:\n\n```\nkey := DeriveKey(a, b, c)\n```"
	assert.Equal(t, want, Render(in))
}
