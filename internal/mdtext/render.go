// ABOUTME: Markdown to Google Chat text markup conversion.
// ABOUTME: Parses with goldmark and re-renders the AST; Chat speaks its own markup, not HTML.

package mdtext

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Strikethrough))

// Render converts a markdown reply into Chat markup. Plain text passes
// through unchanged apart from whitespace normalization.
func Render(source string) string {
	src := []byte(source)
	doc := md.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		renderBlock(&b, n, src)
	}
	return strings.TrimSpace(b.String())
}

// renderBlock writes one top-level block followed by a blank line.
func renderBlock(b *strings.Builder, n ast.Node, src []byte) {
	switch v := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		renderInline(b, n, src)
		b.WriteString("\n\n")
	case *ast.Heading:
		// Chat has no headings; bold stands in.
		b.WriteString("*")
		renderInline(b, n, src)
		b.WriteString("*\n\n")
	case *ast.FencedCodeBlock:
		writeCodeBlock(b, v.Lines(), src)
	case *ast.CodeBlock:
		writeCodeBlock(b, v.Lines(), src)
	case *ast.List:
		renderList(b, v, src)
		b.WriteString("\n")
	case *ast.Blockquote:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			renderBlock(b, c, src)
		}
	case *ast.ThematicBreak:
		b.WriteString("\n")
	default:
		renderInline(b, n, src)
		b.WriteString("\n\n")
	}
}

// writeCodeBlock emits a fenced block; Chat renders triple backticks as
// preformatted text.
func writeCodeBlock(b *strings.Builder, lines *text.Segments, src []byte) {
	b.WriteString("```\n")
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	b.WriteString("```\n\n")
}

// renderList writes list items with Chat-friendly bullets.
func renderList(b *strings.Builder, list *ast.List, src []byte) {
	index := list.Start
	if index == 0 {
		index = 1
	}
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		if list.IsOrdered() {
			b.WriteString(fmt.Sprintf("%d. ", index))
			index++
		} else {
			b.WriteString("- ")
		}
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch v := c.(type) {
			case *ast.TextBlock, *ast.Paragraph:
				renderInline(b, c, src)
			case *ast.List:
				b.WriteString("\n")
				renderList(b, v, src)
			}
		}
		b.WriteString("\n")
	}
}

// renderInline writes the inline children of a node.
func renderInline(b *strings.Builder, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.HardLineBreak() || v.SoftLineBreak() {
				b.WriteString("\n")
			}
		case *ast.Emphasis:
			marker := "_"
			if v.Level >= 2 {
				marker = "*"
			}
			b.WriteString(marker)
			renderInline(b, v, src)
			b.WriteString(marker)
		case *ast.CodeSpan:
			b.WriteString("`")
			renderInline(b, v, src)
			b.WriteString("`")
		case *ast.Link:
			b.WriteString("<")
			b.Write(v.Destination)
			b.WriteString("|")
			renderInline(b, v, src)
			b.WriteString(">")
		case *ast.AutoLink:
			b.Write(v.URL(src))
		case *ast.Image:
			// Chat text cannot embed images; fall back to the URL.
			b.Write(v.Destination)
		case *east.Strikethrough:
			b.WriteString("~")
			renderInline(b, v, src)
			b.WriteString("~")
		case *ast.String:
			b.Write(v.Value)
		default:
			renderInline(b, c, src)
		}
	}
}
