package channels

import (
	"html"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderMarkdown converts assistant Markdown to HTML for the widget.
// Raw HTML in the source is skipped so the assistant cannot inject
// markup into the page.
func RenderMarkdown(src string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	doc := p.Parse([]byte(src))

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.SkipHTML | mdhtml.HrefTargetBlank,
	})
	return strings.TrimSpace(string(markdown.Render(doc, renderer)))
}

// EscapeText HTML-escapes plain text and preserves line breaks. Used
// for user turns, which are never treated as Markdown.
func EscapeText(src string) string {
	escaped := html.EscapeString(src)
	return strings.ReplaceAll(escaped, "\n", "<br>")
}
