package channels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdownBasics(t *testing.T) {
	html := RenderMarkdown("Some **bold** and `inline code`.")
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.Contains(t, html, "<code>inline code</code>")
}

func TestRenderMarkdownCodeBlock(t *testing.T) {
	html := RenderMarkdown("```\nfmt.Println(\"hi\")\n```")
	assert.Contains(t, html, "<pre>")
	assert.Contains(t, html, "fmt.Println")
}

func TestRenderMarkdownSkipsRawHTML(t *testing.T) {
	html := RenderMarkdown(`before <script>alert(1)</script> after`)
	assert.NotContains(t, html, "<script>")
}

func TestRenderMarkdownLinksOpenInNewTab(t *testing.T) {
	html := RenderMarkdown("[site](https://example.com)")
	assert.Contains(t, html, `target="_blank"`)
}

func TestEscapeText(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt; &amp; c", EscapeText("a <b> & c"))
	assert.Equal(t, "line1<br>line2", EscapeText("line1\nline2"))
}
