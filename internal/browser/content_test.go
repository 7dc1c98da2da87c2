package browser

import (
	"strings"
	"testing"
)

func TestReduceContentStripsMarkup(t *testing.T) {
	html := `<html><head><script>var tracking = true;</script></head><body>
<nav><a href="/">Home</a></nav>
<div class="result"><h3>Go Concurrency Patterns</h3><p>Share memory by communicating. A tour of pipelines, fan-out and cancellation in Go programs.</p></div>
<div class="result"><h3>Effective Go</h3><p>Tips for writing clear, idiomatic Go code covering formatting, naming and concurrency.</p></div>
</body></html>`

	text := reduceContent(html, "https://www.google.com/search?q=go")
	if strings.Contains(text, "<div") || strings.Contains(text, "<h3") {
		t.Errorf("markup survived reduction:\n%s", text)
	}
	if strings.Contains(text, "var tracking") {
		t.Errorf("script content survived reduction:\n%s", text)
	}
	if !strings.Contains(text, "Share memory by communicating") {
		t.Errorf("page text lost in reduction:\n%s", text)
	}
}

func TestReduceContentBadURL(t *testing.T) {
	text := reduceContent("<html><body><p>Some page text that should still come through even without a parseable location.</p></body></html>", "::notaurl")
	if !strings.Contains(text, "still come through") {
		t.Errorf("text lost: %q", text)
	}
}

func TestReduceContentTruncates(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><p>")
	for b.Len() < contentLimit*2 {
		b.WriteString("All work and no play makes a dull page. ")
	}
	b.WriteString("</p></body></html>")

	text := reduceContent(b.String(), "https://example.com")
	if !strings.HasSuffix(text, "... (content truncated) ...") {
		t.Error("long page not marked truncated")
	}
	if len(text) > contentLimit+100 {
		t.Errorf("reduced text is %d bytes, want about %d", len(text), contentLimit)
	}
}

func TestCollapseBlankLines(t *testing.T) {
	in := "a\n\n\n\nb\n\nc"
	want := "a\n\nb\n\nc"
	if got := collapseBlankLines(in); got != want {
		t.Errorf("collapsed %q, want %q", got, want)
	}
}
