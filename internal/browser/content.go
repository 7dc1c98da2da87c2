package browser

import (
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

// Extraction prompts carry page text, not raw HTML. Budget keeps token usage
// sane on heavy pages.
const contentLimit = 50000

// reduceContent turns rendered HTML into clean text for the extraction
// prompt. Readability pulls the main content; when it finds nothing useful
// (search result pages often defeat it) the whole document is stripped to
// text instead.
func reduceContent(html, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = &url.URL{}
	}

	p := bluemonday.StrictPolicy()

	var text string
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err == nil {
		text = strings.TrimSpace(p.Sanitize(article.TextContent))
	}
	if len(text) < 200 {
		text = strings.TrimSpace(p.Sanitize(html))
	}

	text = collapseBlankLines(text)
	if len(text) > contentLimit {
		text = text[:contentLimit] + "\n... (content truncated) ..."
	}
	return text
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
