package research

import (
	"fmt"
	"strings"
	"time"
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

const topicSlugLimit = 20

const noResultsBlock = `No search results found. This could be due to:
  - The search page changed its layout
  - Anti-automation measures blocked the extraction
  - The query returned no organic results

The search itself completed; only extraction came back empty.
`

// renderReport builds the plain-text report document.
func renderReport(topic string, results []SearchResult, now time.Time) string {
	rule := strings.Repeat("=", 50)

	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString("RESEARCH REPORT: " + strings.ToUpper(topic) + "\n")
	b.WriteString(rule + "\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", now.Format(timestampLayout))

	if len(results) == 0 {
		b.WriteString(noResultsBlock)
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "SEARCH RESULTS (%d found):\n\n", len(results))
		for i, r := range results {
			fmt.Fprintf(&b, "%d. %s\n", i+1, r.Title)
			fmt.Fprintf(&b, "   URL: %s\n", r.URL)
			fmt.Fprintf(&b, "   Summary: %s\n\n", r.Snippet)
		}
	}

	b.WriteString(rule + "\n")
	b.WriteString("END OF REPORT\n")
	b.WriteString(rule + "\n")
	return b.String()
}

// reportFilename derives the output name from the generation instant and the
// topic: ISO timestamp with ':' and '.' replaced so it is filesystem-safe,
// then a hyphenated topic slug.
func reportFilename(topic string, now time.Time) string {
	ts := strings.NewReplacer(":", "-", ".", "-").Replace(now.Format(timestampLayout))
	return ts + "-report-" + topicSlug(topic) + ".txt"
}

func topicSlug(topic string) string {
	slug := strings.ReplaceAll(topic, " ", "-")
	runes := []rune(slug)
	if len(runes) > topicSlugLimit {
		slug = string(runes[:topicSlugLimit])
	}
	return slug
}
