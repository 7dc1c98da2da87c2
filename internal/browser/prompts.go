package browser

import (
	"fmt"
	"strings"
)

const actSystemPrompt = `You control a web browser. You receive one instruction and a snapshot of the interactive elements on the current page. Decide the single browser command that performs the instruction.

Respond with only a JSON object, no prose and no markdown, in this exact shape:
{"action":"click|type|press|navigate","element":<element id>,"text":"<text>"}

Rules:
- "click" requires "element".
- "type" requires "element" and "text" (the text to type).
- "press" requires "text" naming a key, such as Enter.
- "navigate" requires "text" holding the full URL.
- Prefer the element whose text or label best matches the instruction.`

const extractSystemPrompt = `You extract structured data from web page text. Respond with only a JSON document matching the requested schema exactly. No prose, no markdown fences. If the page contains no matching data, return the schema's empty form (for example {"results":[]}).`

func actPrompt(instruction string, elements []pageElement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Instruction: %s\n\n", instruction)
	b.WriteString("Interactive elements on the page:\n")
	if len(elements) == 0 {
		b.WriteString("(none found)\n")
	}
	for _, el := range elements {
		fmt.Fprintf(&b, "- id=%d tag=%s", el.ID, el.Tag)
		if el.Type != "" {
			fmt.Fprintf(&b, " type=%s", el.Type)
		}
		if el.Text != "" {
			fmt.Fprintf(&b, " text=%q", el.Text)
		}
		if el.Label != "" {
			fmt.Fprintf(&b, " label=%q", el.Label)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func extractPrompt(instruction, schema, pageText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\n", instruction)
	fmt.Fprintf(&b, "Schema:\n%s\n\n", schema)
	fmt.Fprintf(&b, "Page text:\n%s\n", pageText)
	return b.String()
}

// extractJSON pulls the JSON document out of a model response, tolerating
// markdown fences and stray prose around it.
func extractJSON(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", fmt.Errorf("no JSON found in model response %q", clip(s, 120))
	}
	var end int
	if s[start] == '{' {
		end = strings.LastIndex(s, "}")
	} else {
		end = strings.LastIndex(s, "]")
	}
	if end < start {
		return "", fmt.Errorf("unterminated JSON in model response %q", clip(s, 120))
	}
	return s[start : end+1], nil
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
