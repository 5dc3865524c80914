// Package feed renders an aggregated event listing as an iCalendar or
// RSS document.
package feed

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML reduces an HTML description to its text content. On parse
// failure the input is returned as is; feeds prefer odd text over no text.
func StripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return strings.TrimSpace(s)
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	var b strings.Builder
	collectText(doc, &b)
	return strings.TrimSpace(strings.Join(strings.Fields(b.String()), " "))
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
