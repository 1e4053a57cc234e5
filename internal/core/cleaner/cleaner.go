package cleaner

import (
	"log/slog"
	"strings"

	"golang.org/x/net/html"
)

// removedElements are dropped together with everything inside them.
var removedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"figure":   true,
	"noscript": true,
	"iframe":   true,
	"svg":      true,
	"canvas":   true,
	"video":    true,
	"audio":    true,
	"nav":      true,
	"aside":    true,
	"header":   true,
	"footer":   true,
	"form":     true,
	"button":   true,
	"template": true,
	"title":    true,
}

// Clean strips markup from an article body and returns its text, one trimmed
// fragment per line with empty lines removed. Character references are
// decoded, so "a &lt;b&gt; c" becomes "a <b> c". Output that holds a decoded
// "<" reads as markup if it is cleaned again; cleaning is only idempotent for
// text without markup characters.
func Clean(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		// html.Parse only fails on reader errors, a strings.Reader never produces one.
		slog.Warn("unable to parse content as html, using raw text", "error", err)
		return joinLines([]string{raw})
	}

	var fragments []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if removedElements[n.Data] {
				return
			}
		case html.TextNode:
			fragments = append(fragments, n.Data)
			return
		case html.CommentNode, html.DoctypeNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return joinLines(fragments)
}

func joinLines(fragments []string) string {
	lines := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		for _, line := range strings.Split(fragment, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				lines = append(lines, line)
			}
		}
	}
	return strings.Join(lines, "\n")
}
