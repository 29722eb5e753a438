package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

func squeeze(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// textOf returns the whitespace-normalized text of the first node in sel.
func textOf(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return squeeze(sel.First().Text())
}

// joinedText collects the trimmed text nodes below sel joined with sep.
func joinedText(sel *goquery.Selection, sep string) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, sep)
}

// ownText is the node's string when it has a single text descendant chain,
// which is how labeled paragraphs such as "Free Consultation" are matched.
func ownText(sel *goquery.Selection) (string, bool) {
	if sel.Length() == 0 {
		return "", false
	}
	s, ok := nodeString(sel.Nodes[0])
	return squeeze(s), ok
}

func nodeString(n *html.Node) (string, bool) {
	c := n.FirstChild
	if c == nil || c != n.LastChild {
		return "", false
	}
	switch c.Type {
	case html.TextNode:
		return c.Data, true
	case html.ElementNode:
		return nodeString(c)
	}
	return "", false
}

func findByOwnText(doc *goquery.Selection, selector string, pattern *regexp.Regexp) *goquery.Selection {
	return doc.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		text, ok := ownText(s)
		return ok && pattern.MatchString(text)
	}).First()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func containsAny(s string, words ...string) bool {
	lower := strings.ToLower(s)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
