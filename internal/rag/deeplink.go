package rag

import (
	"net/url"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// LookupScheme prefixes the destination of deep-link markers, as in [CS 101](lookup:CS%20101).
const LookupScheme = "lookup:"

var markdown = goldmark.New()

// ExtractDeepLinks returns the lookup links of a markdown answer in order of
// first appearance, one per distinct query.
func ExtractDeepLinks(answer string) []DeepLink {
	if !strings.Contains(answer, LookupScheme) {
		return nil
	}

	source := []byte(answer)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var links []DeepLink
	seen := make(map[string]bool)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}

		dest := string(link.Destination)
		if !strings.HasPrefix(dest, LookupScheme) {
			return ast.WalkSkipChildren, nil
		}
		query := strings.TrimPrefix(dest, LookupScheme)
		if unescaped, err := url.PathUnescape(query); err == nil {
			query = unescaped
		}
		query = strings.TrimSpace(query)
		label := strings.TrimSpace(nodeText(link, source))
		if query == "" {
			query = label
		}
		if query == "" || seen[query] {
			return ast.WalkSkipChildren, nil
		}
		seen[query] = true
		if label == "" {
			label = query
		}
		links = append(links, DeepLink{Label: label, Query: query})
		return ast.WalkSkipChildren, nil
	})
	return links
}

// nodeText collects the inline text below n.
func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		default:
			b.WriteString(nodeText(c, source))
		}
	}
	return b.String()
}
