package processor

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// ApplyCSSSelector narrows rawHTML to the elements matching the given CSS
// selector and returns their concatenated outer HTML.
//
// A match nested inside another match is skipped, so selectors like "div"
// on nested divs emit each piece of content once. If nothing matches, the
// original rawHTML is returned unchanged so downstream processing still has
// something to work with.
func ApplyCSSSelector(rawHTML string, selector string) (string, error) {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return "", err
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	matches := cascadia.QueryAll(doc, sel)
	if len(matches) == 0 {
		return rawHTML, nil
	}

	matched := make(map[*html.Node]struct{}, len(matches))
	for _, n := range matches {
		matched[n] = struct{}{}
	}

	var b strings.Builder
	for _, n := range matches {
		if enclosedByMatch(n, matched) {
			continue
		}
		if err := html.Render(&b, n); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// enclosedByMatch reports whether any ancestor of n also matched.
func enclosedByMatch(n *html.Node, matched map[*html.Node]struct{}) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if _, ok := matched[p]; ok {
			return true
		}
	}
	return false
}
