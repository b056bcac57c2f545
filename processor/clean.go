package processor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultRemoveElements are the tags stripped from HTML before extraction:
// page chrome and non-content nodes that only add noise.
var DefaultRemoveElements = []string{"header", "footer", "script", "style", "nav"}

var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanText collapses runs of whitespace (spaces, newlines, tabs) into
// single spaces and trims the result.
func CleanText(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// StripElements parses the HTML and removes every element matching the
// given tag names (DefaultRemoveElements when the list is empty).
// Returns the remaining document HTML; on parse failure the input is
// returned unchanged so downstream processing still has content.
func StripElements(rawHTML string, removeElements []string) string {
	if len(removeElements) == 0 {
		removeElements = DefaultRemoveElements
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}

	doc.Find(strings.Join(removeElements, ", ")).Remove()

	result, err := doc.Html()
	if err != nil {
		return rawHTML
	}
	return result
}

// VisibleText returns the cleaned plain text of an HTML fragment.
func VisibleText(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return CleanText(rawHTML)
	}
	return CleanText(doc.Text())
}
