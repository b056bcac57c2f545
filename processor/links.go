package processor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/research-gpt/researchgpt/models"
)

// ExtractLinks parses the raw HTML and separates links into internal and
// external based on whether their host matches the source URL's host.
// Relative hrefs are resolved against the source URL; only http(s) targets
// are kept and duplicates are dropped.
func ExtractLinks(rawHTML string, sourceURL string) models.LinksResult {
	result := models.LinksResult{
		Internal: []models.Link{},
		External: []models.Link{},
	}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return result
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return result
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}

		// Skip fragments, javascript:, mailto:, tel: etc.
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		absURL := resolved.String()
		if _, ok := seen[absURL]; ok {
			return
		}
		seen[absURL] = struct{}{}

		link := models.Link{Href: absURL, Text: strings.TrimSpace(s.Text())}
		if strings.EqualFold(resolved.Host, base.Host) {
			result.Internal = append(result.Internal, link)
		} else {
			result.External = append(result.External, link)
		}
	})

	return result
}

// Hrefs flattens a LinksResult into the plain list of target URLs,
// internal links first.
func Hrefs(links models.LinksResult) []string {
	out := make([]string, 0, len(links.Internal)+len(links.External))
	for _, l := range links.Internal {
		out = append(out, l.Href)
	}
	for _, l := range links.External {
		out = append(out, l.Href)
	}
	return out
}
