package fetcher

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// challengeMarkers are substrings whose presence indicates the server
// returned a bot challenge or JS wall instead of the real page.
var challengeMarkers = []string{
	"Please enable JS",
	"captcha",
	"data-cfasync",
	"g-recaptcha",
}

var reNoscript = regexp.MustCompile(`<noscript[^>]*>[^<]*(enable|activate|turn on|requires?)\s+javascript`)

// IsIncompleteLoad reports whether fetched HTML is a challenge page rather
// than real content (CAPTCHA walls, Cloudflare interstitials, JS-required
// notices).
func IsIncompleteLoad(htmlStr string) bool {
	for _, marker := range challengeMarkers {
		if strings.Contains(htmlStr, marker) {
			return true
		}
	}
	return false
}

// NeedsBrowser decides whether HTTP-fetched HTML likely needs JS rendering:
// either it is an incomplete load, or it looks like an SPA shell (tiny
// visible body, empty root container, noscript warning, or heavy scripting
// with little text).
func NeedsBrowser(htmlStr string) bool {
	if IsIncompleteLoad(htmlStr) {
		return true
	}

	bodyText := extractVisibleText(htmlStr)

	// Very little visible text in <body> → likely SPA shell.
	if len(bodyText) < 200 {
		return true
	}

	lower := strings.ToLower(htmlStr)

	// Empty SPA root containers.
	if strings.Contains(lower, `<div id="root"></div>`) ||
		strings.Contains(lower, `<div id="app"></div>`) ||
		strings.Contains(lower, `<div id="__next"></div>`) {
		return true
	}

	// <noscript> with JS-required warnings.
	if reNoscript.MatchString(lower) {
		return true
	}

	// Many <script> tags + little body text → JS-heavy page.
	scriptCount := strings.Count(lower, "<script")
	if scriptCount > 10 && len(bodyText) < 500 {
		return true
	}

	return false
}

// extractVisibleText extracts the visible text from within <body>, stripping
// all tags and <script>/<style> content. Used for heuristic analysis only.
func extractVisibleText(htmlStr string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlStr))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return buf.String()
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "body" {
				inBody = true
			}
			if tag == "script" || tag == "style" || tag == "noscript" {
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "script" || tag == "style" || tag == "noscript" {
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				text := strings.TrimSpace(string(tokenizer.Text()))
				if text != "" {
					buf.WriteString(text)
					buf.WriteByte(' ')
				}
			}
		}
	}
}
