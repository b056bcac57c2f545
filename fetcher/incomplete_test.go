package fetcher

import (
	"strings"
	"testing"
)

func TestIsIncompleteLoad_ChallengeMarkers(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{"js wall", `<html><body>Please enable JS to continue</body></html>`, true},
		{"captcha", `<html><body><div class="captcha-box"></div></body></html>`, true},
		{"cloudflare", `<script data-cfasync="false" src="x.js"></script>`, true},
		{"recaptcha", `<div class="g-recaptcha" data-sitekey="k"></div>`, true},
		{"clean page", `<html><body><p>Regular article text.</p></body></html>`, false},
		{"empty", ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsIncompleteLoad(tt.html); got != tt.want {
				t.Errorf("IsIncompleteLoad() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNeedsBrowser_ChallengePage(t *testing.T) {
	html := `<html><body>` + strings.Repeat("real article content here. ", 30) +
		`<div class="g-recaptcha"></div></body></html>`
	if !NeedsBrowser(html) {
		t.Error("page with a captcha marker should need the browser")
	}
}

func TestNeedsBrowser_TinyBody(t *testing.T) {
	html := `<html><body><div id="main">hi</div></body></html>`
	if !NeedsBrowser(html) {
		t.Error("page with almost no visible text should need the browser")
	}
}

func TestNeedsBrowser_EmptySPARoot(t *testing.T) {
	filler := strings.Repeat("footer boilerplate text that pads the body out nicely. ", 10)
	html := `<html><body><div id="root"></div><p>` + filler + `</p></body></html>`
	if !NeedsBrowser(html) {
		t.Error("page with an empty #root container should need the browser")
	}
}

func TestNeedsBrowser_NoscriptWarning(t *testing.T) {
	filler := strings.Repeat("some visible words to get past the length check. ", 10)
	html := `<html><body><noscript>You need to enable JavaScript to run this app.</noscript><p>` +
		filler + `</p></body></html>`
	if !NeedsBrowser(html) {
		t.Error("noscript JS warning should trigger the browser")
	}
}

func TestNeedsBrowser_StaticArticle(t *testing.T) {
	para := strings.Repeat("Plenty of readable prose in the body of this static page. ", 20)
	html := `<html><head><title>ok</title></head><body><article><p>` + para + `</p></article></body></html>`
	if NeedsBrowser(html) {
		t.Error("static article should not need the browser")
	}
}

func TestExtractVisibleText_SkipsScriptAndStyle(t *testing.T) {
	html := `<html><body><script>var hidden = 1;</script><style>.x{}</style><p>shown</p></body></html>`
	text := extractVisibleText(html)
	if !strings.Contains(text, "shown") {
		t.Errorf("visible text missing body content: %q", text)
	}
	if strings.Contains(text, "hidden") {
		t.Errorf("visible text includes script content: %q", text)
	}
}
