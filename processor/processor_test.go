package processor

import (
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html lang="en">
<head><title>Weekly Release Notes</title></head>
<body>
<header><a href="/home">Home</a> navigation chrome</header>
<nav><a href="/docs">Docs</a></nav>
<div id="main">
  <h1>Weekly Release Notes</h1>
  <p>This release improves crawl throughput and fixes a regression in the
  retry scheduler that caused duplicate fetches under load. Operators should
  upgrade at the earliest opportunity.</p>
  <p>See the <a href="/changelog">changelog</a> and the
  <a href="https://example.org/upstream">upstream notes</a> for details.</p>
</div>
<script>trackPageView();</script>
<footer>Copyright 2026</footer>
</body>
</html>`

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "hello   \n\t world", "hello world"},
		{"trims edges", "  padded  ", "padded"},
		{"empty", "", ""},
		{"only whitespace", " \n\t ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.in); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripElements_RemovesDefaults(t *testing.T) {
	got := StripElements(samplePage, nil)

	for _, removed := range []string{"navigation chrome", "trackPageView", "Copyright 2026"} {
		if strings.Contains(got, removed) {
			t.Errorf("stripped HTML still contains %q", removed)
		}
	}
	if !strings.Contains(got, "crawl throughput") {
		t.Error("stripped HTML lost the main content")
	}
}

func TestStripElements_CustomList(t *testing.T) {
	got := StripElements(samplePage, []string{"div"})

	if strings.Contains(got, "crawl throughput") {
		t.Error("custom removal list did not remove div content")
	}
	if !strings.Contains(got, "Copyright 2026") {
		t.Error("custom removal list should not have removed the footer")
	}
}

func TestVisibleText_SkipsScript(t *testing.T) {
	got := VisibleText(samplePage)
	if strings.Contains(got, "trackPageView") {
		t.Error("visible text contains script content")
	}
	if !strings.Contains(got, "retry scheduler") {
		t.Error("visible text missing body content")
	}
}

func TestExtractLinks(t *testing.T) {
	links := ExtractLinks(samplePage, "https://example.com/releases")

	wantInternal := map[string]bool{
		"https://example.com/home":      false,
		"https://example.com/docs":      false,
		"https://example.com/changelog": false,
	}
	for _, l := range links.Internal {
		if _, ok := wantInternal[l.Href]; !ok {
			t.Errorf("unexpected internal link %q", l.Href)
			continue
		}
		wantInternal[l.Href] = true
	}
	for href, seen := range wantInternal {
		if !seen {
			t.Errorf("missing internal link %q", href)
		}
	}

	if len(links.External) != 1 || links.External[0].Href != "https://example.org/upstream" {
		t.Errorf("external links = %+v, want one link to example.org", links.External)
	}
	if links.External[0].Text != "upstream notes" {
		t.Errorf("external link text = %q, want %q", links.External[0].Text, "upstream notes")
	}
}

func TestExtractLinks_SkipsNonHTTP(t *testing.T) {
	html := `<a href="mailto:ops@example.com">mail</a>
		<a href="javascript:void(0)">js</a>
		<a href="https://example.com/ok">ok</a>`
	links := ExtractLinks(html, "https://example.com/")

	if got := len(links.Internal) + len(links.External); got != 1 {
		t.Fatalf("got %d links, want 1", got)
	}
	if links.Internal[0].Href != "https://example.com/ok" {
		t.Errorf("kept link = %q", links.Internal[0].Href)
	}
}

func TestExtractLinks_Dedupes(t *testing.T) {
	html := `<a href="/a">one</a><a href="/a">two</a>`
	links := ExtractLinks(html, "https://example.com/")
	if len(links.Internal) != 1 {
		t.Errorf("got %d internal links, want 1", len(links.Internal))
	}
}

func TestHrefs(t *testing.T) {
	links := ExtractLinks(`<a href="/in">a</a><a href="https://other.net/x">b</a>`, "https://example.com/")
	got := Hrefs(links)
	want := []string{"https://example.com/in", "https://other.net/x"}
	if len(got) != len(want) {
		t.Fatalf("got %d hrefs, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("hrefs[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestApplyCSSSelector(t *testing.T) {
	got, err := ApplyCSSSelector(samplePage, "#main p")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "crawl throughput") {
		t.Error("selector output missing matched paragraph")
	}
	if strings.Contains(got, "Copyright 2026") {
		t.Error("selector output contains unmatched footer")
	}
}

func TestApplyCSSSelector_NoMatchReturnsInput(t *testing.T) {
	got, err := ApplyCSSSelector(samplePage, ".does-not-exist")
	if err != nil {
		t.Fatal(err)
	}
	if got != samplePage {
		t.Error("no-match case should return the input unchanged")
	}
}

func TestApplyCSSSelector_NestedMatchesEmitOnce(t *testing.T) {
	page := `<html><body>
	<div class="note">outer <div class="note">inner</div></div>
	</body></html>`

	got, err := ApplyCSSSelector(page, "div.note")
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(got, "inner"); n != 1 {
		t.Errorf("nested match rendered %d times, want 1:\n%s", n, got)
	}
	if !strings.Contains(got, "outer") {
		t.Error("outermost match missing from output")
	}
}

func TestApplyCSSSelector_InvalidSelector(t *testing.T) {
	if _, err := ApplyCSSSelector(samplePage, "[[["); err == nil {
		t.Error("expected error for invalid selector")
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"short", "ab", 1},
		{"nine runes", "abcdefghi", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTokens(tt.in); got != tt.want {
				t.Errorf("EstimateTokens(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestProcess_DefaultsStripAndMarkdown(t *testing.T) {
	p := New()
	doc, err := p.Process(samplePage, "https://example.com/releases", Options{})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(doc.Content, "# Weekly Release Notes") {
		t.Errorf("markdown missing heading:\n%s", doc.Content)
	}
	if strings.Contains(doc.Content, "Copyright 2026") {
		t.Error("markdown contains footer content")
	}
	if strings.Contains(doc.Content, "trackPageView") {
		t.Error("markdown contains script content")
	}
	if !strings.Contains(doc.Text, "retry scheduler") {
		t.Error("plain text missing body content")
	}
	if doc.Metadata.SourceURL != "https://example.com/releases" {
		t.Errorf("metadata source URL = %q", doc.Metadata.SourceURL)
	}
	if len(doc.Links.Internal) == 0 || len(doc.Links.External) == 0 {
		t.Errorf("links not extracted: %+v", doc.Links)
	}
	if doc.Tokens.OriginalEstimate <= doc.Tokens.CleanedEstimate {
		t.Errorf("expected token savings, got original=%d cleaned=%d",
			doc.Tokens.OriginalEstimate, doc.Tokens.CleanedEstimate)
	}
	if doc.Tokens.SavingsPercent <= 0 {
		t.Errorf("savings percent = %v, want > 0", doc.Tokens.SavingsPercent)
	}
}

func TestProcess_MarkdownDropsLinkTargetsAndImages(t *testing.T) {
	page := `<html><body><div id="main">
	<h1>Connector Setup</h1>
	<p>See <a href="https://example.org/doc">the documentation</a> for details.</p>
	<p><img src="https://example.org/pic.png" alt="diagram"></p>
	</div></body></html>`

	p := New()
	doc, err := p.Process(page, "https://example.org/setup", Options{})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(doc.Content, "the documentation") {
		t.Errorf("link text missing from markdown:\n%s", doc.Content)
	}
	if strings.Contains(doc.Content, "](") {
		t.Errorf("markdown still emits link targets:\n%s", doc.Content)
	}
	if strings.Contains(doc.Content, "![") || strings.Contains(doc.Content, "pic.png") {
		t.Errorf("markdown still emits images:\n%s", doc.Content)
	}
}

func TestProcess_TextFormat(t *testing.T) {
	p := New()
	doc, err := p.Process(samplePage, "https://example.com/releases", Options{
		OutputFormat: FormatText,
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(doc.Content, "<p>") {
		t.Error("text output contains HTML tags")
	}
	if !strings.Contains(doc.Content, "crawl throughput") {
		t.Error("text output missing content")
	}
}

func TestProcess_RawHTMLFormat(t *testing.T) {
	p := New()
	doc, err := p.Process(samplePage, "https://example.com/releases", Options{
		OutputFormat: FormatHTML,
		ExtractMode:  ModeRaw,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc.Content, "<footer>") {
		t.Error("raw mode should keep the footer element")
	}
}

func TestProcess_CSSSelector(t *testing.T) {
	p := New()
	doc, err := p.Process(samplePage, "https://example.com/releases", Options{
		CSSSelector:  "#main",
		OutputFormat: FormatText,
		ExtractMode:  ModeRaw,
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(doc.Content, "Copyright 2026") {
		t.Error("selector-narrowed output contains footer content")
	}
	if !strings.Contains(doc.Content, "crawl throughput") {
		t.Error("selector-narrowed output missing main content")
	}
}

func TestProcess_InvalidSelector(t *testing.T) {
	p := New()
	if _, err := p.Process(samplePage, "https://example.com/", Options{CSSSelector: "[[["}); err == nil {
		t.Error("expected error for invalid CSS selector")
	}
}
