package processor

import (
	"math"
	nurl "net/url"

	readability "github.com/go-shiori/go-readability"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/research-gpt/researchgpt/models"
)

// Extract modes.
const (
	ModeStrip       = "strip"
	ModeReadability = "readability"
	ModeRaw         = "raw"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatText     = "text"
	FormatHTML     = "html"
)

// Processor turns raw page HTML into clean content:
//
//	Stage 1 (extract): strip boilerplate elements, or run readability,
//	                   or pass the document through untouched.
//	Stage 2 (convert): render the extracted HTML as Markdown, plain text,
//	                   or leave it as HTML.
//
// The Markdown converter is created once and reused across all requests
// (goroutine-safe).
type Processor struct {
	mdConverter *converter.Converter
}

// New initialises a Processor with a pre-configured Markdown converter.
func New() *Processor {
	return &Processor{
		mdConverter: newMarkdownConverter(),
	}
}

// Options carries per-call processing parameters.
type Options struct {
	// OutputFormat: FormatMarkdown (default), FormatText or FormatHTML.
	OutputFormat string

	// ExtractMode: ModeStrip (default), ModeReadability or ModeRaw.
	ExtractMode string

	// CSSSelector narrows the HTML to matching elements before extraction.
	CSSSelector string

	// RemoveElements overrides DefaultRemoveElements for ModeStrip.
	RemoveElements []string
}

// Document is the result of processing one page.
type Document struct {
	// Content is the converted output in the requested format.
	Content string

	// Text is the cleaned plain-text content, regardless of format.
	Text string

	// Metadata holds extracted page metadata.
	Metadata models.Metadata

	// Links are the hyperlinks found in the raw HTML.
	Links models.LinksResult

	// Tokens estimates the cleaning savings.
	Tokens models.TokenInfo
}

// Process runs the full pipeline on raw HTML fetched from sourceURL.
func (p *Processor) Process(rawHTML string, sourceURL string, opts Options) (*Document, error) {
	originalTokens := EstimateTokens(rawHTML)

	// Links and metadata come from the raw document, before anything is
	// stripped away.
	links := ExtractLinks(rawHTML, sourceURL)

	working := rawHTML
	if opts.CSSSelector != "" {
		filtered, err := ApplyCSSSelector(working, opts.CSSSelector)
		if err != nil {
			return nil, models.NewError(
				models.ErrCodeInvalidInput,
				"invalid CSS selector",
				err,
			)
		}
		working = filtered
	}

	// Stage 1: extraction.
	var article readability.Article
	switch opts.ExtractMode {
	case ModeRaw:
		article = readability.Article{
			Content:     working,
			TextContent: VisibleText(working),
		}
	case ModeReadability:
		article, _ = ExtractContent(working, sourceURL)
	default: // ModeStrip
		stripped := StripElements(working, opts.RemoveElements)
		article = readability.Article{
			Content:     stripped,
			TextContent: VisibleText(stripped),
		}
		// Readability is still the best title/metadata source; run it on
		// the original document but keep the stripped content.
		if meta, ok := ExtractContent(working, sourceURL); ok {
			article.Title = meta.Title
			article.Byline = meta.Byline
			article.Excerpt = meta.Excerpt
			article.SiteName = meta.SiteName
			article.Language = meta.Language
		}
	}

	// Stage 2: format conversion.
	var content string
	switch opts.OutputFormat {
	case FormatHTML:
		content = article.Content
	case FormatText:
		content = CleanText(article.TextContent)
	default: // FormatMarkdown
		md, err := ToMarkdown(p.mdConverter, article.Content, domainOf(sourceURL))
		if err != nil {
			return nil, models.NewError(
				models.ErrCodeProcessing,
				"markdown conversion failed",
				err,
			)
		}
		content = md
	}

	cleanedTokens := EstimateTokens(content)
	savingsPercent := 0.0
	if originalTokens > 0 {
		savingsPercent = float64(originalTokens-cleanedTokens) / float64(originalTokens) * 100
		savingsPercent = math.Round(savingsPercent*100) / 100
	}

	return &Document{
		Content: content,
		Text:    CleanText(article.TextContent),
		Metadata: models.Metadata{
			Title:       article.Title,
			Description: article.Excerpt,
			SiteName:    article.SiteName,
			Author:      article.Byline,
			Language:    article.Language,
			SourceURL:   sourceURL,
		},
		Links: links,
		Tokens: models.TokenInfo{
			OriginalEstimate: originalTokens,
			CleanedEstimate:  cleanedTokens,
			SavingsPercent:   savingsPercent,
		},
	}, nil
}

// domainOf returns the scheme+host of a URL for relative link resolution,
// or the input unchanged when it cannot be parsed.
func domainOf(sourceURL string) string {
	u, err := nurl.Parse(sourceURL)
	if err != nil || u.Host == "" {
		return sourceURL
	}
	return u.Scheme + "://" + u.Host
}
