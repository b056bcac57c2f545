package processor

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"
)

// newMarkdownConverter creates a reusable, goroutine-safe Converter:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta, link,
//     input, textarea, HTML comments.
//   - commonmark plugin: standard Markdown rendering (headings, lists, code
//     blocks, emphasis, blockquotes, etc.).
//   - link and image overrides: anchors keep their visible text but lose the
//     target, images disappear entirely. The output is meant to be read, not
//     navigated, so URLs and image references are noise.
func newMarkdownConverter() *converter.Converter {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
	conv.Register.RendererFor("a", converter.TagTypeInline, renderAnchorText, converter.PriorityEarly)
	conv.Register.RendererFor("img", converter.TagTypeInline, renderNothing, converter.PriorityEarly)
	return conv
}

// renderAnchorText renders only the children of an <a> element, so the link
// text survives without the `[text](url)` wrapping.
func renderAnchorText(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
	ctx.RenderChildNodes(ctx, w, n)
	return converter.RenderSuccess
}

func renderNothing(_ converter.Context, _ converter.Writer, _ *html.Node) converter.RenderStatus {
	return converter.RenderSuccess
}

// ToMarkdown converts clean HTML to Markdown.
//
// The domain parameter resolves any residual relative URLs the converter
// touches; link targets themselves are not emitted.
func ToMarkdown(conv *converter.Converter, htmlContent string, domain string) (string, error) {
	return conv.ConvertString(htmlContent, converter.WithDomain(domain))
}
