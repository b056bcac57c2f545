package fetcher

import (
	"context"
	"time"
)

// Fetch modes accepted by the Fetcher.
const (
	ModeAuto    = "auto"
	ModeHTTP    = "http"
	ModeBrowser = "browser"
)

// Engine is the interface that all fetch engines implement.
type Engine interface {
	// Name returns the engine identifier ("http" or "browser").
	Name() string

	// Fetch retrieves the page content for the given request.
	Fetch(ctx context.Context, req *Request) (*Result, error)
}

// Request contains everything an engine needs to fetch a page.
type Request struct {
	// URL is the page to fetch.
	URL string

	// Headers are extra request headers (override engine defaults).
	Headers map[string]string

	// Timeout is the deadline for the whole fetch, retries included.
	// Zero means the fetcher's configured default.
	Timeout time.Duration

	// Mode selects the fetch strategy: ModeAuto, ModeHTTP or ModeBrowser.
	// Empty means ModeAuto.
	Mode string

	// Stealth enables anti-bot-detection evasions on the browser path.
	Stealth bool
}

// Result is the output of a successful fetch.
type Result struct {
	// HTML is the raw (or rendered) page HTML.
	HTML string

	// Title is the page title.
	Title string

	// StatusCode is the HTTP status of the final response, when known.
	StatusCode int

	// FinalURL is the URL after following redirects.
	FinalURL string

	// Engine records which engine produced the result.
	Engine string
}
