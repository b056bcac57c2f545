package models

// ScrapeRequest is the payload for POST /api/v1/scrape.
type ScrapeRequest struct {
	// URL is the target page to fetch. Required.
	URL string `json:"url" binding:"required,url"`

	// Timeout is the maximum duration in seconds for the entire
	// fetch operation (all retries included).
	// Default: 15. Max: 120.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`

	// FetchMode controls the fetching strategy.
	// "auto" (default): plain HTTP first, browser fallback when the page
	// needs JavaScript or serves a bot challenge.
	// "http": force plain HTTP (fastest, no JS rendering).
	// "browser": force headless Chrome.
	FetchMode string `json:"fetch_mode,omitempty" binding:"omitempty,oneof=auto browser http"`

	// Stealth enables anti-bot-detection evasions on the browser path.
	Stealth bool `json:"stealth,omitempty"`

	// OutputFormat controls the content field of the response.
	// Allowed: "markdown" (default), "text", "html".
	OutputFormat string `json:"output_format,omitempty" binding:"omitempty,oneof=markdown text html"`

	// ExtractMode controls content extraction:
	// "strip" (default): remove boilerplate elements (header/footer/script/
	// style/nav) and convert what remains.
	// "readability": main-article extraction before conversion.
	// "raw": no extraction, convert the full document.
	ExtractMode string `json:"extract_mode,omitempty" binding:"omitempty,oneof=strip readability raw"`

	// CSSSelector optionally narrows the HTML to matching elements
	// before extraction.
	CSSSelector string `json:"css_selector,omitempty"`

	// RemoveElements overrides the default list of stripped elements.
	RemoveElements []string `json:"remove_elements,omitempty"`

	// MaxAge enables the response cache: a cached result younger than
	// MaxAge milliseconds is returned without refetching.
	MaxAge int `json:"max_age,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 15
	}
	if r.FetchMode == "" {
		r.FetchMode = "auto"
	}
	if r.OutputFormat == "" {
		r.OutputFormat = "markdown"
	}
	if r.ExtractMode == "" {
		r.ExtractMode = "strip"
	}
}

// SearchRequest is the payload for POST /api/v1/search.
type SearchRequest struct {
	// Query is the search query. Required.
	Query string `json:"query" binding:"required"`

	// LastNDays restricts results to pages indexed within the last N days.
	LastNDays int `json:"last_n_days,omitempty" binding:"omitempty,min=1,max=365"`
}

// ResearchRequest is the payload for POST /api/v1/research.
type ResearchRequest struct {
	// Objective is a free-form description of what to research. Required
	// unless Queries is set.
	Objective string `json:"objective,omitempty"`

	// Queries bypasses LLM query generation and searches these directly.
	Queries []string `json:"queries,omitempty"`

	// MaxURLs caps how many search hits are fetched. Default: 20. Max: 100.
	MaxURLs int `json:"max_urls,omitempty" binding:"omitempty,min=1,max=100"`

	// Options are the scrape settings applied to every fetched page.
	Options ResearchOptions `json:"options"`

	// WebhookURL, when set, receives a signed completion event.
	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// ResearchOptions are the shared per-page settings for a research job.
type ResearchOptions struct {
	OutputFormat string `json:"output_format,omitempty" binding:"omitempty,oneof=markdown text html"`
	ExtractMode  string `json:"extract_mode,omitempty" binding:"omitempty,oneof=strip readability raw"`
	LastNDays    int    `json:"last_n_days,omitempty" binding:"omitempty,min=1,max=365"`
	Stealth      bool   `json:"stealth,omitempty"`
}
