package models

// ScrapeResponse is the response for POST /api/v1/scrape.
type ScrapeResponse struct {
	// Success indicates whether the scrape completed without errors.
	Success bool `json:"success"`

	// FinalURL is the URL after following all redirects.
	FinalURL string `json:"final_url,omitempty"`

	// Content is the cleaned output in the requested format.
	Content string `json:"content"`

	// Metadata contains extracted page metadata.
	Metadata Metadata `json:"metadata"`

	// Links are the absolute hyperlinks extracted from the page,
	// split into internal and external groups.
	Links LinksResult `json:"links"`

	// Tokens provides token estimates before and after cleaning.
	Tokens TokenInfo `json:"tokens"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Engine indicates which fetch engine produced the result
	// ("http" or "browser").
	Engine string `json:"engine,omitempty"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// LinksResult separates extracted links into internal and external groups.
type LinksResult struct {
	Internal []Link `json:"internal"`
	External []Link `json:"external"`
}

// Link represents a hyperlink extracted from the page.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text,omitempty"`
}

// Metadata holds page-level information extracted during scraping.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
	Author      string `json:"author,omitempty"`
	Language    string `json:"language,omitempty"`
	SourceURL   string `json:"source_url"`
}

// TokenInfo provides before/after token estimates to show cleaning efficacy.
type TokenInfo struct {
	// OriginalEstimate is the estimated token count of the raw HTML.
	OriginalEstimate int `json:"original_estimate"`

	// CleanedEstimate is the estimated token count of the cleaned output.
	CleanedEstimate int `json:"cleaned_estimate"`

	// SavingsPercent is the percentage of tokens removed (0-100).
	SavingsPercent float64 `json:"savings_percent"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// FetchMs is the time spent retrieving the page.
	FetchMs int64 `json:"fetch_ms"`

	// ProcessMs is the time spent cleaning and converting the content.
	ProcessMs int64 `json:"process_ms"`
}

// SearchResponse is the response for POST /api/v1/search.
type SearchResponse struct {
	Success bool           `json:"success"`
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Error   *ErrorDetail   `json:"error,omitempty"`
}

// ResearchResponse is the immediate response for POST /api/v1/research.
type ResearchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ResearchStatusResponse is the response for GET /api/v1/research/:id.
type ResearchStatusResponse struct {
	ID         string           `json:"id"`
	Status     string           `json:"status"`
	Completed  int              `json:"completed"`
	Total      int              `json:"total"`
	Queries    []QueryVariation `json:"queries,omitempty"`
	Pages      []*Page          `json:"pages,omitempty"`
	FailedURLs []string         `json:"failed_urls,omitempty"`
	Error      *ErrorDetail     `json:"error,omitempty"`
}

// ResearchJob tracks an in-progress research operation.
type ResearchJob struct {
	ID            string
	Status        string // "processing", "completed", "failed", "partial"
	Total         int
	Completed     int
	Queries       []QueryVariation
	Pages         []*Page
	FailedURLs    []string
	CreatedAt     int64 // unix timestamp
	WebhookURL    string
	WebhookSecret string
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
