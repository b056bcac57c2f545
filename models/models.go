package models

import "time"

// SearchResult is a single hit from Google Programmable Search.
type SearchResult struct {
	// Title is the page title as reported by the search index.
	Title string `json:"title"`

	// Link is the result URL.
	Link string `json:"link"`

	// Snippet is the short text excerpt shown under the result.
	Snippet string `json:"snippet"`

	// Rank is the 1-based position of the result within its query.
	Rank int `json:"rank"`
}

// QueryVariation is one LLM-generated search query for a research objective.
type QueryVariation struct {
	// Query is a concise search query, 4-10 words.
	Query string `json:"query"`

	// RelevancyScore estimates how relevant the query is to the
	// objective, from 0 (tangential) to 100 (central).
	RelevancyScore int `json:"relevancy_score"`
}

// Page is a fetched and processed document.
type Page struct {
	// URL is the address the page was requested from.
	URL string `json:"url"`

	// FinalURL is the address after following redirects. Equal to URL
	// when no redirect occurred.
	FinalURL string `json:"final_url,omitempty"`

	// Title is the page title.
	Title string `json:"title,omitempty"`

	// Markdown is the cleaned content converted to Markdown.
	Markdown string `json:"markdown,omitempty"`

	// Text is the cleaned plain-text content.
	Text string `json:"text,omitempty"`

	// Links are the absolute hyperlink targets found on the page.
	Links []string `json:"links,omitempty"`

	// Engine records which fetch engine produced the HTML
	// ("http" or "browser").
	Engine string `json:"engine,omitempty"`

	// FetchedAt is when the page was retrieved.
	FetchedAt time.Time `json:"fetched_at,omitempty"`
}

// LLMUsage reports token consumption of an LLM call.
type LLMUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
