// Package search wraps the Google Programmable Search JSON API for
// discovering candidate URLs to research.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/research-gpt/researchgpt/config"
	"github.com/research-gpt/researchgpt/models"
)

// Client searches Google Programmable Search and returns ranked results.
type Client struct {
	svc *customsearch.Service
	cfg config.SearchConfig
}

// New constructs a search client. Fails fast when credentials are missing
// so callers learn about misconfiguration at startup, not mid-run.
// Extra options (such as option.WithEndpoint in tests) are appended after
// the API key.
func New(ctx context.Context, cfg config.SearchConfig, opts ...option.ClientOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, models.NewError(models.ErrCodeCredentials,
			"Google API key is missing, set GOOGLE_API_KEY", nil)
	}
	if cfg.CX == "" {
		return nil, models.NewError(models.ErrCodeCredentials,
			"Google search engine ID is missing, set GOOGLE_CX", nil)
	}

	allOpts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	svc, err := customsearch.NewService(ctx, allOpts...)
	if err != nil {
		return nil, models.NewError(models.ErrCodeSearch, "create search service", err)
	}

	return &Client{svc: svc, cfg: cfg}, nil
}

// Search runs one query and returns results ranked 1..n in the order the
// API returned them. lastNDays restricts results to pages indexed within
// that window; 0 means no restriction.
//
// Transient failures are retried with exponential backoff up to the
// configured maximum; the last error is returned when every attempt fails.
func (c *Client) Search(ctx context.Context, query string, lastNDays int) ([]models.SearchResult, error) {
	delay := c.cfg.RetryDelay
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		results, err := c.searchOnce(ctx, query, lastNDays)
		if err == nil {
			slog.Info("search completed", "query", query, "results", len(results))
			return results, nil
		}
		lastErr = err
		slog.Warn("search attempt failed",
			"query", query, "attempt", attempt, "max", c.cfg.MaxRetries, "error", err,
		)

		if attempt == c.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, models.NewError(models.ErrCodeTimeout, "search cancelled", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, models.NewError(models.ErrCodeSearch,
		fmt.Sprintf("search failed after %d attempts", c.cfg.MaxRetries), lastErr)
}

func (c *Client) searchOnce(ctx context.Context, query string, lastNDays int) ([]models.SearchResult, error) {
	call := c.svc.Cse.List().Q(query).Cx(c.cfg.CX).Context(ctx)
	if lastNDays > 0 {
		call = call.DateRestrict(fmt.Sprintf("d[%d]", lastNDays))
	}

	resp, err := call.Do()
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(resp.Items))
	for i, item := range resp.Items {
		results = append(results, models.SearchResult{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
			Rank:    i + 1,
		})
	}
	return results, nil
}
