// Package pipeline drives a full research run: turn an objective into
// search queries, collect result URLs, fetch and process each page under
// concurrency and politeness limits, and archive what survives
// deduplication.
package pipeline

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/research-gpt/researchgpt/archive"
	"github.com/research-gpt/researchgpt/config"
	"github.com/research-gpt/researchgpt/dedup"
	"github.com/research-gpt/researchgpt/fetcher"
	"github.com/research-gpt/researchgpt/models"
	"github.com/research-gpt/researchgpt/processor"
)

// Fetcher retrieves raw HTML for one URL, retrying internally.
type Fetcher interface {
	Fetch(ctx context.Context, req *fetcher.Request) (*fetcher.Result, error)
}

// Searcher returns ranked search results for a query.
type Searcher interface {
	Search(ctx context.Context, query string, lastNDays int) ([]models.SearchResult, error)
}

// Generator expands a research objective into search queries.
type Generator interface {
	Generate(ctx context.Context, objective string) ([]models.QueryVariation, error)
}

// Archiver persists a fetched page. The pipeline treats persistence as
// best effort: an archive failure is logged, not fatal.
type Archiver interface {
	Save(page *models.Page, rawHTML string) (string, error)
}

// Options are the per-run scrape settings applied to every page.
type Options struct {
	OutputFormat string
	ExtractMode  string
	LastNDays    int
	Stealth      bool
	MaxURLs      int
}

// Result is the outcome of a research run.
type Result struct {
	Queries       []models.QueryVariation
	SearchResults []models.SearchResult
	Pages         []*models.Page
	FailedURLs    []string
	Duplicates    int
}

// PageFunc is called once per successfully processed page, from worker
// goroutines. Implementations must be safe for concurrent use.
type PageFunc func(page *models.Page)

// Pipeline coordinates query generation, search, fetching, processing
// and archival for research runs. Safe for concurrent use.
type Pipeline struct {
	fetch  Fetcher
	proc   *processor.Processor
	search Searcher
	gen    Generator
	arch   Archiver
	cfg    config.PipelineConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New assembles a Pipeline. gen and arch may be nil: without gen the
// pipeline requires preset queries, without arch pages are not persisted.
func New(fetch Fetcher, proc *processor.Processor, search Searcher, gen Generator, arch Archiver, cfg config.PipelineConfig) *Pipeline {
	return &Pipeline{
		fetch:    fetch,
		proc:     proc,
		search:   search,
		gen:      gen,
		arch:     arch,
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Run executes a research job end to end. When presetQueries is non-empty
// they are searched as-is; otherwise queries are generated from objective.
// onPage may be nil.
func (p *Pipeline) Run(ctx context.Context, objective string, presetQueries []string, opts Options, onPage PageFunc) (*Result, error) {
	res := &Result{}

	queryTexts := presetQueries
	if len(queryTexts) == 0 {
		if p.gen == nil {
			return nil, models.NewError(models.ErrCodeInvalidInput,
				"no queries given and query generation is not configured", nil)
		}
		variations, err := p.gen.Generate(ctx, objective)
		if err != nil {
			return nil, err
		}
		res.Queries = variations
		for _, v := range variations {
			queryTexts = append(queryTexts, v.Query)
		}
	} else {
		for _, q := range presetQueries {
			res.Queries = append(res.Queries, models.QueryVariation{Query: q, RelevancyScore: 100})
		}
	}

	searchResults, err := p.CollectURLs(ctx, queryTexts, opts.LastNDays, p.maxURLs(opts))
	if err != nil {
		return nil, err
	}
	res.SearchResults = searchResults

	urls := make([]string, 0, len(searchResults))
	for _, r := range searchResults {
		urls = append(urls, r.Link)
	}

	pages, failed, duplicates := p.ScrapeAll(ctx, urls, opts, onPage)
	res.Pages = pages
	res.FailedURLs = failed
	res.Duplicates = duplicates

	slog.Info("research run finished",
		"queries", len(queryTexts),
		"urls", len(urls),
		"pages", len(pages),
		"failed", len(failed),
		"duplicates", duplicates,
	)
	return res, nil
}

// CollectURLs searches every query and merges the hits round-robin by
// rank, so the top result of each query comes before anyone's second.
// Duplicate links are dropped and the merged list is capped at maxURLs.
// A query whose search fails is skipped; the error is only returned when
// every query fails.
func (p *Pipeline) CollectURLs(ctx context.Context, queryTexts []string, lastNDays, maxURLs int) ([]models.SearchResult, error) {
	perQuery := make([][]models.SearchResult, 0, len(queryTexts))
	var lastErr error

	for _, q := range queryTexts {
		results, err := p.search.Search(ctx, q, lastNDays)
		if err != nil {
			slog.Warn("query skipped after search failure", "query", q, "error", err)
			lastErr = err
			continue
		}
		perQuery = append(perQuery, results)
	}

	if len(perQuery) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, models.NewError(models.ErrCodeSearch, "no queries to search", nil)
	}

	merged := make([]models.SearchResult, 0, maxURLs)
	seen := make(map[string]struct{})
	for depth := 0; len(merged) < maxURLs; depth++ {
		advanced := false
		for _, results := range perQuery {
			if depth >= len(results) {
				continue
			}
			advanced = true
			r := results[depth]
			if _, ok := seen[r.Link]; ok {
				continue
			}
			seen[r.Link] = struct{}{}
			merged = append(merged, r)
			if len(merged) == maxURLs {
				break
			}
		}
		if !advanced {
			break
		}
	}

	// Re-rank across the merged list.
	for i := range merged {
		merged[i].Rank = i + 1
	}
	return merged, nil
}

// ScrapeAll fetches, processes and archives urls concurrently. Returns
// the successful pages in completion order, the URLs that failed after
// every retry, and how many pages were dropped as near-duplicates.
func (p *Pipeline) ScrapeAll(ctx context.Context, urls []string, opts Options, onPage PageFunc) ([]*models.Page, []string, int) {
	sem := make(chan struct{}, p.maxConcurrent())
	dupes := dedup.NewSet(p.cfg.DedupeThreshold)

	var (
		mu         sync.Mutex
		pages      []*models.Page
		failed     []string
		duplicates int
		wg         sync.WaitGroup
	)

	slog.Info("scraping urls", "count", len(urls), "concurrency", p.maxConcurrent())

	for _, u := range urls {
		wg.Add(1)
		go func(target string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				failed = append(failed, target)
				mu.Unlock()
				return
			}

			page, err := p.scrapeOne(ctx, target, opts)
			if err != nil {
				slog.Warn("url failed", "url", target, "error", err)
				mu.Lock()
				failed = append(failed, target)
				mu.Unlock()
				return
			}

			if dupes.Seen(page.Text) {
				slog.Info("dropping near-duplicate page", "url", target)
				mu.Lock()
				duplicates++
				mu.Unlock()
				return
			}

			mu.Lock()
			pages = append(pages, page)
			mu.Unlock()

			if onPage != nil {
				onPage(page)
			}
		}(u)
	}

	wg.Wait()
	return pages, failed, duplicates
}

// scrapeOne fetches and processes a single URL, honoring the per-domain
// rate limit before touching the network.
func (p *Pipeline) scrapeOne(ctx context.Context, target string, opts Options) (*models.Page, error) {
	if err := p.limiter(hostOf(target)).Wait(ctx); err != nil {
		return nil, models.NewError(models.ErrCodeTimeout, "rate limit wait cancelled", err)
	}

	result, err := p.fetch.Fetch(ctx, &fetcher.Request{
		URL:     target,
		Mode:    fetcher.ModeAuto,
		Stealth: opts.Stealth,
	})
	if err != nil {
		return nil, err
	}

	doc, err := p.proc.Process(result.HTML, target, processor.Options{
		OutputFormat: opts.OutputFormat,
		ExtractMode:  opts.ExtractMode,
	})
	if err != nil {
		return nil, err
	}

	page := &models.Page{
		URL:       target,
		FinalURL:  result.FinalURL,
		Title:     firstNonEmpty(doc.Metadata.Title, result.Title),
		Markdown:  doc.Content,
		Text:      doc.Text,
		Links:     processor.Hrefs(doc.Links),
		Engine:    result.Engine,
		FetchedAt: time.Now().UTC(),
	}

	if p.arch != nil {
		if _, err := p.arch.Save(page, result.HTML); err != nil {
			slog.Warn("archiving page failed", "url", target, "error", err)
		}
	}
	return page, nil
}

// limiter returns the shared rate limiter for a host, creating it on
// first use.
func (p *Pipeline) limiter(host string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(p.cfg.DomainRPS), p.cfg.DomainBurst)
		p.limiters[host] = l
	}
	return l
}

func (p *Pipeline) maxConcurrent() int {
	if p.cfg.MaxConcurrent > 0 {
		return p.cfg.MaxConcurrent
	}
	return 1
}

func (p *Pipeline) maxURLs(opts Options) int {
	if opts.MaxURLs > 0 {
		return opts.MaxURLs
	}
	if p.cfg.MaxURLs > 0 {
		return p.cfg.MaxURLs
	}
	return 20
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ensure archive.Archive satisfies Archiver
var _ Archiver = (*archive.Archive)(nil)
