package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/research-gpt/researchgpt/config"
	"github.com/research-gpt/researchgpt/models"
)

// Fetcher retrieves page HTML with an HTTP-first strategy and a headless
// browser fallback. A fetch goes through up to MaxRetries additional
// attempts with exponentially growing delays before giving up.
type Fetcher struct {
	httpEngine    Engine
	browserEngine Engine // nil when the browser is disabled
	memory        *DomainMemory
	cfg           config.FetcherConfig
}

// New creates a Fetcher. browserEngine may be nil; ModeBrowser requests and
// automatic escalation then fail with an explicit error instead of rendering.
func New(httpEngine, browserEngine Engine, memory *DomainMemory, cfg config.FetcherConfig) *Fetcher {
	return &Fetcher{
		httpEngine:    httpEngine,
		browserEngine: browserEngine,
		memory:        memory,
		cfg:           cfg,
	}
}

// RetryDelay returns the delay before retry attempt n (1-based):
// initial * 2^(n-1). So with a 3s initial delay retries wait 3s, 6s, 12s.
func RetryDelay(n int, initial time.Duration) time.Duration {
	if n < 1 {
		return 0
	}
	return initial * (1 << uint(n-1))
}

// Fetch retrieves the page, retrying failed attempts with exponential
// backoff. The request timeout (capped at the configured maximum) bounds
// every individual attempt; the passed context bounds the whole operation
// including backoff sleeps.
func (f *Fetcher) Fetch(ctx context.Context, req *Request) (*Result, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = f.cfg.RequestTimeout
	}
	if timeout > f.cfg.MaxTimeout {
		timeout = f.cfg.MaxTimeout
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		result, err := f.fetchOnce(attemptCtx, req)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt >= f.cfg.MaxRetries {
			break
		}

		delay := RetryDelay(attempt+1, f.cfg.InitialRetryDelay)
		slog.Warn("fetch attempt failed, retrying",
			"url", req.URL,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, categorizeError(ctx.Err(), "fetch aborted during retry backoff")
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

// FetchHTML is a convenience wrapper that fetches a URL with default
// settings and returns just the raw HTML.
func (f *Fetcher) FetchHTML(ctx context.Context, rawURL string) (string, error) {
	result, err := f.Fetch(ctx, &Request{URL: rawURL})
	if err != nil {
		return "", err
	}
	return result.HTML, nil
}

// fetchOnce runs a single fetch attempt according to the request mode.
func (f *Fetcher) fetchOnce(ctx context.Context, req *Request) (*Result, error) {
	mode := req.Mode
	if mode == "" {
		mode = ModeAuto
	}

	switch mode {
	case ModeHTTP:
		return f.httpEngine.Fetch(ctx, req)
	case ModeBrowser:
		if f.browserEngine == nil {
			return nil, models.NewError(models.ErrCodeNavigation, "browser engine not available", nil)
		}
		return f.browserEngine.Fetch(ctx, req)
	default:
		return f.fetchAuto(ctx, req)
	}
}

// fetchAuto tries the HTTP engine first and escalates to the browser when
// the HTTP response errors out or looks like an incomplete load. Domains
// already known to need the browser skip the HTTP attempt entirely.
func (f *Fetcher) fetchAuto(ctx context.Context, req *Request) (*Result, error) {
	domain := extractDomain(req.URL)

	if f.memory != nil && f.browserEngine != nil && f.memory.BrowserRequired(domain) {
		slog.Debug("domain memory: skipping http attempt", "domain", domain)
		result, err := f.browserEngine.Fetch(ctx, req)
		if err == nil {
			return result, nil
		}
		// The remembered verdict stopped working; run the full path again.
		f.memory.Forget(domain)
	}

	result, httpErr := f.httpEngine.Fetch(ctx, req)
	if httpErr == nil && !NeedsBrowser(result.HTML) {
		if f.memory != nil {
			f.memory.Record(domain, false)
		}
		return result, nil
	}

	if f.browserEngine == nil {
		if httpErr != nil {
			return nil, httpErr
		}
		// Incomplete load and nothing to escalate to: return what we have.
		return result, nil
	}

	if httpErr != nil {
		slog.Debug("http engine failed, falling back to browser",
			"url", req.URL, "error", httpErr)
	} else {
		slog.Debug("http response looks incomplete, falling back to browser",
			"url", req.URL)
	}

	browserResult, browserErr := f.browserEngine.Fetch(ctx, req)
	if browserErr != nil {
		if httpErr != nil {
			return nil, fmt.Errorf("fetcher: both engines failed: http: %v; browser: %w", httpErr, browserErr)
		}
		// The HTTP result was incomplete but is all we have.
		return result, nil
	}

	if f.memory != nil {
		f.memory.Record(domain, true)
	}
	return browserResult, nil
}

// extractDomain parses the hostname from a URL string.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
