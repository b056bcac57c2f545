package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/research-gpt/researchgpt/cache"
	"github.com/research-gpt/researchgpt/fetcher"
	"github.com/research-gpt/researchgpt/models"
	"github.com/research-gpt/researchgpt/processor"
)

// Fetcher retrieves raw HTML for one request.
type Fetcher interface {
	Fetch(ctx context.Context, req *fetcher.Request) (*fetcher.Result, error)
}

// Scrape returns a handler for POST /api/v1/scrape.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Cache lookup when the client sent max_age.
//  3. Fetch raw HTML                (records fetch_ms)
//  4. Process to requested format   (records process_ms)
//  5. Fill Timing, store in cache, return 200.
func Scrape(f Fetcher, proc *processor.Processor, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ScrapeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		if cc != nil && req.MaxAge > 0 {
			cacheKey := cache.Key(req.URL, req.OutputFormat, req.ExtractMode)
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				// Copy before mutating: the cached value is shared with
				// concurrent requests for the same key.
				resp := *cached
				resp.CacheStatus = "hit"
				resp.Timing = models.TimingInfo{
					TotalMs: time.Since(totalStart).Milliseconds(),
				}
				c.JSON(http.StatusOK, &resp)
				return
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(req.Timeout)*time.Second)
		defer cancel()

		fetchStart := time.Now()
		result, err := f.Fetch(ctx, &fetcher.Request{
			URL:     req.URL,
			Mode:    req.FetchMode,
			Stealth: req.Stealth,
		})
		fetchMs := time.Since(fetchStart).Milliseconds()

		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
				FetchMs: fetchMs,
			})
			return
		}

		processStart := time.Now()
		doc, err := proc.Process(result.HTML, req.URL, processor.Options{
			OutputFormat:   req.OutputFormat,
			ExtractMode:    req.ExtractMode,
			CSSSelector:    req.CSSSelector,
			RemoveElements: req.RemoveElements,
		})
		processMs := time.Since(processStart).Milliseconds()

		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs:   time.Since(totalStart).Milliseconds(),
				FetchMs:   fetchMs,
				ProcessMs: processMs,
			})
			return
		}

		// Readability usually extracts a better title; fall back to the
		// one the fetch engine saw.
		if doc.Metadata.Title == "" {
			doc.Metadata.Title = result.Title
		}

		resp := &models.ScrapeResponse{
			Success:  true,
			FinalURL: result.FinalURL,
			Content:  doc.Content,
			Metadata: doc.Metadata,
			Links:    doc.Links,
			Tokens:   doc.Tokens,
			Engine:   result.Engine,
			Timing: models.TimingInfo{
				TotalMs:   time.Since(totalStart).Milliseconds(),
				FetchMs:   fetchMs,
				ProcessMs: processMs,
			},
		}

		if cc != nil && req.MaxAge > 0 {
			// Store a copy with no cache status so later hits start clean.
			stored := *resp
			stored.Timing = models.TimingInfo{}
			cc.Set(cache.Key(req.URL, req.OutputFormat, req.ExtractMode), &stored)
			resp.CacheStatus = "miss"
		}

		c.JSON(http.StatusOK, resp)
	}
}

// respondError maps an internal error to the correct HTTP status code and
// writes a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	var appErr *models.Error
	if !errors.As(err, &appErr) {
		appErr = models.NewError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(appErr), models.ScrapeResponse{
		Success: false,
		Error:   appErr.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.Error) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeIncomplete,
		models.ErrCodeSearch, models.ErrCodeLLMFailure:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited, models.ErrCodeLLMRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeCredentials:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}
