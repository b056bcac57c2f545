// Package api wires the HTTP surface: routing, auth, rate limiting.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/research-gpt/researchgpt/api/handler"
	"github.com/research-gpt/researchgpt/api/middleware"
	"github.com/research-gpt/researchgpt/cache"
	"github.com/research-gpt/researchgpt/config"
	"github.com/research-gpt/researchgpt/processor"
)

// Deps are the services the router hands to its handlers.
type Deps struct {
	Fetcher   handler.Fetcher
	Processor *processor.Processor
	Searcher  handler.Searcher
	Runner    handler.Runner
	Pool      handler.PoolStatser
	Cache     *cache.Cache
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(deps Deps, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(deps.Pool, deps.StartTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/scrape", handler.Scrape(deps.Fetcher, deps.Processor, deps.Cache))
	protected.POST("/search", handler.Search(deps.Searcher))

	// Research jobs run asynchronously; poll by ID.
	protected.POST("/research", handler.PostResearch(deps.Runner))
	protected.GET("/research/:id", handler.GetResearch())

	return r
}
