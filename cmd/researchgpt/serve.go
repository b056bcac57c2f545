package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/research-gpt/researchgpt/api"
	"github.com/research-gpt/researchgpt/api/handler"
	"github.com/research-gpt/researchgpt/archive"
	"github.com/research-gpt/researchgpt/cache"
	"github.com/research-gpt/researchgpt/fetcher"
	"github.com/research-gpt/researchgpt/models"
	"github.com/research-gpt/researchgpt/pipeline"
	"github.com/research-gpt/researchgpt/processor"
	"github.com/research-gpt/researchgpt/queries"
	"github.com/research-gpt/researchgpt/search"
)

// services bundles everything a command needs to fetch and process pages.
type services struct {
	fetcher   *fetcher.Fetcher
	browser   *fetcher.BrowserEngine // nil when Chrome is unavailable
	memory    *fetcher.DomainMemory
	processor *processor.Processor
	archive   *archive.Archive
	pipeline  *pipeline.Pipeline
	searcher  pipeline.Searcher
}

// buildServices assembles the service graph. withBrowser controls whether
// headless Chrome is launched; commands that never render JS skip it.
func buildServices(ctx context.Context, withBrowser bool) (*services, error) {
	httpEngine := fetcher.NewHTTPEngine()

	var browserEngine fetcher.Engine
	var browser *fetcher.BrowserEngine
	if withBrowser {
		be, err := fetcher.NewBrowserEngine(cfg.Browser)
		if err != nil {
			slog.Warn("browser engine unavailable, continuing with plain HTTP only", "error", err)
		} else {
			browser = be
			browserEngine = be
		}
	}

	memory := fetcher.NewDomainMemory(cfg.Fetcher.EngineMemoryTTL)
	f := fetcher.New(httpEngine, browserEngine, memory, cfg.Fetcher)
	proc := processor.New()
	arch := archive.New(afero.NewOsFs(), cfg.Archive)

	var searcher pipeline.Searcher
	sc, err := search.New(ctx, cfg.Search)
	if err != nil {
		slog.Warn("search unavailable", "error", err)
		searcher = unavailableSearcher{err: err}
	} else {
		searcher = sc
	}

	gen := queries.New(nil, cfg.LLM)
	pipe := pipeline.New(f, proc, searcher, gen, arch, cfg.Pipeline)

	return &services{
		fetcher:   f,
		browser:   browser,
		memory:    memory,
		processor: proc,
		archive:   arch,
		pipeline:  pipe,
		searcher:  searcher,
	}, nil
}

// close releases browser pages and background goroutines.
func (s *services) close() {
	if s.browser != nil {
		s.browser.Close()
	}
	s.memory.Stop()
}

// unavailableSearcher reports the startup credential error on every call
// instead of making search failures look like empty result sets.
type unavailableSearcher struct{ err error }

func (u unavailableSearcher) Search(ctx context.Context, query string, lastNDays int) ([]models.SearchResult, error) {
	return nil, u.err
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("researchgpt starting",
				"host", cfg.Server.Host,
				"port", cfg.Server.Port,
				"mode", cfg.Server.Mode,
				"maxPages", cfg.Browser.MaxPages,
			)

			svcs, err := buildServices(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer svcs.close()

			cc := cache.New(cfg.Cache.MaxEntries)
			defer cc.Stop()

			var pool handler.PoolStatser
			if svcs.browser != nil {
				pool = svcs.browser
			}

			router := api.NewRouter(api.Deps{
				Fetcher:   svcs.fetcher,
				Processor: svcs.processor,
				Searcher:  svcs.searcher,
				Runner:    svcs.pipeline,
				Pool:      pool,
				Cache:     cc,
				StartTime: time.Now(),
			}, cfg)

			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			srv := &http.Server{
				Addr:    addr,
				Handler: router,
			}

			go func() {
				slog.Info("HTTP server listening", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					slog.Error("HTTP server error", "error", err)
					os.Exit(1)
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			sig := <-quit
			slog.Info("shutdown signal received", "signal", sig.String())

			// Give in-flight requests 5 seconds to complete.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				slog.Error("HTTP server forced shutdown", "error", err)
			} else {
				slog.Info("HTTP server drained gracefully")
			}

			slog.Info("researchgpt stopped")
			return nil
		},
	}
}
