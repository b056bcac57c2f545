package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/research-gpt/researchgpt/cache"
	"github.com/research-gpt/researchgpt/fetcher"
	"github.com/research-gpt/researchgpt/models"
	"github.com/research-gpt/researchgpt/pipeline"
	"github.com/research-gpt/researchgpt/processor"
)

const testPageHTML = `<html><head><title>Quarterly Report</title></head><body>
<h1>Quarterly Report</h1>
<p>Revenue grew across every segment this quarter, driven by strong demand
in the enterprise tier and a successful expansion into two new regions.</p>
</body></html>`

type fakeFetcher struct {
	html string
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, req *fetcher.Request) (*fetcher.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &fetcher.Result{
		HTML:     f.html,
		Title:    "Quarterly Report",
		FinalURL: req.URL,
		Engine:   "http",
	}, nil
}

func scrapeRouter(f Fetcher, cc *cache.Cache) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/scrape", Scrape(f, processor.New(), cc))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestScrape(t *testing.T) {
	r := scrapeRouter(&fakeFetcher{html: testPageHTML}, nil)

	w := doJSON(t, r, http.MethodPost, "/scrape", models.ScrapeRequest{
		URL: "https://example.com/report",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp models.ScrapeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Fatalf("success = false: %+v", resp.Error)
	}
	if !strings.Contains(resp.Content, "# Quarterly Report") {
		t.Errorf("content missing heading:\n%s", resp.Content)
	}
	if resp.Engine != "http" {
		t.Errorf("engine = %q", resp.Engine)
	}
	if resp.Metadata.Title == "" {
		t.Error("metadata title empty")
	}
}

func TestScrape_InvalidRequest(t *testing.T) {
	r := scrapeRouter(&fakeFetcher{html: testPageHTML}, nil)

	w := doJSON(t, r, http.MethodPost, "/scrape", map[string]string{"url": "not a url"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestScrape_FetchErrorMapsStatus(t *testing.T) {
	tests := []struct {
		name string
		code string
		want int
	}{
		{"timeout", models.ErrCodeTimeout, http.StatusGatewayTimeout},
		{"navigation", models.ErrCodeNavigation, http.StatusBadGateway},
		{"internal", models.ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := scrapeRouter(&fakeFetcher{err: models.NewError(tt.code, "boom", nil)}, nil)
			w := doJSON(t, r, http.MethodPost, "/scrape", models.ScrapeRequest{
				URL: "https://example.com/report",
			})
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}

			var resp models.ScrapeResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Success || resp.Error == nil || resp.Error.Code != tt.code {
				t.Errorf("error body = %+v", resp)
			}
		})
	}
}

func TestScrape_CacheHit(t *testing.T) {
	cc := cache.New(10)
	defer cc.Stop()
	r := scrapeRouter(&fakeFetcher{html: testPageHTML}, cc)

	req := models.ScrapeRequest{URL: "https://example.com/report", MaxAge: 60000}

	first := doJSON(t, r, http.MethodPost, "/scrape", req)
	var firstResp models.ScrapeResponse
	if err := json.Unmarshal(first.Body.Bytes(), &firstResp); err != nil {
		t.Fatal(err)
	}
	if firstResp.CacheStatus != "miss" {
		t.Errorf("first cache status = %q, want miss", firstResp.CacheStatus)
	}

	second := doJSON(t, r, http.MethodPost, "/scrape", req)
	var secondResp models.ScrapeResponse
	if err := json.Unmarshal(second.Body.Bytes(), &secondResp); err != nil {
		t.Fatal(err)
	}
	if secondResp.CacheStatus != "hit" {
		t.Errorf("second cache status = %q, want hit", secondResp.CacheStatus)
	}

	// Serving a hit must not leak per-request state into the shared entry.
	key := cache.Key(req.URL, "markdown", "strip")
	stored, ok := cc.Get(key, req.MaxAge)
	if !ok {
		t.Fatal("cached entry missing after hit")
	}
	if stored.CacheStatus != "" {
		t.Errorf("stored cache status = %q, want empty", stored.CacheStatus)
	}
	if stored.Timing.TotalMs != 0 {
		t.Errorf("stored timing = %+v, want zero", stored.Timing)
	}
}

type fakeSearcher struct {
	results []models.SearchResult
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, lastNDays int) ([]models.SearchResult, error) {
	return f.results, f.err
}

func TestSearch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/search", Search(&fakeSearcher{results: []models.SearchResult{
		{Title: "Hit", Link: "https://example.com", Snippet: "s", Rank: 1},
	}}))

	w := doJSON(t, r, http.MethodPost, "/search", models.SearchRequest{Query: "anything"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp models.SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || len(resp.Results) != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestSearch_MissingQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/search", Search(&fakeSearcher{}))

	w := doJSON(t, r, http.MethodPost, "/search", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSearch_CredentialsError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/search", Search(&fakeSearcher{
		err: models.NewError(models.ErrCodeCredentials, "no key", nil),
	}))

	w := doJSON(t, r, http.MethodPost, "/search", models.SearchRequest{Query: "q"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

type fakeRunner struct {
	result *pipeline.Result
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, objective string, presetQueries []string, opts pipeline.Options, onPage pipeline.PageFunc) (*pipeline.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	if onPage != nil {
		for _, p := range f.result.Pages {
			onPage(p)
		}
	}
	return f.result, nil
}

func TestResearchLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	runner := &fakeRunner{result: &pipeline.Result{
		Queries:       []models.QueryVariation{{Query: "q", RelevancyScore: 90}},
		SearchResults: []models.SearchResult{{Link: "https://example.com", Rank: 1}},
		Pages:         []*models.Page{{URL: "https://example.com", Text: "body"}},
	}}
	r.POST("/research", PostResearch(runner))
	r.GET("/research/:id", GetResearch())

	w := doJSON(t, r, http.MethodPost, "/research", models.ResearchRequest{
		Objective: "learn something",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var accepted models.ResearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &accepted); err != nil {
		t.Fatal(err)
	}
	if accepted.ID == "" || accepted.Status != "processing" {
		t.Fatalf("accepted = %+v", accepted)
	}

	// The job runs in a goroutine; poll until it settles.
	var status models.ResearchStatusResponse
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		get := httptest.NewRecorder()
		r.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/research/"+accepted.ID, nil))
		if get.Code != http.StatusOK {
			t.Fatalf("poll status = %d", get.Code)
		}
		if err := json.Unmarshal(get.Body.Bytes(), &status); err != nil {
			t.Fatal(err)
		}
		if status.Status != "processing" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if status.Status != "completed" {
		t.Errorf("final status = %q, want completed", status.Status)
	}
	if status.Completed != 1 || len(status.Pages) != 1 {
		t.Errorf("status = %+v", status)
	}
}

func TestResearch_RequiresObjectiveOrQueries(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/research", PostResearch(&fakeRunner{}))

	w := doJSON(t, r, http.MethodPost, "/research", models.ResearchRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestResearch_UnknownJob(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/research/:id", GetResearch())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/research/research-missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
