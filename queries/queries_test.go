package queries

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/research-gpt/researchgpt/config"
	"github.com/research-gpt/researchgpt/models"
)

func testCfg(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		APIKey:      "test-key",
		BaseURL:     baseURL,
		Model:       "gpt-4o-mini",
		Temperature: 0.5,
	}
}

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	err := json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{
			"prompt_tokens":     310,
			"completion_tokens": 110,
			"total_tokens":      420,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}

		var req struct {
			Model       string  `json:"model"`
			Temperature float64 `json:"temperature"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("model = %q", req.Model)
		}

		chatReply(t, w, `{"output": [
			{"query": "rookie quarterback rankings 2026", "relevancy_score": 70},
			{"query": "dynasty league draft strategy", "relevancy_score": 95}
		]}`)
	}))
	defer srv.Close()

	g := New(srv.Client(), testCfg(srv.URL))
	got, err := g.Generate(context.Background(), "plan a dynasty fantasy draft")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d queries, want 2", len(got))
	}
	if got[0].Query != "dynasty league draft strategy" {
		t.Errorf("queries not sorted by relevancy, first = %q", got[0].Query)
	}
	if got[0].RelevancyScore != 95 {
		t.Errorf("first score = %d, want 95", got[0].RelevancyScore)
	}
}

func TestGenerate_ReportsTokenUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, `{"output": [{"query": "solar panel efficiency trends", "relevancy_score": 90}]}`)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	g := New(srv.Client(), testCfg(srv.URL))
	if _, err := g.Generate(context.Background(), "anything"); err != nil {
		t.Fatal(err)
	}

	logs := buf.String()
	for _, want := range []string{"prompt_tokens=310", "completion_tokens=110", "total_tokens=420"} {
		if !strings.Contains(logs, want) {
			t.Errorf("log output missing %q:\n%s", want, logs)
		}
	}
}

func TestGenerate_ClampsAndFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, `{"output": [
			{"query": "over the top score", "relevancy_score": 150},
			{"query": "  ", "relevancy_score": 50},
			{"query": "negative score", "relevancy_score": -5}
		]}`)
	}))
	defer srv.Close()

	g := New(srv.Client(), testCfg(srv.URL))
	got, err := g.Generate(context.Background(), "anything")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d queries, want 2 (blank query dropped)", len(got))
	}
	if got[0].RelevancyScore != 100 {
		t.Errorf("high score clamp = %d, want 100", got[0].RelevancyScore)
	}
	if got[1].RelevancyScore != 0 {
		t.Errorf("low score clamp = %d, want 0", got[1].RelevancyScore)
	}
}

func TestGenerate_InvalidJSONContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, "here are some queries: ...")
	}))
	defer srv.Close()

	g := New(srv.Client(), testCfg(srv.URL))
	_, err := g.Generate(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error for non-JSON content")
	}
	var appErr *models.Error
	if !errors.As(err, &appErr) || appErr.Code != models.ErrCodeLLMFailure {
		t.Errorf("error = %v, want code %s", err, models.ErrCodeLLMFailure)
	}
}

func TestGenerate_EmptyOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, `{"output": []}`)
	}))
	defer srv.Close()

	g := New(srv.Client(), testCfg(srv.URL))
	if _, err := g.Generate(context.Background(), "anything"); err == nil {
		t.Fatal("expected error for empty query list")
	}
}

func TestGenerate_AuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "invalid api key"},
		})
	}))
	defer srv.Close()

	g := New(srv.Client(), testCfg(srv.URL))
	_, err := g.Generate(context.Background(), "anything")

	var appErr *models.Error
	if !errors.As(err, &appErr) || appErr.Code != models.ErrCodeLLMAuthFailure {
		t.Errorf("error = %v, want code %s", err, models.ErrCodeLLMAuthFailure)
	}
	if appErr != nil && appErr.Message != "invalid api key" {
		t.Errorf("message = %q, want provider message", appErr.Message)
	}
}

func TestGenerate_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := New(srv.Client(), testCfg(srv.URL))
	_, err := g.Generate(context.Background(), "anything")

	var appErr *models.Error
	if !errors.As(err, &appErr) || appErr.Code != models.ErrCodeLLMRateLimited {
		t.Errorf("error = %v, want code %s", err, models.ErrCodeLLMRateLimited)
	}
}

func TestGenerate_MissingKey(t *testing.T) {
	g := New(nil, config.LLMConfig{BaseURL: "https://api.openai.com/v1"})
	_, err := g.Generate(context.Background(), "anything")

	var appErr *models.Error
	if !errors.As(err, &appErr) || appErr.Code != models.ErrCodeCredentials {
		t.Errorf("error = %v, want code %s", err, models.ErrCodeCredentials)
	}
}
