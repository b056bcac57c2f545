// Package queries turns a research objective into a set of Google search
// queries using an OpenAI-compatible chat completion API.
package queries

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/research-gpt/researchgpt/config"
	"github.com/research-gpt/researchgpt/models"
)

// Generator is a lightweight OpenAI-compatible chat client for query
// generation. It uses net/http directly, no SDK needed for one endpoint.
type Generator struct {
	httpClient *http.Client
	cfg        config.LLMConfig
}

// New creates a Generator. Pass nil to use a default http.Client.
func New(httpClient *http.Client, cfg config.LLMConfig) *Generator {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Generator{httpClient: httpClient, cfg: cfg}
}

// chatRequest is the OpenAI chat completion request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the minimal chat completion response we need.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage models.LLMUsage `json:"usage"`
}

// chatErrorResponse captures an API error from the LLM provider.
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// queryList mirrors the JSON structure the model is asked to return.
type queryList struct {
	Output []models.QueryVariation `json:"output"`
}

const systemPrompt = `You are a highly experienced professional researcher. You are skilled at using
Google Search to explore research topics and fully discover new areas. You are
proficient at starting with a root concept and expanding to adjacent search
topics that help support your primary research objective. You are excellent at
crafting google search queries that find the needed information.

INTERNAL PROCESS (NOT PART OF OUTPUT):
- Consider the most important aspects of the objective
- Consider tangential topics that are support of the objective
- Generate 10 queries that will retrieve all of the relevant content

Return ONLY valid JSON, no markdown fences or explanation, in this shape:
{"output": [{"query": "...", "relevancy_score": 0}]}

Each query is a concise search query that helps to gather information about
part of the objective. Target 4-6 words, never exceed 10 words. Each
relevancy_score is an integer between 0 and 100 describing how relevant or
important the query is to the research objective.`

// Generate asks the model for query variations covering the objective.
// Results are sorted by descending relevancy score; out-of-range scores
// are clamped to [0, 100] and empty queries dropped.
func (g *Generator) Generate(ctx context.Context, objective string) ([]models.QueryVariation, error) {
	if g.cfg.APIKey == "" {
		return nil, models.NewError(models.ErrCodeCredentials,
			"LLM API key is missing, set OPENAI_API_KEY", nil)
	}

	slog.Info("generating search queries", "objective_length", len(objective))

	reqBody := chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "OBJECTIVE:\n" + objective},
		},
		Temperature:    g.cfg.Temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(g.cfg.BaseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, models.NewError(models.ErrCodeLLMFailure, "LLM request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewError(models.ErrCodeLLMFailure, "failed to read LLM response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyLLMError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, models.NewError(models.ErrCodeLLMFailure, "failed to parse LLM response", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, models.NewError(models.ErrCodeLLMFailure, "LLM returned no choices", nil)
	}

	var list queryList
	if err := json.Unmarshal([]byte(chatResp.Choices[0].Message.Content), &list); err != nil {
		return nil, models.NewError(models.ErrCodeLLMFailure, "LLM returned invalid query JSON", err)
	}

	variations := normalize(list.Output)
	if len(variations) == 0 {
		return nil, models.NewError(models.ErrCodeLLMFailure, "LLM returned no usable queries", nil)
	}

	slog.Info("generated search queries",
		"count", len(variations),
		"prompt_tokens", chatResp.Usage.PromptTokens,
		"completion_tokens", chatResp.Usage.CompletionTokens,
		"total_tokens", chatResp.Usage.TotalTokens,
	)
	return variations, nil
}

// normalize drops empty queries, clamps scores into [0, 100] and sorts by
// descending score so callers can simply take the top N.
func normalize(in []models.QueryVariation) []models.QueryVariation {
	out := make([]models.QueryVariation, 0, len(in))
	for _, v := range in {
		v.Query = strings.TrimSpace(v.Query)
		if v.Query == "" {
			continue
		}
		if v.RelevancyScore < 0 {
			v.RelevancyScore = 0
		}
		if v.RelevancyScore > 100 {
			v.RelevancyScore = 100
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevancyScore > out[j].RelevancyScore
	})
	return out
}

// classifyLLMError maps HTTP status codes to appropriate error codes.
func classifyLLMError(statusCode int, body []byte) *models.Error {
	var errResp chatErrorResponse
	msg := "LLM API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewError(models.ErrCodeLLMAuthFailure, msg, nil)
	case statusCode == http.StatusTooManyRequests:
		return models.NewError(models.ErrCodeLLMRateLimited, msg, nil)
	default:
		return models.NewError(models.ErrCodeLLMFailure, fmt.Sprintf("LLM API returned %d: %s", statusCode, msg), nil)
	}
}
