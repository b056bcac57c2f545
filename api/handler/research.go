package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/research-gpt/researchgpt/models"
	"github.com/research-gpt/researchgpt/pipeline"
	"github.com/research-gpt/researchgpt/webhook"
)

// Runner executes a full research job.
type Runner interface {
	Run(ctx context.Context, objective string, presetQueries []string, opts pipeline.Options, onPage pipeline.PageFunc) (*pipeline.Result, error)
}

// jobStore holds all in-flight and completed research jobs.
var jobStore sync.Map

func init() {
	// Expire research jobs older than 1 hour.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			jobStore.Range(func(key, value any) bool {
				job := value.(*jobEntry)
				job.mu.Lock()
				created := job.job.CreatedAt
				job.mu.Unlock()
				if created < cutoff {
					jobStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// jobEntry wraps a ResearchJob with the lock protecting its mutable fields.
type jobEntry struct {
	mu  sync.Mutex
	job models.ResearchJob
}

// PostResearch returns a handler for POST /api/v1/research.
// The job runs in the background; the response carries the job ID for
// polling via GET /api/v1/research/:id.
func PostResearch(runner Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ResearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		if req.Objective == "" && len(req.Queries) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "either objective or queries is required",
				},
			})
			return
		}

		jobID := "research-" + randomID()
		entry := &jobEntry{
			job: models.ResearchJob{
				ID:            jobID,
				Status:        "processing",
				CreatedAt:     time.Now().Unix(),
				WebhookURL:    req.WebhookURL,
				WebhookSecret: req.WebhookSecret,
			},
		}
		jobStore.Store(jobID, entry)

		go runResearch(runner, entry, req)

		c.JSON(http.StatusOK, models.ResearchResponse{
			ID:     jobID,
			Status: "processing",
		})
	}
}

// GetResearch returns a handler for GET /api/v1/research/:id.
func GetResearch() gin.HandlerFunc {
	return func(c *gin.Context) {
		val, ok := jobStore.Load(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "research job not found",
				},
			})
			return
		}

		entry := val.(*jobEntry)
		entry.mu.Lock()
		resp := models.ResearchStatusResponse{
			ID:         entry.job.ID,
			Status:     entry.job.Status,
			Completed:  entry.job.Completed,
			Total:      entry.job.Total,
			Queries:    entry.job.Queries,
			Pages:      entry.job.Pages,
			FailedURLs: entry.job.FailedURLs,
		}
		entry.mu.Unlock()

		c.JSON(http.StatusOK, resp)
	}
}

// runResearch drives the pipeline for one job and fires webhook events.
func runResearch(runner Runner, entry *jobEntry, req models.ResearchRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	opts := pipeline.Options{
		OutputFormat: req.Options.OutputFormat,
		ExtractMode:  req.Options.ExtractMode,
		LastNDays:    req.Options.LastNDays,
		Stealth:      req.Options.Stealth,
		MaxURLs:      req.MaxURLs,
	}

	onPage := func(page *models.Page) {
		entry.mu.Lock()
		entry.job.Completed++
		entry.job.Pages = append(entry.job.Pages, page)
		webhookURL, secret := entry.job.WebhookURL, entry.job.WebhookSecret
		entry.mu.Unlock()

		if webhookURL != "" {
			webhook.DeliverAsync(webhookURL, secret,
				webhook.NewEvent(webhook.EventPage, entry.job.ID, page))
		}
	}

	result, err := runner.Run(ctx, req.Objective, req.Queries, opts, onPage)

	entry.mu.Lock()
	if err != nil {
		entry.job.Status = "failed"
		var appErr *models.Error
		if !errors.As(err, &appErr) {
			appErr = models.NewError(models.ErrCodeInternal, err.Error(), err)
		}
		slog.Error("research job failed", "job_id", entry.job.ID, "error", err)
		webhookURL, secret := entry.job.WebhookURL, entry.job.WebhookSecret
		entry.mu.Unlock()

		if webhookURL != "" {
			webhook.DeliverAsync(webhookURL, secret,
				webhook.NewEvent(webhook.EventFailed, entry.job.ID, appErr.ToDetail()))
		}
		return
	}

	entry.job.Queries = result.Queries
	entry.job.Total = len(result.SearchResults)
	entry.job.FailedURLs = result.FailedURLs
	if len(result.FailedURLs) > 0 && len(result.Pages) > 0 {
		entry.job.Status = "partial"
	} else if len(result.Pages) == 0 {
		entry.job.Status = "failed"
	} else {
		entry.job.Status = "completed"
	}
	status := entry.job.Status
	webhookURL, secret := entry.job.WebhookURL, entry.job.WebhookSecret
	entry.mu.Unlock()

	slog.Info("research job finished",
		"job_id", entry.job.ID,
		"status", status,
		"pages", len(result.Pages),
		"failed", len(result.FailedURLs),
	)

	if webhookURL != "" {
		webhook.DeliverAsync(webhookURL, secret,
			webhook.NewEvent(webhook.EventCompleted, entry.job.ID, map[string]any{
				"status":      status,
				"pages":       len(result.Pages),
				"failed_urls": result.FailedURLs,
			}))
	}
}

// randomID generates a 16-hex-char job identifier.
func randomID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))[:16]
	}
	return hex.EncodeToString(b)
}
