package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/research-gpt/researchgpt/models"
)

// Searcher returns ranked search results for a query.
type Searcher interface {
	Search(ctx context.Context, query string, lastNDays int) ([]models.SearchResult, error)
}

// Search returns a handler for POST /api/v1/search.
func Search(sc Searcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.SearchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		results, err := sc.Search(c.Request.Context(), req.Query, req.LastNDays)
		if err != nil {
			var appErr *models.Error
			if !errors.As(err, &appErr) {
				appErr = models.NewError(models.ErrCodeSearch, err.Error(), err)
			}
			c.JSON(mapErrorToStatus(appErr), models.SearchResponse{
				Success: false,
				Query:   req.Query,
				Error:   appErr.ToDetail(),
			})
			return
		}

		c.JSON(http.StatusOK, models.SearchResponse{
			Success: true,
			Query:   req.Query,
			Results: results,
		})
	}
}
