package search

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/research-gpt/researchgpt/models"
)

// WriteCSV writes search results as CSV with a header row, suitable for
// spreadsheet import or later inspection of what a research run surfaced.
func WriteCSV(w io.Writer, results []models.SearchResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"rank", "title", "link", "snippet"}); err != nil {
		return err
	}
	for _, r := range results {
		record := []string{strconv.Itoa(r.Rank), r.Title, r.Link, r.Snippet}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
