package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/research-gpt/researchgpt/fetcher"
	"github.com/research-gpt/researchgpt/pipeline"
	"github.com/research-gpt/researchgpt/processor"
	"github.com/research-gpt/researchgpt/search"
)

func runCmd() *cobra.Command {
	var (
		presetQueries []string
		maxURLs       int
		lastNDays     int
		format        string
		extractMode   string
		stealth       bool
	)

	cmd := &cobra.Command{
		Use:   "run [objective]",
		Short: "Run a full research job: queries, search, fetch, archive",
		Long: `Expands the objective into search queries with an LLM (or uses
--query values directly), searches Google, fetches every result URL,
cleans the content and archives HTML plus metadata under the output
directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			objective := ""
			if len(args) == 1 {
				objective = args[0]
			}
			if objective == "" && len(presetQueries) == 0 {
				return fmt.Errorf("give an objective argument or at least one --query")
			}

			svcs, err := buildServices(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer svcs.close()

			result, err := svcs.pipeline.Run(cmd.Context(), objective, presetQueries, pipeline.Options{
				OutputFormat: format,
				ExtractMode:  extractMode,
				LastNDays:    lastNDays,
				Stealth:      stealth,
				MaxURLs:      maxURLs,
			}, nil)
			if err != nil {
				return err
			}

			fmt.Printf("queries: %d\n", len(result.Queries))
			for _, q := range result.Queries {
				fmt.Printf("  [%3d] %s\n", q.RelevancyScore, q.Query)
			}
			fmt.Printf("urls: %d\npages: %d\nduplicates dropped: %d\nfailed: %d\n",
				len(result.SearchResults), len(result.Pages), result.Duplicates, len(result.FailedURLs))
			for _, u := range result.FailedURLs {
				fmt.Printf("  failed: %s\n", u)
			}
			fmt.Printf("archive: %s\n", cfg.Archive.HTMLDir)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&presetQueries, "query", "q", nil, "search these queries directly instead of generating them")
	cmd.Flags().IntVar(&maxURLs, "max-urls", 0, "cap on fetched URLs (default from config)")
	cmd.Flags().IntVar(&lastNDays, "last-n-days", 0, "restrict search hits to the last N days")
	cmd.Flags().StringVar(&format, "format", "markdown", "output format: markdown, text or html")
	cmd.Flags().StringVar(&extractMode, "extract", "strip", "extraction mode: strip, readability or raw")
	cmd.Flags().BoolVar(&stealth, "stealth", false, "enable anti-bot evasions on the browser path")
	return cmd
}

func searchCmd() *cobra.Command {
	var (
		lastNDays int
		csvPath   string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search Google Programmable Search and print ranked results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := search.New(cmd.Context(), cfg.Search)
			if err != nil {
				return err
			}

			results, err := sc.Search(cmd.Context(), args[0], lastNDays)
			if err != nil {
				return err
			}

			for _, r := range results {
				fmt.Printf("%2d. %s\n    %s\n", r.Rank, r.Title, r.Link)
			}

			if csvPath != "" {
				f, err := os.Create(csvPath)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := search.WriteCSV(f, results); err != nil {
					return err
				}
				slog.Info("wrote results", "path", csvPath, "count", len(results))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&lastNDays, "last-n-days", 0, "restrict results to the last N days")
	cmd.Flags().StringVar(&csvPath, "csv", "", "also write results to this CSV file")
	return cmd
}

func scrapeCmd() *cobra.Command {
	var (
		mode        string
		format      string
		extractMode string
		stealth     bool
		showLinks   bool
	)

	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Fetch one URL and print the cleaned content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Chrome is only needed when the page may require rendering.
			svcs, err := buildServices(cmd.Context(), mode != fetcher.ModeHTTP)
			if err != nil {
				return err
			}
			defer svcs.close()

			result, err := svcs.fetcher.Fetch(cmd.Context(), &fetcher.Request{
				URL:     args[0],
				Mode:    mode,
				Stealth: stealth,
			})
			if err != nil {
				return err
			}

			doc, err := svcs.processor.Process(result.HTML, args[0], processor.Options{
				OutputFormat: format,
				ExtractMode:  extractMode,
			})
			if err != nil {
				return err
			}

			fmt.Println(doc.Content)
			if showLinks {
				fmt.Fprintln(os.Stderr)
				for _, l := range processor.Hrefs(doc.Links) {
					fmt.Fprintln(os.Stderr, l)
				}
			}
			slog.Info("scraped",
				"url", args[0],
				"engine", result.Engine,
				"tokens", doc.Tokens.CleanedEstimate,
				"savings_percent", doc.Tokens.SavingsPercent,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", fetcher.ModeAuto, "fetch mode: auto, http or browser")
	cmd.Flags().StringVar(&format, "format", "markdown", "output format: markdown, text or html")
	cmd.Flags().StringVar(&extractMode, "extract", "strip", "extraction mode: strip, readability or raw")
	cmd.Flags().BoolVar(&stealth, "stealth", false, "enable anti-bot evasions on the browser path")
	cmd.Flags().BoolVar(&showLinks, "links", false, "print extracted links to stderr")
	return cmd
}

func processCmd() *cobra.Command {
	var (
		format      string
		extractMode string
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Reprocess every archived HTML page into Markdown",
		Long: `Reads the archived HTML pages and writes the processed output to the
Markdown directory, without refetching anything. Useful after changing
extraction settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := buildServices(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer svcs.close()

			written, err := svcs.archive.ProcessAll(svcs.processor, processor.Options{
				OutputFormat: format,
				ExtractMode:  extractMode,
			})
			if err != nil {
				return err
			}
			fmt.Printf("wrote %d files to %s\n", written, cfg.Archive.MarkdownDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "markdown", "output format: markdown, text or html")
	cmd.Flags().StringVar(&extractMode, "extract", "strip", "extraction mode: strip, readability or raw")
	return cmd
}
