package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/research-gpt/researchgpt/config"
)

var cfg *config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:   "researchgpt",
		Short: "Web research automation: search, fetch, clean and archive pages",
		Long: `researchgpt turns a research objective into search queries, collects
result URLs, fetches each page (plain HTTP first, headless Chrome when a
page needs JavaScript), cleans the content and archives it to disk.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = config.Load()
			initLogger(cfg.Log)
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		runCmd(),
		searchCmd(),
		scrapeCmd(),
		processCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initLogger configures slog based on the LogConfig.
func initLogger(logCfg config.LogConfig) {
	var level slog.Level
	switch logCfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if logCfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
