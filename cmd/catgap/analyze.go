package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FranksOps/catgap/internal/app"
	"github.com/FranksOps/catgap/internal/metrics"
	"github.com/FranksOps/catgap/internal/report"
	"github.com/FranksOps/catgap/internal/source"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Decide, for every keyword, whether a new category page is needed",
		Long: `analyze reads the keyword file, searches the site for each keyword and
records one decision per keyword. Results are written to a timestamped CSV
as they are produced, followed by the configured reports.`,
		Args: cobra.NoArgs,
		RunE: runAnalyze,
	}

	f := cmd.Flags()
	f.String("keywords", "", "keyword file, one keyword per line")
	f.Int("limit", 0, "maximum number of keywords to process")
	f.String("known-listings", "", "CSV with a URL column of known listing pages")
	f.String("site", "", "base URL of the site to analyze")
	f.String("provider", "", "relevance provider: firecrawl, claude or chain")
	f.String("output-dir", "", "directory for the CSV and reports")
	f.StringSlice("format", nil, "report formats: markdown, text, json, html")
	f.String("storage", "", "additional result sink: jsonl, sqlite or postgres")
	f.String("dsn", "", "path or connection string for the result sink")
	f.Int("metrics-port", 0, "serve Prometheus metrics on this port (0 disables)")

	for name, key := range map[string]string{
		"keywords":       "keywords.file",
		"limit":          "keywords.limit",
		"known-listings": "known_listings.file",
		"site":           "site.base_url",
		"provider":       "relevance.provider",
		"output-dir":     "output.dir",
		"format":         "output.formats",
		"storage":        "storage.driver",
		"dsn":            "storage.dsn",
		"metrics-port":   "metrics.port",
	} {
		configFlag(f, name, key)
	}
	return cmd
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Port > 0 {
		srv := metrics.Start(cfg.Metrics.Port, logger)
		defer func() { _ = srv.Stop(context.Background()) }()
		logger.Info("metrics server listening", "port", cfg.Metrics.Port)
	}

	// An unreadable keyword file is a run with no keywords: the CSV and
	// reports are still written.
	keywords, err := source.LoadKeywords(cfg.Keywords.File, cfg.Keywords.Limit)
	if err != nil {
		logger.Error("keywords unavailable", "file", cfg.Keywords.File, "error", err)
		keywords = nil
	}
	if len(keywords) == 0 {
		logger.Warn("no keywords to analyze", "file", cfg.Keywords.File)
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.Analyze(ctx, keywords, nil, nil)
	if run != nil {
		out := cmd.OutOrStdout()
		report.WriteTable(out, run.Results)
		fmt.Fprintf(out, "\nResults: %s\n", run.CSVPath)
		for _, p := range run.ReportPaths {
			fmt.Fprintf(out, "Report:  %s\n", p)
		}
	}
	return err
}
