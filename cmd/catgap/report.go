package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/catgap/internal/app"
	"github.com/FranksOps/catgap/internal/report"
	"github.com/FranksOps/catgap/internal/storage"
)

// formatTable prints the console summary table instead of a report file.
const formatTable = "table"

func newReportCmd() *cobra.Command {
	var (
		from, driver, format, out, runID string
		limit                            int
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render stored results as a report",
		Long: `report reads results saved by analyze from a CSV, JSONL, SQLite or
Postgres sink and renders them as Markdown, text, JSON, HTML or a console
table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			results, err := app.LoadResults(cmd.Context(), from, driver, storage.Filter{RunID: runID, Limit: limit})
			if err != nil {
				return err
			}
			logger.Debug("results loaded", "from", from, "count", len(results))

			var w io.Writer = cmd.OutOrStdout()
			if out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			if format == formatTable {
				report.WriteTable(w, results)
				return nil
			}
			return report.Write(w, report.Format(format), results, time.Now())
		},
	}

	f := cmd.Flags()
	f.StringVar(&from, "from", "", "result source: a .csv or .jsonl file, a SQLite database or a postgres:// DSN")
	f.StringVar(&driver, "driver", "", "source driver: csv, jsonl, sqlite or postgres (default inferred)")
	f.StringVarP(&format, "format", "f", string(report.FormatMarkdown), "markdown, text, json, html or table")
	f.StringVarP(&out, "out", "o", "-", `output file, "-" for stdout`)
	f.StringVar(&runID, "run-id", "", "only include results of this run")
	f.IntVar(&limit, "limit", 0, "maximum number of results")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
