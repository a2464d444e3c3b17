package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/FranksOps/catgap/internal/evidence"
	"github.com/FranksOps/catgap/internal/source"
)

func newClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify URL...",
		Short: "Show how URLs are normalized and classified for the site",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := cfg.PathConfig()
			if err != nil {
				return err
			}
			known, err := source.LoadKnownListings(cfg.KnownListings.File, pc)
			if err != nil {
				logger.Warn("known listings unavailable", "error", err)
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"URL", "Normalized", "Classification"})
			for _, raw := range args {
				normalized, ok := pc.Normalize(raw)
				if !ok {
					normalized = evidence.NotAvailable
				}
				t.AppendRow(table.Row{raw, normalized, pc.Classify(raw, known).Label()})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().String("known-listings", "", "CSV with a URL column of known listing pages")
	cmd.Flags().String("site", "", "base URL of the site")
	configFlag(cmd.Flags(), "known-listings", "known_listings.file")
	configFlag(cmd.Flags(), "site", "site.base_url")
	return cmd
}
