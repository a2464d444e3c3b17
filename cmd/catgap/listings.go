package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/FranksOps/catgap/internal/app"
	"github.com/FranksOps/catgap/internal/scraper"
	"github.com/FranksOps/catgap/internal/source"
)

func newListingsCmd() *cobra.Command {
	var (
		out        string
		crawlDepth int
		crawlPages int
	)

	cmd := &cobra.Command{
		Use:   "listings",
		Short: "Discover known listing pages from the site's sitemaps",
		Long: `listings reads the sitemaps advertised in robots.txt, or /sitemap.xml,
and writes every URL that classifies as a listing page to a CSV with a URL
column, ready to be used as the known listings file. When no sitemap can be
read it follows the site's own links from the home page instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			// Sitemap locations come from robots.txt even when its rules are
			// not enforced.
			locator := a.Robots
			if locator == nil {
				locator = scraper.NewRobotsTxtAuditor(a.Fetcher, logger)
			}
			urls, err := source.DiscoverListings(cmd.Context(), locator, scraper.NewSitemapFetcher(a.Fetcher, logger), a.Paths, logger)
			if err != nil {
				if crawlDepth <= 0 {
					return err
				}
				logger.Warn("no sitemap readable, crawling site links", "error", err, "depth", crawlDepth)
				crawler := scraper.NewLinkCrawler(scraper.CrawlConfig{MaxDepth: crawlDepth, MaxPages: crawlPages}, a.Fetcher, a.Robots, logger)
				if urls, err = source.CrawlListings(cmd.Context(), crawler, a.Paths, logger); err != nil {
					return err
				}
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if err := source.WriteListingURLs(w, urls); err != nil {
				return err
			}
			logger.Info("listing pages discovered", "count", len(urls), "out", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "known_listings.csv", `output CSV, "-" for stdout`)
	cmd.Flags().IntVar(&crawlDepth, "crawl-depth", 2, "link hops to follow when no sitemap is readable (0 disables the crawl)")
	cmd.Flags().IntVar(&crawlPages, "crawl-pages", 200, "maximum pages fetched by the crawl")
	cmd.Flags().String("site", "", "base URL of the site")
	configFlag(cmd.Flags(), "site", "site.base_url")
	return cmd
}
