package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jonathan/orsi-pipeline/internal/config"
	"github.com/jonathan/orsi-pipeline/internal/fetch"
	"github.com/jonathan/orsi-pipeline/internal/observability"
	"github.com/jonathan/orsi-pipeline/internal/pipeline"
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "List bulletin PDFs on the listing page and show which one a run would pick",
	RunE:  runLocate,
}

var (
	locateListingURL string
	locatePolicy     string
	locateDownload   bool
	locateUseBrowser bool
)

func init() {
	locateCmd.Flags().StringVar(&locateListingURL, "listing-url", "", "Listing page that links to the bulletins")
	locateCmd.Flags().StringVar(&locatePolicy, "policy", "", "Selection policy: lexical or dated")
	locateCmd.Flags().BoolVar(&locateDownload, "download", false, "Also download the selected PDF")
	locateCmd.Flags().BoolVar(&locateUseBrowser, "use-browser", false, "Render the listing with headless Chrome if the static page has no links")

	rootCmd.AddCommand(locateCmd)
}

func runLocate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd, func(c *config.Config) {
		if cmd.Flags().Changed("listing-url") {
			c.ListingURL = locateListingURL
		}
		if cmd.Flags().Changed("policy") {
			c.SelectionPolicy = locatePolicy
		}
		if cmd.Flags().Changed("use-browser") {
			c.UseBrowser = locateUseBrowser
		}
	})
	if err != nil {
		return err
	}

	locator, err := pipeline.NewLocator(cfg, nil, fetch.BrowserSimple, slog.Default())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	candidates, err := locator.Candidates(ctx)
	if err != nil {
		return err
	}
	chosen, err := locator.Pick(candidates)
	observability.NewPrinter(cmd.OutOrStdout()).PrintCandidates(candidates, chosen)
	if err != nil {
		return err
	}

	if !locateDownload {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), chosen.URL)
		return nil
	}
	doc, err := locator.Download(ctx, *chosen)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s (%d bytes)\n", doc.LocalPath, len(doc.Bytes))
	return nil
}
