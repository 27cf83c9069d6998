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

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full ETL end-to-end",
	Long: `Runs every stage in order: discover -> extract -> ocr -> parse -> export -> load.

The first failing stage stops the run. Configuration can be loaded from a JSON
file using --config; flags override file and environment values.`,
	RunE: runPipelineCmd,
}

var (
	runListingURL string
	runPDF        string
	runPage       int
	runOutputDir  string
	runPolicy     string
	runGCSBucket  string
	runUseBrowser bool
	runSkipLoad   bool
	runForce      bool
)

func init() {
	runCommand.Flags().StringVar(&runListingURL, "listing-url", "", "Listing page that links to the bulletins")
	runCommand.Flags().StringVar(&runPDF, "pdf", "", "Use a local PDF instead of discovering one")
	runCommand.Flags().IntVarP(&runPage, "page", "p", 0, "1-based page holding Tables 3 and 4 (default 4)")
	runCommand.Flags().StringVarP(&runOutputDir, "out", "o", "", "Directory for CSV artifacts")
	runCommand.Flags().StringVar(&runPolicy, "policy", "", "Selection policy: lexical or dated")
	runCommand.Flags().StringVar(&runGCSBucket, "gcs-bucket", "", "Stage artifacts in this GCS bucket instead of a local directory")
	runCommand.Flags().BoolVar(&runUseBrowser, "use-browser", false, "Render the listing with headless Chrome if the static page has no links")
	runCommand.Flags().BoolVar(&runSkipLoad, "skip-load", false, "Stop after writing CSV artifacts")
	runCommand.Flags().BoolVar(&runForce, "force", false, "Reload the latest report even if the last successful run already loaded it")

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd, func(c *config.Config) {
		if cmd.Flags().Changed("listing-url") {
			c.ListingURL = runListingURL
		}
		if cmd.Flags().Changed("page") {
			c.Page = runPage
		}
		if cmd.Flags().Changed("out") {
			c.OutputDir = runOutputDir
		}
		if cmd.Flags().Changed("policy") {
			c.SelectionPolicy = runPolicy
		}
		if cmd.Flags().Changed("gcs-bucket") {
			c.GCSBucket = runGCSBucket
		}
		if cmd.Flags().Changed("use-browser") {
			c.UseBrowser = runUseBrowser
		}
	})
	if err != nil {
		return err
	}
	if err := cfg.RequireSecrets(true, !runSkipLoad); err != nil {
		return err
	}

	res, err := pipeline.Run(cmd.Context(), pipeline.RunOptions{
		Config:     cfg,
		SourcePath: runPDF,
		SkipLoad:   runSkipLoad,
		Force:      runForce,
		Render:     fetch.BrowserSimple,
		Printer:    observability.NewPrinter(cmd.OutOrStdout()),
		Logger:     slog.Default(),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.AlreadyLoaded {
		_, _ = fmt.Fprintf(out, "Already loaded %s, nothing to do (use --force to reload)\n", res.Candidate.URL)
		return nil
	}
	for _, a := range res.Artifacts {
		_, _ = fmt.Fprintf(out, "%s: %d row(s) -> %s\n", a.Table, a.Rows, a.Path)
	}
	if !runSkipLoad {
		loaded, rejected := res.RowsLoaded()
		_, _ = fmt.Fprintf(out, "Loaded %d row(s), rejected %d (run %s)\n", loaded, rejected, res.RunID)
	}
	return nil
}
