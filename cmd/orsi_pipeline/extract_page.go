package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jonathan/orsi-pipeline/internal/config"
	"github.com/jonathan/orsi-pipeline/internal/discovery"
	"github.com/jonathan/orsi-pipeline/internal/pdfpage"
)

var extractPageCmd = &cobra.Command{
	Use:   "extract-page",
	Short: "Write a single page of a PDF as its own PDF",
	RunE:  runExtractPage,
}

var (
	extractPDF  string
	extractPage int
	extractOut  string
)

func init() {
	extractPageCmd.Flags().StringVar(&extractPDF, "pdf", "", "Source PDF (required)")
	extractPageCmd.Flags().IntVarP(&extractPage, "page", "p", 0, "1-based page to extract (default 4)")
	extractPageCmd.Flags().StringVarP(&extractOut, "out", "o", "", "Output directory (defaults to the download directory)")

	if err := extractPageCmd.MarkFlagRequired("pdf"); err != nil {
		panic(fmt.Sprintf("failed to mark pdf flag as required: %v", err))
	}

	rootCmd.AddCommand(extractPageCmd)
}

func runExtractPage(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd, func(c *config.Config) {
		if cmd.Flags().Changed("page") {
			c.Page = extractPage
		}
		if cmd.Flags().Changed("out") {
			c.DownloadDir = extractOut
		}
	})
	if err != nil {
		return err
	}

	src, err := discovery.LoadSourceDocument(extractPDF)
	if err != nil {
		return err
	}
	page, err := pdfpage.NewExtractor(cfg.DownloadDir, slog.Default()).Extract(src.Filename, src.Bytes, cfg.Page)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Page %d of %d -> %s\n", page.Page, page.PageCount, page.LocalPath)
	return nil
}
