package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/orsi-pipeline/internal/config"
	"github.com/jonathan/orsi-pipeline/internal/export"
	"github.com/jonathan/orsi-pipeline/internal/observability"
	"github.com/jonathan/orsi-pipeline/internal/tables"
)

var segmentCmd = &cobra.Command{
	Use:   "segment",
	Short: "Split OCR text into Table 3 and Table 4 and export them as CSV",
	RunE:  runSegment,
}

var (
	segmentText string
	segmentOut  string
)

func init() {
	segmentCmd.Flags().StringVar(&segmentText, "text", "", "File with recognised page text (required)")
	segmentCmd.Flags().StringVarP(&segmentOut, "out", "o", "", "Directory for CSV artifacts")

	if err := segmentCmd.MarkFlagRequired("text"); err != nil {
		panic(fmt.Sprintf("failed to mark text flag as required: %v", err))
	}

	rootCmd.AddCommand(segmentCmd)
}

func runSegment(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd, func(c *config.Config) {
		if cmd.Flags().Changed("out") {
			c.OutputDir = segmentOut
		}
	})
	if err != nil {
		return err
	}

	text, err := os.ReadFile(segmentText)
	if err != nil {
		return fmt.Errorf("failed to read text file %s: %w", segmentText, err)
	}

	parsed, err := tables.Split(string(text), cfg.Markers)
	if err != nil {
		return err
	}
	for _, missing := range parsed.Missing {
		slog.Warn("table will be empty", "reason", missing.Error())
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintTables(parsed)

	artifacts, err := export.NewExporter(cfg.OutputDir, cfg.ArtifactPrefix, slog.Default()).Export(parsed, time.Now())
	if err != nil {
		return err
	}
	for _, a := range artifacts {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d row(s) -> %s\n", a.Table, a.Rows, a.Path)
	}
	return nil
}
