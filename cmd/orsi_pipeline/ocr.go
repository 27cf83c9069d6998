package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/orsi-pipeline/internal/pipeline"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr",
	Short: "Send a PDF to the OCR service and print or save the recognised text",
	RunE:  runOCR,
}

var (
	ocrPDF string
	ocrOut string
)

func init() {
	ocrCmd.Flags().StringVar(&ocrPDF, "pdf", "", "Single-page PDF to recognise (required)")
	ocrCmd.Flags().StringVarP(&ocrOut, "out", "o", "", "Write the text to this file instead of stdout")

	if err := ocrCmd.MarkFlagRequired("pdf"); err != nil {
		panic(fmt.Sprintf("failed to mark pdf flag as required: %v", err))
	}

	rootCmd.AddCommand(ocrCmd)
}

func runOCR(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd, nil)
	if err != nil {
		return err
	}
	if err := cfg.RequireSecrets(true, false); err != nil {
		return err
	}

	data, err := os.ReadFile(ocrPDF)
	if err != nil {
		return fmt.Errorf("failed to read PDF %s: %w", ocrPDF, err)
	}

	client, err := pipeline.NewOCRClient(cfg, nil, slog.Default())
	if err != nil {
		return err
	}
	res, err := client.Recognize(cmd.Context(), filepath.Base(ocrPDF), data)
	if err != nil {
		return err
	}

	if ocrOut == "" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), res.Text)
		return nil
	}
	if err := os.WriteFile(ocrOut, []byte(res.Text), 0644); err != nil {
		return fmt.Errorf("failed to write text file %s: %w", ocrOut, err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d characters to %s\n", len(res.Text), ocrOut)
	return nil
}
