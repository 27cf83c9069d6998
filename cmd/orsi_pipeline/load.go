package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/orsi-pipeline/internal/config"
	"github.com/jonathan/orsi-pipeline/internal/export"
	"github.com/jonathan/orsi-pipeline/internal/observability"
	"github.com/jonathan/orsi-pipeline/internal/pipeline"
	"github.com/jonathan/orsi-pipeline/internal/warehouse"
)

var loadCmd = &cobra.Command{
	Use:   "load <csv>...",
	Short: "Stage exported CSV artifacts and bulk-load them into the warehouse",
	Long: `Stages each CSV artifact (gzip, local directory or GCS) and copies it into the
target table configured for its table name. The table is taken from the file
name, e.g. NAB_Table3_OCR_2024_03.csv loads into the Table3 target.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLoad,
}

var loadGCSBucket string

func init() {
	loadCmd.Flags().StringVar(&loadGCSBucket, "gcs-bucket", "", "Stage artifacts in this GCS bucket instead of a local directory")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd, func(c *config.Config) {
		if cmd.Flags().Changed("gcs-bucket") {
			c.GCSBucket = loadGCSBucket
		}
	})
	if err != nil {
		return err
	}

	artifacts := make([]export.Artifact, 0, len(args))
	for _, path := range args {
		table, ok := export.TableFromFilename(filepath.Base(path))
		if !ok {
			return fmt.Errorf("cannot tell which table %s belongs to", path)
		}
		rows, err := export.ReadArtifact(path)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, export.Artifact{Table: table, Path: path, Rows: len(rows)})
		slog.Debug("artifact ready", "table", table, "rows", len(rows), "path", path)
	}

	if err := cfg.RequireSecrets(false, true); err != nil {
		return err
	}
	ctx := cmd.Context()
	db, err := warehouse.Connect(ctx, cfg.DatabaseURL, slog.Default())
	if err != nil {
		return err
	}
	defer db.Close()

	stager, release, err := pipeline.NewStager(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer release()

	_, results, err := pipeline.LoadArtifacts(ctx, cfg, stager, db, artifacts)
	observability.NewPrinter(cmd.OutOrStdout()).PrintLoadResults(results)
	return err
}
