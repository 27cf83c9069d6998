package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/orsi-pipeline/internal/warehouse"
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show a recorded pipeline run, or the last successfully loaded report",
	Long: `With a run ID, prints that run from the pipeline_runs ledger. Without one,
prints the document URL of the latest successful run; "run" skips that
document unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	var runID uuid.UUID
	if len(args) == 1 {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run ID %q: %w", args[0], err)
		}
		runID = id
	}

	cfg, err := loadSettings(cmd, nil)
	if err != nil {
		return err
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

	out := cmd.OutOrStdout()
	if runID == uuid.Nil {
		doc, err := db.LastSuccessfulDocument(ctx)
		if err != nil {
			return err
		}
		if doc == "" {
			_, _ = fmt.Fprintln(out, "No successful runs recorded")
			return nil
		}
		_, _ = fmt.Fprintf(out, "Last loaded: %s\n", doc)
		return nil
	}

	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}
	printRun(cmd, run)
	return nil
}

func printRun(cmd *cobra.Command, run *warehouse.Run) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Run:       %s\n", run.ID)
	_, _ = fmt.Fprintf(out, "Status:    %s\n", run.Status)
	_, _ = fmt.Fprintf(out, "Listing:   %s\n", run.ListingURL)
	if run.DocumentURL != nil {
		_, _ = fmt.Fprintf(out, "Document:  %s\n", *run.DocumentURL)
	}
	if run.FailedStage != nil {
		_, _ = fmt.Fprintf(out, "Failed at: %s\n", *run.FailedStage)
	}
	if run.Error != nil {
		_, _ = fmt.Fprintf(out, "Error:     %s\n", *run.Error)
	}
	_, _ = fmt.Fprintf(out, "Rows:      %d loaded, %d rejected\n", run.RowsLoaded, run.RowsRejected)
	_, _ = fmt.Fprintf(out, "Started:   %s\n", run.StartedAt.Format(time.RFC3339))
	if run.CompletedAt != nil {
		_, _ = fmt.Fprintf(out, "Completed: %s (%s)\n", run.CompletedAt.Format(time.RFC3339), run.CompletedAt.Sub(run.StartedAt).Round(time.Second))
	}
}
