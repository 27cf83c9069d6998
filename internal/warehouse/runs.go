package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Run statuses recorded in pipeline_runs. A skipped run found a document that
// an earlier run already loaded.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusSkipped   = "skipped"
)

// RunOutcome is written when a run finishes.
type RunOutcome struct {
	Status       string
	DocumentURL  string
	FailedStage  string
	RowsLoaded   int64
	RowsRejected int
	Error        string
}

// Run is one pipeline_runs row.
type Run struct {
	ID           uuid.UUID
	ListingURL   string
	DocumentURL  *string
	Status       string
	FailedStage  *string
	RowsLoaded   int64
	RowsRejected int
	Error        *string
	StartedAt    time.Time
	CompletedAt  *time.Time
}

// CreateRun records the start of a pipeline run
func (db *DB) CreateRun(ctx context.Context, runID uuid.UUID, listingURL string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO pipeline_runs (id, listing_url, status)
		 VALUES ($1, $2, $3)`,
		runID, listingURL, RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun marks a pipeline run as finished
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, outcome RunOutcome) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE pipeline_runs
		 SET status = $1, document_url = NULLIF($2, ''), failed_stage = NULLIF($3, ''),
		     rows_loaded = $4, rows_rejected = $5, error = NULLIF($6, ''), completed_at = NOW()
		 WHERE id = $7`,
		outcome.Status, outcome.DocumentURL, outcome.FailedStage,
		outcome.RowsLoaded, outcome.RowsRejected, outcome.Error, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun returns a run by ID, or nil if it does not exist
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var r Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, listing_url, document_url, status, failed_stage,
		        rows_loaded, rows_rejected, error, started_at, completed_at
		 FROM pipeline_runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.ListingURL, &r.DocumentURL, &r.Status, &r.FailedStage,
		&r.RowsLoaded, &r.RowsRejected, &r.Error, &r.StartedAt, &r.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &r, nil
}

// LastSuccessfulDocument returns the document URL of the latest succeeded run,
// or "" if there is none.
func (db *DB) LastSuccessfulDocument(ctx context.Context) (string, error) {
	var url *string
	err := db.pool.QueryRow(ctx,
		`SELECT document_url FROM pipeline_runs
		 WHERE status = $1
		 ORDER BY completed_at DESC NULLS LAST
		 LIMIT 1`,
		RunStatusSucceeded,
	).Scan(&url)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to read last run: %w", err)
	}
	if url == nil {
		return "", nil
	}
	return *url, nil
}
