// Package pipeline orchestrates the ORSI bulletin run: discover, extract, OCR,
// parse, export and load, strictly in that order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/orsi-pipeline/internal/config"
	"github.com/jonathan/orsi-pipeline/internal/discovery"
	"github.com/jonathan/orsi-pipeline/internal/export"
	"github.com/jonathan/orsi-pipeline/internal/metrics"
	"github.com/jonathan/orsi-pipeline/internal/observability"
	"github.com/jonathan/orsi-pipeline/internal/ocr"
	"github.com/jonathan/orsi-pipeline/internal/pdfpage"
	"github.com/jonathan/orsi-pipeline/internal/stage"
	"github.com/jonathan/orsi-pipeline/internal/tables"
	"github.com/jonathan/orsi-pipeline/internal/warehouse"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Stage   Stage  `json:"stage"`
	Step    int    `json:"step"`
	Total   int    `json:"total"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// RunOptions holds configuration and collaborators for a run. Nil collaborators
// are built from Config.
type RunOptions struct {
	Config *config.Config

	// SourcePath skips discovery and uses a PDF already on disk.
	SourcePath string
	// SkipLoad stops after export.
	SkipLoad bool
	// Force reprocesses a document the last successful run already loaded.
	Force bool

	HTTPClient *http.Client
	Render     discovery.RenderFunc
	OCR        Recognizer
	Stager     stage.Stager
	Warehouse  Warehouse
	Metrics    *metrics.Run
	Printer    *observability.Printer

	Logger     *slog.Logger
	Now        func() time.Time
	OnProgress ProgressCallback
}

// Result collects every artifact a run produced.
type Result struct {
	RunID uuid.UUID
	// AlreadyLoaded is set when the run stopped after discovery because the
	// chosen document was the last one loaded.
	AlreadyLoaded bool

	Candidate *discovery.CandidateLink
	Source    *discovery.SourceDocument
	Page      *pdfpage.ExtractedPage
	OCR       *ocr.Result
	Parsed    *tables.Parsed
	Artifacts []export.Artifact
	Staged    []*stage.StagedFile
	Loads     []*warehouse.LoadResult
}

// RowsLoaded sums loaded and rejected rows over every table.
func (r *Result) RowsLoaded() (loaded int64, rejected int) {
	for _, l := range r.Loads {
		loaded += l.RowsLoaded
		rejected += l.RowsRejected
	}
	return loaded, rejected
}

type runner struct {
	opts    RunOptions
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Run
	result  *Result
}

func (r *runner) step(s Stage, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.logger.Info(fmt.Sprintf("Step %d/%d: %s", s.Number(), len(Order), msg), "stage", string(s))
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(ProgressEvent{
			Stage:   s,
			Step:    s.Number(),
			Total:   len(Order),
			Message: msg,
			RunID:   r.result.RunID.String(),
		})
	}
}

// timed runs fn as stage s, recording its duration and wrapping any error.
func (r *runner) timed(s Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	r.metrics.ObserveStage(string(s), time.Since(start))
	if err != nil {
		r.metrics.Fail(string(s))
		return &StageError{Stage: s, Cause: err}
	}
	return nil
}

// Run executes the whole pipeline. The first fatal error stops the run and is
// returned as a *StageError; a missing table marker is not fatal.
func Run(ctx context.Context, opts RunOptions) (res *Result, err error) {
	if opts.Config == nil {
		return nil, errors.New("pipeline: config is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRun()
	}

	r := &runner{
		opts:    opts,
		cfg:     opts.Config,
		metrics: opts.Metrics,
		result:  &Result{RunID: uuid.New()},
	}
	r.logger = opts.Logger.With("run_id", r.result.RunID.String())
	defer r.pushMetrics()

	if !opts.SkipLoad {
		release, openErr := r.openWarehouse(ctx)
		if openErr != nil {
			r.metrics.Fail(string(StageLoad))
			return r.result, &StageError{Stage: StageLoad, Cause: openErr}
		}
		defer release()
		defer func() { r.completeRun(err) }()
	}

	if err := r.discover(ctx); err != nil {
		return r.result, err
	}
	if r.result.AlreadyLoaded {
		r.logger.Info("latest report already loaded, nothing to do", "url", r.result.Candidate.URL)
		return r.result, nil
	}
	if err := r.extract(); err != nil {
		return r.result, err
	}
	if err := r.recognize(ctx); err != nil {
		return r.result, err
	}
	if err := r.parse(); err != nil {
		return r.result, err
	}
	if err := r.export(); err != nil {
		return r.result, err
	}
	if err := r.load(ctx); err != nil {
		return r.result, err
	}

	r.metrics.Succeed(opts.Now())
	loaded, rejected := r.result.RowsLoaded()
	r.logger.Info("pipeline completed", "artifacts", len(r.result.Artifacts), "rows_loaded", loaded, "rows_rejected", rejected)
	return r.result, nil
}

// openWarehouse connects (unless a Warehouse was injected), takes the run lock
// and records the run in the ledger.
func (r *runner) openWarehouse(ctx context.Context) (func(), error) {
	release := func() {}

	if r.opts.Warehouse == nil {
		if err := r.cfg.RequireSecrets(false, true); err != nil {
			return nil, err
		}
		db, err := warehouse.Connect(ctx, r.cfg.DatabaseURL, r.logger)
		if err != nil {
			return nil, err
		}
		lock, err := db.AcquireRunLock(ctx)
		if err != nil {
			db.Close()
			return nil, err
		}
		r.opts.Warehouse = db
		release = func() {
			if err := lock.Unlock(context.Background()); err != nil {
				r.logger.Warn("failed to release run lock", "error", err)
			}
			db.Close()
		}
	}

	if err := r.opts.Warehouse.CreateRun(ctx, r.result.RunID, r.cfg.ListingURL); err != nil {
		r.logger.Warn("failed to record run start", "error", err)
	}
	return release, nil
}

func (r *runner) completeRun(runErr error) {
	outcome := warehouse.RunOutcome{Status: warehouse.RunStatusSucceeded}
	switch {
	case r.result.Source != nil:
		outcome.DocumentURL = r.result.Source.URL
	case r.result.Candidate != nil:
		outcome.DocumentURL = r.result.Candidate.URL
	}
	if r.result.AlreadyLoaded {
		outcome.Status = warehouse.RunStatusSkipped
	}
	outcome.RowsLoaded, outcome.RowsRejected = r.result.RowsLoaded()
	if runErr != nil {
		outcome.Status = warehouse.RunStatusFailed
		outcome.Error = runErr.Error()
		var stageErr *StageError
		if errors.As(runErr, &stageErr) {
			outcome.FailedStage = string(stageErr.Stage)
		}
	}
	if err := r.opts.Warehouse.CompleteRun(context.Background(), r.result.RunID, outcome); err != nil {
		r.logger.Warn("failed to record run outcome", "error", err)
	}
}

func (r *runner) pushMetrics() {
	if r.cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.metrics.Push(ctx, r.cfg.PushgatewayURL, r.cfg.MetricsJob); err != nil {
		r.logger.Warn("metrics push failed", "error", err)
	}
}

func (r *runner) discover(ctx context.Context) error {
	if r.opts.SourcePath != "" {
		r.step(StageDiscover, "using local PDF %s", r.opts.SourcePath)
		return r.timed(StageDiscover, func() error {
			src, err := discovery.LoadSourceDocument(r.opts.SourcePath)
			if err != nil {
				return err
			}
			r.result.Source = src
			return nil
		})
	}

	r.step(StageDiscover, "locating latest report on %s", r.cfg.ListingURL)
	return r.timed(StageDiscover, func() error {
		locator, err := NewLocator(r.cfg, r.opts.HTTPClient, r.opts.Render, r.logger)
		if err != nil {
			return err
		}
		candidates, err := locator.Candidates(ctx)
		if err != nil {
			return err
		}
		chosen, err := locator.Pick(candidates)
		if r.opts.Printer != nil {
			r.opts.Printer.PrintCandidates(candidates, chosen)
		}
		if err != nil {
			return err
		}
		r.result.Candidate = chosen
		if r.alreadyLoaded(ctx, chosen.URL) {
			r.result.AlreadyLoaded = true
			return nil
		}

		src, err := locator.Download(ctx, *chosen)
		if err != nil {
			return err
		}
		r.result.Source = src
		return nil
	})
}

// alreadyLoaded reports whether url is the document of the last successful run.
// Lookup failures only warn.
func (r *runner) alreadyLoaded(ctx context.Context, url string) bool {
	if r.opts.SkipLoad || r.opts.Warehouse == nil {
		return false
	}
	last, err := r.opts.Warehouse.LastSuccessfulDocument(ctx)
	if err != nil {
		r.logger.Warn("could not read last loaded document", "error", err)
		return false
	}
	if last == "" || last != url {
		return false
	}
	if r.opts.Force {
		r.logger.Warn("reloading a document that was already loaded", "url", url)
		return false
	}
	return true
}

func (r *runner) extract() error {
	r.step(StageExtract, "extracting page %d from %s", r.cfg.Page, r.result.Source.Filename)
	return r.timed(StageExtract, func() error {
		page, err := pdfpage.NewExtractor(r.cfg.DownloadDir, r.logger).
			Extract(r.result.Source.Filename, r.result.Source.Bytes, r.cfg.Page)
		if err != nil {
			return err
		}
		r.result.Page = page
		return nil
	})
}

func (r *runner) recognize(ctx context.Context) error {
	r.step(StageOCR, "sending %s to OCR", r.result.Page.Filename)
	return r.timed(StageOCR, func() error {
		rec := r.opts.OCR
		if rec == nil {
			client, err := NewOCRClient(r.cfg, nil, r.logger)
			if err != nil {
				return err
			}
			rec = client
		}
		res, err := rec.Recognize(ctx, r.result.Page.Filename, r.result.Page.Bytes)
		if err != nil {
			if ocr.IsKind(err, ocr.KindEmptyResult) {
				r.logger.Warn("OCR found no text, check that the configured page holds the tables", "page", r.cfg.Page)
			}
			return err
		}
		r.result.OCR = res
		r.metrics.SetOCRChars(len(res.Text))
		return nil
	})
}

func (r *runner) parse() error {
	r.step(StageParse, "segmenting %d table marker(s)", len(r.cfg.Markers))
	return r.timed(StageParse, func() error {
		parsed, err := tables.Split(r.result.OCR.Text, r.cfg.Markers)
		if err != nil {
			return err
		}
		for _, missing := range parsed.Missing {
			r.logger.Warn("table will be empty", "reason", missing.Error())
		}
		if r.opts.Printer != nil {
			r.opts.Printer.PrintTables(parsed)
		}
		r.result.Parsed = parsed
		return nil
	})
}

func (r *runner) export() error {
	r.step(StageExport, "writing CSV artifacts to %s", r.cfg.OutputDir)
	return r.timed(StageExport, func() error {
		artifacts, err := export.NewExporter(r.cfg.OutputDir, r.cfg.ArtifactPrefix, r.logger).
			Export(r.result.Parsed, r.opts.Now())
		if err != nil {
			return err
		}
		for _, a := range artifacts {
			r.metrics.SetExported(a.Table, a.Rows)
		}
		r.result.Artifacts = artifacts
		return nil
	})
}

func (r *runner) load(ctx context.Context) error {
	if r.opts.SkipLoad {
		r.step(StageLoad, "skipped")
		return nil
	}

	r.step(StageLoad, "staging and loading %d artifact(s)", len(r.result.Artifacts))
	return r.timed(StageLoad, func() error {
		s := r.opts.Stager
		if s == nil {
			built, release, err := NewStager(ctx, r.cfg, r.logger)
			if err != nil {
				return err
			}
			defer release()
			s = built
		}

		staged, loads, err := LoadArtifacts(ctx, r.cfg, s, r.opts.Warehouse, r.result.Artifacts)
		r.result.Staged = staged
		r.result.Loads = loads
		for i, l := range loads {
			r.metrics.SetLoaded(r.result.Artifacts[i].Table, l.RowsLoaded, l.RowsRejected)
		}
		if r.opts.Printer != nil {
			r.opts.Printer.PrintLoadResults(loads)
		}
		return err
	})
}
