package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/jonathan/orsi-pipeline/internal/config"
	"github.com/jonathan/orsi-pipeline/internal/discovery"
	"github.com/jonathan/orsi-pipeline/internal/export"
	"github.com/jonathan/orsi-pipeline/internal/fetch"
	"github.com/jonathan/orsi-pipeline/internal/ocr"
	"github.com/jonathan/orsi-pipeline/internal/stage"
	"github.com/jonathan/orsi-pipeline/internal/warehouse"
)

// Recognizer turns a single-page PDF into text.
type Recognizer interface {
	Recognize(ctx context.Context, filename string, document []byte) (*ocr.Result, error)
}

// Warehouse is the load target plus its run ledger.
type Warehouse interface {
	CopyInto(ctx context.Context, table string, src io.Reader, file string) (*warehouse.LoadResult, error)
	CreateRun(ctx context.Context, runID uuid.UUID, listingURL string) error
	CompleteRun(ctx context.Context, runID uuid.UUID, outcome warehouse.RunOutcome) error
	LastSuccessfulDocument(ctx context.Context) (string, error)
}

// NewLocator builds a Locator from configuration.
func NewLocator(cfg *config.Config, client *http.Client, render discovery.RenderFunc, logger *slog.Logger) (*discovery.Locator, error) {
	policy, err := discovery.ParsePolicy(cfg.SelectionPolicy)
	if err != nil {
		return nil, err
	}

	matcher := discovery.Matcher{Keyword: cfg.LinkKeyword}
	if cfg.LinkPattern != "" {
		re, err := regexp.Compile(cfg.LinkPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid link pattern: %w", err)
		}
		matcher.Pattern = re
	}

	fetchOpts := fetch.DefaultOptions()
	if cfg.HTTPTimeoutSec > 0 {
		fetchOpts.Timeout = cfg.HTTPTimeout()
	}
	fetchOpts.Client = client

	return discovery.NewLocator(discovery.Options{
		ListingURL:  cfg.ListingURL,
		Matcher:     matcher,
		Policy:      policy,
		DownloadDir: cfg.DownloadDir,
		UseBrowser:  cfg.UseBrowser,
		Fetch:       fetchOpts,
		Render:      render,
		Logger:      logger,
	})
}

// NewOCRClient builds the OCR client from configuration.
func NewOCRClient(cfg *config.Config, client *http.Client, logger *slog.Logger) (*ocr.Client, error) {
	return ocr.NewClient(ocr.Options{
		Endpoint:   cfg.OCREndpoint,
		APIKey:     cfg.OCRAPIKey,
		Language:   cfg.OCRLanguage,
		Engine:     cfg.OCREngine,
		Timeout:    cfg.OCRTimeout(),
		HTTPClient: client,
		Logger:     logger,
	})
}

// NewStager returns the GCS stager when a bucket is configured and the local
// directory stager otherwise. The returned func releases it.
func NewStager(ctx context.Context, cfg *config.Config, logger *slog.Logger) (stage.Stager, func(), error) {
	if cfg.GCSBucket != "" {
		s, err := stage.NewGCSStager(ctx, stage.GCSOptions{
			Bucket:          cfg.GCSBucket,
			Prefix:          cfg.GCSPrefix,
			CredentialsFile: cfg.GCSCredentialsFile,
			Endpoint:        cfg.GCSEndpoint,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}

	s, err := stage.NewLocalStager(cfg.StageDir, logger)
	if err != nil {
		return nil, nil, err
	}
	return s, func() {}, nil
}

// LoadArtifacts stages each artifact and bulk-loads it into its configured
// target table.
func LoadArtifacts(ctx context.Context, cfg *config.Config, s stage.Stager, wh Warehouse, artifacts []export.Artifact) ([]*stage.StagedFile, []*warehouse.LoadResult, error) {
	var staged []*stage.StagedFile
	var results []*warehouse.LoadResult

	for _, a := range artifacts {
		target := cfg.TargetTables[a.Table]
		if target == "" {
			return staged, results, &warehouse.LoadError{Table: a.Table, File: a.Filename(), Message: "no target table configured"}
		}

		sf, err := s.Put(ctx, a.Path)
		if err != nil {
			return staged, results, err
		}
		staged = append(staged, sf)

		res, err := loadStaged(ctx, s, wh, target, sf.Name)
		if err != nil {
			return staged, results, err
		}
		results = append(results, res)
	}
	return staged, results, nil
}

func loadStaged(ctx context.Context, s stage.Stager, wh Warehouse, target, name string) (*warehouse.LoadResult, error) {
	rc, err := stage.OpenCSV(ctx, s, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return wh.CopyInto(ctx, target, rc, name)
}
