package discovery

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/jonathan/orsi-pipeline/internal/fetch"
)

// pdfMagic is the header every PDF file starts with.
var pdfMagic = []byte("%PDF-")

// RenderFunc renders a page with a headless browser and returns its HTML.
type RenderFunc func(ctx context.Context, url string, logger *slog.Logger) (string, error)

// SourceDocument is the downloaded report.
type SourceDocument struct {
	URL       string
	Filename  string
	LocalPath string
	Bytes     []byte
}

// Options configures a Locator.
type Options struct {
	ListingURL  string
	Matcher     Matcher
	Policy      SelectionPolicy
	DownloadDir string
	UseBrowser  bool
	Fetch       *fetch.Options
	// Render defaults to fetch.BrowserSimple.
	Render RenderFunc
	Logger *slog.Logger
}

// Locator finds and downloads the latest report.
type Locator struct {
	opts   Options
	base   *url.URL
	logger *slog.Logger
}

// NewLocator validates the listing URL and returns a Locator.
func NewLocator(opts Options) (*Locator, error) {
	base, err := url.Parse(opts.ListingURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, &DiscoveryError{ListingURL: opts.ListingURL, Message: "invalid listing URL", Cause: err}
	}
	if opts.Fetch == nil {
		opts.Fetch = fetch.DefaultOptions()
	}
	if opts.Render == nil {
		opts.Render = fetch.BrowserSimple
	}
	if opts.Policy == "" {
		opts.Policy = PolicyLexical
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{opts: opts, base: base, logger: logger.With("component", "locator")}, nil
}

// Candidates fetches the listing page and returns every matching report link.
// Anchors are scanned first; if none match, the raw markup is scanned with regular
// expressions, and if that also fails and browser rendering is enabled the rendered
// page is scanned the same way.
func (l *Locator) Candidates(ctx context.Context) ([]CandidateLink, error) {
	result, err := fetch.URL(ctx, l.opts.ListingURL, l.opts.Fetch)
	if err != nil {
		return nil, &DiscoveryError{ListingURL: l.opts.ListingURL, Message: "failed to fetch listing page", Cause: err}
	}

	candidates, err := l.scan(result.HTML())
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 || !l.opts.UseBrowser {
		return candidates, nil
	}

	l.logger.Info("no report links in static HTML, rendering with headless browser")
	rendered, err := l.opts.Render(ctx, l.opts.ListingURL, l.logger)
	if err != nil {
		l.logger.Warn("browser rendering failed", "error", err)
		return candidates, nil
	}
	return l.scan(rendered)
}

func (l *Locator) scan(html string) ([]CandidateLink, error) {
	anchors, err := AnchorLinks(html, l.base)
	if err != nil {
		return nil, &DiscoveryError{ListingURL: l.opts.ListingURL, Message: "failed to parse listing HTML", Cause: err}
	}
	candidates := Filter(anchors, l.opts.Matcher)
	l.logger.Debug("scanned anchors", "links", len(anchors), "candidates", len(candidates))
	if len(candidates) > 0 {
		return candidates, nil
	}

	candidates = Filter(MarkupLinks(html, l.base), l.opts.Matcher)
	l.logger.Debug("scanned raw markup", "candidates", len(candidates))
	return candidates, nil
}

// Locate returns the single most recent report link.
func (l *Locator) Locate(ctx context.Context) (*CandidateLink, error) {
	candidates, err := l.Candidates(ctx)
	if err != nil {
		return nil, err
	}
	return l.Pick(candidates)
}

// Pick applies the selection policy to candidates. No candidates is a
// DiscoveryError wrapping ErrNotFound.
func (l *Locator) Pick(candidates []CandidateLink) (*CandidateLink, error) {
	chosen, ok := Select(candidates, l.opts.Policy)
	if !ok {
		return nil, &DiscoveryError{ListingURL: l.opts.ListingURL, Message: "no PDF link matched", Cause: ErrNotFound}
	}
	l.logger.Info("selected report", "url", chosen.URL, "candidates", len(candidates), "policy", string(l.opts.Policy))
	return &chosen, nil
}

// Download fetches link and writes it to DownloadDir under its remote filename.
func (l *Locator) Download(ctx context.Context, link CandidateLink) (*SourceDocument, error) {
	result, err := fetch.URL(ctx, link.URL, l.opts.Fetch)
	if err != nil {
		return nil, &DownloadError{URL: link.URL, Message: "request failed", Cause: err}
	}
	if !bytes.HasPrefix(result.Body, pdfMagic) {
		return nil, &DownloadError{
			URL:     link.URL,
			Message: fmt.Sprintf("response is not a PDF (content type %q)", result.ContentType),
		}
	}

	dir := l.opts.DownloadDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &DownloadError{URL: link.URL, Message: "failed to create download directory", Cause: err}
	}

	name := filepath.Base(link.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "report.pdf"
	}
	localPath := filepath.Join(dir, name)
	if err := os.WriteFile(localPath, result.Body, 0644); err != nil {
		return nil, &DownloadError{URL: link.URL, Message: "failed to write PDF", Cause: err}
	}

	l.logger.Info("downloaded report", "file", localPath, "bytes", len(result.Body))
	return &SourceDocument{
		URL:       link.URL,
		Filename:  name,
		LocalPath: localPath,
		Bytes:     result.Body,
	}, nil
}

// LoadSourceDocument reads a PDF already on disk, for runs that skip discovery.
func LoadSourceDocument(path string) (*SourceDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF %s: %w", path, err)
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, fmt.Errorf("%s is not a PDF", path)
	}
	return &SourceDocument{
		URL:       "file://" + path,
		Filename:  filepath.Base(path),
		LocalPath: path,
		Bytes:     data,
	}, nil
}
