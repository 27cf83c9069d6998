package pdfpage

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// No user fonts or config files are needed to select pages.
	api.DisableConfigDir()
}

// ExtractedPage is a single-page PDF cut from a source document.
type ExtractedPage struct {
	SourceFile string
	Page       int
	PageCount  int
	Filename   string
	LocalPath  string
	Bytes      []byte
}

// Extractor cuts pages out of PDFs and writes them to OutputDir.
type Extractor struct {
	outputDir string
	logger    *slog.Logger
}

// NewExtractor returns an Extractor writing page artifacts to outputDir.
// An empty outputDir keeps pages in memory only.
func NewExtractor(outputDir string, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{outputDir: outputDir, logger: logger.With("component", "page_extractor")}
}

func newConfiguration() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// PageCount returns the number of pages in data.
func PageCount(filename string, data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), newConfiguration())
	if err != nil {
		return 0, &PDFError{File: filename, Message: "failed to read page count", Cause: err}
	}
	return n, nil
}

// Extract returns a document holding only page (1-based) of data. The range is
// checked before any extraction work is done.
func (e *Extractor) Extract(filename string, data []byte, page int) (*ExtractedPage, error) {
	count, err := PageCount(filename, data)
	if err != nil {
		return nil, err
	}
	if page < 1 || page > count {
		return nil, &PageRangeError{Page: page, PageCount: count}
	}

	var out bytes.Buffer
	selected := []string{strconv.Itoa(page)}
	if err := api.Trim(bytes.NewReader(data), &out, selected, newConfiguration()); err != nil {
		return nil, &PDFError{File: filename, Message: fmt.Sprintf("failed to extract page %d", page), Cause: err}
	}

	extracted := &ExtractedPage{
		SourceFile: filename,
		Page:       page,
		PageCount:  count,
		Filename:   PageFilename(filename, page),
		Bytes:      out.Bytes(),
	}

	if e.outputDir != "" {
		if err := os.MkdirAll(e.outputDir, 0755); err != nil {
			return nil, &PDFError{File: filename, Message: "failed to create output directory", Cause: err}
		}
		extracted.LocalPath = filepath.Join(e.outputDir, extracted.Filename)
		if err := os.WriteFile(extracted.LocalPath, extracted.Bytes, 0644); err != nil {
			return nil, &PDFError{File: filename, Message: "failed to write page artifact", Cause: err}
		}
	}

	e.logger.Info("extracted page", "source", filename, "page", page, "page_count", count, "bytes", len(extracted.Bytes))
	return extracted, nil
}

// PageFilename names the artifact for page of source, e.g. "orsi-2024-03_page4.pdf".
func PageFilename(source string, page int) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." {
		stem = "document"
	}
	return fmt.Sprintf("%s_page%d.pdf", stem, page)
}
