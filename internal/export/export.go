package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/jonathan/orsi-pipeline/internal/tables"
)

// DefaultPrefix is the artifact filename prefix for the NAB bulletin.
const DefaultPrefix = "NAB"

// MonthLayout renders the YYYY_MM stamp in artifact names.
const MonthLayout = "2006_01"

// Artifact describes one exported table.
type Artifact struct {
	Table   string
	Path    string
	RawPath string
	Rows    int
	Month   string
}

// Filename returns the base name of the CSV artifact.
func (a Artifact) Filename() string {
	return filepath.Base(a.Path)
}

// Exporter writes artifacts into a single output directory.
type Exporter struct {
	dir    string
	prefix string
	logger *slog.Logger
}

// NewExporter returns an Exporter for dir. An empty prefix uses DefaultPrefix.
func NewExporter(dir, prefix string, logger *slog.Logger) *Exporter {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{dir: dir, prefix: prefix, logger: logger.With("component", "exporter")}
}

// CSVName returns "<prefix>_<table>_OCR_<YYYY_MM>.csv".
func CSVName(prefix, table string, now time.Time) string {
	return fmt.Sprintf("%s_%s_OCR_%s.csv", prefix, table, now.Format(MonthLayout))
}

// RawName returns "<prefix>_<table>_raw.txt".
func RawName(prefix, table string) string {
	return fmt.Sprintf("%s_%s_raw.txt", prefix, table)
}

// Export writes the raw text block and the CSV for every segment in parsed.
// Missing segments still produce a header-only CSV. Reruns in the same month
// overwrite the previous artifacts.
func (e *Exporter) Export(parsed *tables.Parsed, now time.Time) ([]Artifact, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return nil, &ExportError{Path: e.dir, Message: "failed to create output directory", Cause: err}
	}

	artifacts := make([]Artifact, 0, len(parsed.Segments))
	for i := range parsed.Segments {
		seg := &parsed.Segments[i]

		rawPath := filepath.Join(e.dir, RawName(e.prefix, seg.Name))
		if err := os.WriteFile(rawPath, []byte(strings.TrimSpace(seg.Text)), 0644); err != nil {
			return nil, &ExportError{Path: rawPath, Message: "failed to write raw text block", Cause: err}
		}

		artifact, err := e.WriteTable(seg.Name, seg.Rows(), now)
		if err != nil {
			return nil, err
		}
		artifact.RawPath = rawPath
		artifacts = append(artifacts, *artifact)
	}
	return artifacts, nil
}

// WriteTable writes rows as a single RAW_TEXT column CSV.
func (e *Exporter) WriteTable(table string, rows []tables.Row, now time.Time) (*Artifact, error) {
	path := filepath.Join(e.dir, CSVName(e.prefix, table, now))

	f, err := os.Create(path)
	if err != nil {
		return nil, &ExportError{Path: path, Message: "failed to create artifact", Cause: err}
	}
	if rows == nil {
		rows = []tables.Row{}
	}
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		_ = f.Close()
		return nil, &ExportError{Path: path, Message: "failed to write CSV", Cause: err}
	}
	if err := f.Close(); err != nil {
		return nil, &ExportError{Path: path, Message: "failed to close artifact", Cause: err}
	}

	e.logger.Info("exported table", "table", table, "rows", len(rows), "path", path)
	return &Artifact{
		Table: table,
		Path:  path,
		Rows:  len(rows),
		Month: now.Format(MonthLayout),
	}, nil
}

// ReadArtifact loads the rows of a CSV artifact.
func ReadArtifact(path string) ([]tables.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ExportError{Path: path, Message: "failed to open artifact", Cause: err}
	}
	defer func() { _ = f.Close() }()

	var rows []tables.Row
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, &ExportError{Path: path, Message: "failed to read CSV", Cause: err}
	}
	return rows, nil
}

// TableFromFilename recovers the table name from a CSV artifact name,
// e.g. "NAB_Table3_OCR_2024_03.csv" -> "Table3".
func TableFromFilename(name string) (string, bool) {
	base := strings.TrimSuffix(filepath.Base(name), ".gz")
	base = strings.TrimSuffix(base, ".csv")
	i := strings.Index(base, "_OCR_")
	if i < 0 {
		return "", false
	}
	head := base[:i]
	j := strings.LastIndex(head, "_")
	if j < 0 || j == len(head)-1 {
		return "", false
	}
	return head[j+1:], true
}
