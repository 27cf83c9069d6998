package pdfpage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/orsi-pipeline/internal/pdfpage/pdftest"
)

func TestPageCount(t *testing.T) {
	n, err := PageCount("five.pdf", pdftest.Build(5))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestPageCount_NotAPDF(t *testing.T) {
	_, err := PageCount("junk.pdf", []byte("definitely not a pdf"))
	require.Error(t, err)

	var pdfErr *PDFError
	assert.ErrorAs(t, err, &pdfErr)
}

func TestExtract_SinglePage(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(dir, nil)

	page, err := e.Extract("orsi-2024-03.pdf", pdftest.Build(6), 4)
	require.NoError(t, err)

	assert.Equal(t, 4, page.Page)
	assert.Equal(t, 6, page.PageCount)
	assert.Equal(t, "orsi-2024-03_page4.pdf", page.Filename)
	assert.True(t, bytes.HasPrefix(page.Bytes, []byte("%PDF-")))

	n, err := PageCount(page.Filename, page.Bytes)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	onDisk, err := os.ReadFile(filepath.Join(dir, page.Filename))
	require.NoError(t, err)
	assert.Equal(t, page.Bytes, onDisk)
}

func TestExtract_InMemoryOnly(t *testing.T) {
	e := NewExtractor("", nil)

	page, err := e.Extract("doc.pdf", pdftest.Build(2), 1)
	require.NoError(t, err)
	assert.Empty(t, page.LocalPath)
}

func TestExtract_PageRange(t *testing.T) {
	tests := []struct {
		name string
		page int
	}{
		{"past the end", 4},
		{"zero", 0},
		{"negative", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			e := NewExtractor(dir, nil)

			_, err := e.Extract("three.pdf", pdftest.Build(3), tt.page)
			require.Error(t, err)

			var rangeErr *PageRangeError
			require.ErrorAs(t, err, &rangeErr)
			assert.Equal(t, tt.page, rangeErr.Page)
			assert.Equal(t, 3, rangeErr.PageCount)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries, "no artifact is written for an out-of-range page")
		})
	}
}

func TestExtract_LastPage(t *testing.T) {
	e := NewExtractor("", nil)

	page, err := e.Extract("three.pdf", pdftest.Build(3), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Page)
}

func TestPageFilename(t *testing.T) {
	assert.Equal(t, "report_page4.pdf", PageFilename("report.pdf", 4))
	assert.Equal(t, "report_page1.pdf", PageFilename("/tmp/x/report.PDF", 1))
	assert.Equal(t, "noext_page2.pdf", PageFilename("noext", 2))
}
