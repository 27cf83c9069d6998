package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/orsi-pipeline/internal/config"
	"github.com/jonathan/orsi-pipeline/internal/export"
	"github.com/jonathan/orsi-pipeline/internal/warehouse"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSegmentCommand_WritesCSVs(t *testing.T) {
	dir := t.TempDir()
	textFile := filepath.Join(dir, "page.txt")
	require.NoError(t, os.WriteFile(textFile, []byte("Table 3\nFoo   Bar\nTable 4\nHello   World\nAbout this report\n"), 0644))
	outDir := filepath.Join(dir, "out")

	output, err := execute(t, "segment", "--text", textFile, "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, output, "Table3: 1 row(s)")
	assert.Contains(t, output, "Table4: 1 row(s)")

	matches, err := filepath.Glob(filepath.Join(outDir, "NAB_Table3_OCR_*.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	content, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, "RAW_TEXT\n\"Foo,Bar\"\n", string(content))
}

func TestOCRCommand_MissingAPIKey(t *testing.T) {
	t.Setenv("OCR_SPACE_API_KEY", "")

	pdf := filepath.Join(t.TempDir(), "page.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4\n"), 0644))

	_, err := execute(t, "ocr", "--pdf", pdf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OCR_SPACE_API_KEY")
}

func TestLoadSettings_Precedence(t *testing.T) {
	t.Setenv("ORSI_PAGE", "5")
	t.Setenv("ORSI_OUTPUT_DIR", "env-out")

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	data, err := json.Marshal(map[string]any{"page": 2, "output_dir": "file-out", "link_keyword": "orsi"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfgFile, data, 0644))

	configPath = cfgFile
	t.Cleanup(func() { configPath = "" })

	cfg, err := loadSettings(&cobra.Command{}, func(c *config.Config) { c.Page = 7 })
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Page, "flags win over env")
	assert.Equal(t, "env-out", cfg.OutputDir, "env wins over file")
	assert.Equal(t, "orsi", cfg.LinkKeyword, "file wins over defaults")
	assert.Equal(t, config.DefaultListingURL, cfg.ListingURL)
}

func TestLoadSettings_Invalid(t *testing.T) {
	t.Setenv("ORSI_SELECTION_POLICY", "newest")

	_, err := loadSettings(&cobra.Command{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selection_policy")
}

func TestStatusCommand_InvalidRunID(t *testing.T) {
	_, err := execute(t, "status", "not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid run ID "not-a-uuid"`)
}

func TestStatusCommand_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := execute(t, "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestPrintRun(t *testing.T) {
	doc := "https://example.com/r.pdf"
	stage := "ocr"
	started := time.Date(2024, 4, 15, 9, 0, 0, 0, time.UTC)
	completed := started.Add(90 * time.Second)

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	printRun(cmd, &warehouse.Run{
		ID:          uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2"),
		ListingURL:  "https://example.com/listing",
		DocumentURL: &doc,
		Status:      warehouse.RunStatusFailed,
		FailedStage: &stage,
		StartedAt:   started,
		CompletedAt: &completed,
	})

	assert.Contains(t, out.String(), "Status:    failed")
	assert.Contains(t, out.String(), "Document:  https://example.com/r.pdf")
	assert.Contains(t, out.String(), "Failed at: ocr")
	assert.Contains(t, out.String(), "(1m30s)")
	assert.NotContains(t, out.String(), "Error:")
}

func TestLoadCommand_UnreadableArtifact(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	path := filepath.Join(t.TempDir(), "NAB_Table3_OCR_2024_03.csv")

	_, err := execute(t, "load", path)
	var exportErr *export.ExportError
	require.ErrorAs(t, err, &exportErr)
	assert.Equal(t, path, exportErr.Path)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, false, true).Info("hello", "stage", "ocr")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "ocr", entry["stage"])

	buf.Reset()
	newLogger(&buf, false, false).Debug("hidden")
	assert.Empty(t, buf.String())

	newLogger(&buf, true, false).Debug("shown")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestExtractPageCommand_MissingPDFFlag(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "extract-page")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "required flag(s) \"pdf\" not set")
}

func TestRunCommand_MissingSecrets(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "run")
	cmd.Dir = t.TempDir()
	var env []string
	for _, e := range os.Environ() {
		if !strings.HasPrefix(e, "OCR_SPACE_API_KEY=") && !strings.HasPrefix(e, "DATABASE_URL=") {
			env = append(env, e)
		}
	}
	cmd.Env = env

	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "missing required environment variable(s): OCR_SPACE_API_KEY, DATABASE_URL")
}
