// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/orsi-pipeline/internal/tables"
)

// Defaults for the NAB Online Retail Sales Index bulletin.
const (
	DefaultListingURL     = "https://business.nab.com.au/category/online-retail-sales-index/"
	DefaultLinkKeyword    = "retail"
	DefaultPage           = 4
	DefaultDownloadDir    = "downloads"
	DefaultOutputDir      = "output"
	DefaultStageDir       = "stage"
	DefaultArtifactPrefix = "NAB"
	DefaultSelection      = "lexical"
	DefaultOCREndpoint    = "https://api.ocr.space/parse/image"
	DefaultOCRLanguage    = "eng"
	DefaultOCREngine      = 2
	DefaultOCRTimeoutSec  = 120
	DefaultHTTPTimeoutSec = 30
	DefaultMetricsJob     = "orsi_pipeline"
)

// Config represents the pipeline configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults. Secrets are never read
// from the file, only from the environment.
type Config struct {
	// Discovery
	ListingURL      string `json:"listing_url,omitempty" validate:"omitempty,url"`
	LinkKeyword     string `json:"link_keyword,omitempty"`
	LinkPattern     string `json:"link_pattern,omitempty"` // Filename regex that also qualifies a link
	SelectionPolicy string `json:"selection_policy,omitempty" validate:"omitempty,oneof=lexical dated"`
	UseBrowser      bool   `json:"use_browser,omitempty"` // Render the listing with a headless browser if static HTML has no links
	HTTPTimeoutSec  int    `json:"http_timeout_seconds,omitempty" validate:"gte=0"`

	// Extraction and export
	Page           int             `json:"page,omitempty" validate:"gte=0"` // 1-based page holding Tables 3 and 4
	DownloadDir    string          `json:"download_dir,omitempty"`
	OutputDir      string          `json:"output_dir,omitempty"`
	ArtifactPrefix string          `json:"artifact_prefix,omitempty" validate:"omitempty,alphanum"`
	Markers        []tables.Marker `json:"markers,omitempty" validate:"omitempty,dive"`

	// OCR
	OCREndpoint   string `json:"ocr_endpoint,omitempty" validate:"omitempty,url"`
	OCRLanguage   string `json:"ocr_language,omitempty"`
	OCREngine     int    `json:"ocr_engine,omitempty" validate:"omitempty,oneof=1 2 3"`
	OCRTimeoutSec int    `json:"ocr_timeout_seconds,omitempty" validate:"gte=0"`
	OCRAPIKey     string `json:"-"`

	// Staging and load
	StageDir           string            `json:"stage_dir,omitempty"`
	GCSBucket          string            `json:"gcs_bucket,omitempty"`
	GCSPrefix          string            `json:"gcs_prefix,omitempty"`
	GCSCredentialsFile string            `json:"gcs_credentials_file,omitempty"`
	GCSEndpoint        string            `json:"gcs_endpoint,omitempty" validate:"omitempty,url"`
	TargetTables       map[string]string `json:"target_tables,omitempty"` // Table name -> schema.table
	DatabaseURL        string            `json:"-"`

	// Metrics
	PushgatewayURL string `json:"pushgateway_url,omitempty" validate:"omitempty,url"`
	MetricsJob     string `json:"metrics_job,omitempty"`

	Verbose bool `json:"verbose,omitempty"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		ListingURL:      DefaultListingURL,
		LinkKeyword:     DefaultLinkKeyword,
		SelectionPolicy: DefaultSelection,
		HTTPTimeoutSec:  DefaultHTTPTimeoutSec,
		Page:            DefaultPage,
		DownloadDir:     DefaultDownloadDir,
		OutputDir:       DefaultOutputDir,
		ArtifactPrefix:  DefaultArtifactPrefix,
		Markers:         tables.DefaultMarkers(),
		OCREndpoint:     DefaultOCREndpoint,
		OCRLanguage:     DefaultOCRLanguage,
		OCREngine:       DefaultOCREngine,
		OCRTimeoutSec:   DefaultOCRTimeoutSec,
		StageDir:        DefaultStageDir,
		TargetTables: map[string]string{
			"Table3": "orsi_bronze.nab_online_table3_raw",
			"Table4": "orsi_bronze.nab_online_table4_raw",
		},
		MetricsJob: DefaultMetricsJob,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overlays environment variables onto c. Set variables win over file
// values. lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: %s must be an integer: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("OCR_SPACE_API_KEY", &c.OCRAPIKey)
	str("DATABASE_URL", &c.DatabaseURL)
	str("ORSI_LISTING_URL", &c.ListingURL)
	str("ORSI_LINK_KEYWORD", &c.LinkKeyword)
	str("ORSI_SELECTION_POLICY", &c.SelectionPolicy)
	str("ORSI_DOWNLOAD_DIR", &c.DownloadDir)
	str("ORSI_OUTPUT_DIR", &c.OutputDir)
	str("ORSI_STAGE_DIR", &c.StageDir)
	str("ORSI_GCS_BUCKET", &c.GCSBucket)
	str("ORSI_GCS_PREFIX", &c.GCSPrefix)
	str("ORSI_OCR_ENDPOINT", &c.OCREndpoint)
	str("ORSI_PUSHGATEWAY_URL", &c.PushgatewayURL)

	if err := num("ORSI_PAGE", &c.Page); err != nil {
		return err
	}
	if err := num("ORSI_OCR_ENGINE", &c.OCREngine); err != nil {
		return err
	}
	if v, ok := lookup("ORSI_USE_BROWSER"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config error: ORSI_USE_BROWSER must be a boolean: %w", err)
		}
		c.UseBrowser = b
	}
	return nil
}

// FromEnv applies the process environment.
func (c *Config) FromEnv() error {
	return c.ApplyEnv(os.LookupEnv)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for secrets since those are only needed by some
// commands; see RequireSecrets.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config error: '%s' failed '%s' check (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.LinkPattern != "" {
		if _, err := regexp.Compile(c.LinkPattern); err != nil {
			return fmt.Errorf("config error: invalid 'link_pattern': %w", err)
		}
	}

	seen := map[string]bool{}
	for _, m := range c.Markers {
		if m.Name == "" || strings.TrimSpace(m.Text) == "" {
			return fmt.Errorf("config error: markers need a name and text")
		}
		if seen[m.Name] {
			return fmt.Errorf("config error: duplicate marker name %q", m.Name)
		}
		seen[m.Name] = true
	}

	return nil
}

// RequireSecrets checks the environment-only values a full run needs.
func (c *Config) RequireSecrets(needOCR, needDatabase bool) error {
	var missing []string
	if needOCR && c.OCRAPIKey == "" {
		missing = append(missing, "OCR_SPACE_API_KEY")
	}
	if needDatabase && c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	setString(&result.ListingURL, defaults.ListingURL)
	setString(&result.LinkKeyword, defaults.LinkKeyword)
	setString(&result.LinkPattern, defaults.LinkPattern)
	setString(&result.SelectionPolicy, defaults.SelectionPolicy)
	setString(&result.DownloadDir, defaults.DownloadDir)
	setString(&result.OutputDir, defaults.OutputDir)
	setString(&result.ArtifactPrefix, defaults.ArtifactPrefix)
	setString(&result.OCREndpoint, defaults.OCREndpoint)
	setString(&result.OCRLanguage, defaults.OCRLanguage)
	setString(&result.OCRAPIKey, defaults.OCRAPIKey)
	setString(&result.StageDir, defaults.StageDir)
	setString(&result.GCSBucket, defaults.GCSBucket)
	setString(&result.GCSPrefix, defaults.GCSPrefix)
	setString(&result.GCSCredentialsFile, defaults.GCSCredentialsFile)
	setString(&result.GCSEndpoint, defaults.GCSEndpoint)
	setString(&result.DatabaseURL, defaults.DatabaseURL)
	setString(&result.PushgatewayURL, defaults.PushgatewayURL)
	setString(&result.MetricsJob, defaults.MetricsJob)

	// Int fields: use default if zero
	setInt(&result.HTTPTimeoutSec, defaults.HTTPTimeoutSec)
	setInt(&result.Page, defaults.Page)
	setInt(&result.OCREngine, defaults.OCREngine)
	setInt(&result.OCRTimeoutSec, defaults.OCRTimeoutSec)

	if len(result.Markers) == 0 {
		result.Markers = append([]tables.Marker(nil), defaults.Markers...)
	}
	if len(defaults.TargetTables) > 0 {
		merged := make(map[string]string, len(defaults.TargetTables))
		for k, v := range defaults.TargetTables {
			merged[k] = v
		}
		for k, v := range result.TargetTables {
			merged[k] = v
		}
		result.TargetTables = merged
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

// HTTPTimeout returns the listing/download timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// OCRTimeout returns the OCR request timeout.
func (c *Config) OCRTimeout() time.Duration {
	return time.Duration(c.OCRTimeoutSec) * time.Second
}
