package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/orsi-pipeline/internal/schemas"
	schemafiles "github.com/jonathan/orsi-pipeline/schemas"
)

const (
	// DefaultEndpoint is the OCR.space parse endpoint.
	DefaultEndpoint = "https://api.ocr.space/parse/image"
	// DefaultLanguage is the recognition language.
	DefaultLanguage = "eng"
	// DefaultEngine selects OCR.space engine 2, which handles tables better.
	DefaultEngine = 2
	// DefaultTimeout bounds a single recognition request.
	DefaultTimeout = 120 * time.Second

	maxResponseBytes = 16 << 20
)

// Options configures a Client.
type Options struct {
	Endpoint   string
	APIKey     string
	Language   string
	Engine     int
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Result is the recognised text of one page.
type Result struct {
	Filename       string
	Text           string
	ExitCode       int
	ProcessingTime string
}

// Client submits documents to the OCR service. It never retries.
type Client struct {
	endpoint  string
	apiKey    string
	language  string
	engine    int
	http      *http.Client
	validator *schemas.Validator
	logger    *slog.Logger
}

// NewClient builds a Client, applying defaults for unset options.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("ocr: API key is required")
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.Engine == 0 {
		opts.Engine = DefaultEngine
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	schema, err := schemafiles.Load(schemafiles.OCREnvelopeFile)
	if err != nil {
		return nil, err
	}
	validator, err := schemas.NewValidator(schemafiles.OCREnvelopeFile, schema)
	if err != nil {
		return nil, err
	}

	return &Client{
		endpoint:  opts.Endpoint,
		apiKey:    opts.APIKey,
		language:  opts.Language,
		engine:    opts.Engine,
		http:      opts.HTTPClient,
		validator: validator,
		logger:    opts.Logger.With("component", "ocr_client"),
	}, nil
}

// Recognize uploads document (a PDF named filename) and returns its text.
func (c *Client) Recognize(ctx context.Context, filename string, document []byte) (*Result, error) {
	body, contentType, err := c.form(filename, document)
	if err != nil {
		return nil, &OCRServiceError{Kind: KindTransport, Message: "failed to build request body", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, &OCRServiceError{Kind: KindTransport, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	c.logger.Info("submitting page to OCR", "file", filename, "bytes", len(document), "engine", c.engine)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &OCRServiceError{Kind: KindTransport, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &OCRServiceError{Kind: KindTransport, StatusCode: resp.StatusCode, Message: "failed to read response", Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &OCRServiceError{
			Kind:       KindTransport,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status: %s", snippet(raw)),
		}
	}

	env, err := c.decode(raw)
	if err != nil {
		return nil, err
	}

	text, ok := env.FirstText()
	if !ok {
		msg := "no parsed results returned"
		if env.IsErroredOnProcessing {
			msg = "processing failed"
		}
		if m := env.Messages(); len(m) > 0 {
			msg = fmt.Sprintf("%s: %s", msg, strings.Join(m, "; "))
		}
		return nil, &OCRServiceError{Kind: KindEmptyResult, StatusCode: resp.StatusCode, Message: msg}
	}

	c.logger.Info("OCR completed",
		"file", filename,
		"chars", len(text),
		"exit_code", env.OCRExitCode,
		"service_ms", env.ProcessingTime(),
		"elapsed", time.Since(start).Round(time.Millisecond))

	return &Result{
		Filename:       filename,
		Text:           text,
		ExitCode:       env.OCRExitCode,
		ProcessingTime: env.ProcessingTime(),
	}, nil
}

func (c *Client) form(filename string, document []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"apikey", c.apiKey},
		{"language", c.language},
		{"OCREngine", strconv.Itoa(c.engine)},
		{"isOverlayRequired", "false"},
		{"scale", "true"},
		{"detectOrientation", "true"},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(document); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *Client) decode(raw []byte) (*Envelope, error) {
	if err := c.validator.Validate(raw); err != nil {
		return nil, &OCRServiceError{Kind: KindMalformed, Message: "response does not match envelope schema", Cause: err}
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &OCRServiceError{Kind: KindMalformed, Message: "failed to decode envelope", Cause: err}
	}
	return &env, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
