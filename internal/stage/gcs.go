package stage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSOptions configures a GCSStager.
type GCSOptions struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
	// Endpoint overrides the storage API endpoint (emulators). Setting it
	// disables authentication.
	Endpoint string
}

// GCSStager stages files as objects under gs://bucket/prefix.
type GCSStager struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
	logger *slog.Logger
}

// NewGCSStager connects to Cloud Storage. Close releases the client.
func NewGCSStager(ctx context.Context, opts GCSOptions, logger *slog.Logger) (*GCSStager, error) {
	if opts.Bucket == "" {
		return nil, &StageError{Location: "gs://", Message: "bucket is required"}
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, &StageError{Location: "gs://" + opts.Bucket, Message: "failed to create storage client", Cause: err}
	}
	return newGCSStager(client, opts, logger), nil
}

func newGCSStager(client *storage.Client, opts GCSOptions, logger *slog.Logger) *GCSStager {
	if logger == nil {
		logger = slog.Default()
	}
	return &GCSStager{
		client: client,
		bucket: client.Bucket(opts.Bucket),
		name:   opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
		logger: logger.With("component", "stage", "backend", "gcs"),
	}
}

// Location returns the gs:// URL of the stage.
func (s *GCSStager) Location() string {
	if s.prefix == "" {
		return "gs://" + s.name
	}
	return fmt.Sprintf("gs://%s/%s", s.name, s.prefix)
}

func (s *GCSStager) object(name string) string {
	return path.Join(s.prefix, path.Base(name))
}

// Put uploads localPath gzip-compressed, overwriting any existing object.
func (s *GCSStager) Put(ctx context.Context, localPath string) (*StagedFile, error) {
	name := StagedName(localPath)

	w := s.bucket.Object(s.object(name)).NewWriter(ctx)
	w.ContentType = "application/gzip"

	if err := compress(localPath, w); err != nil {
		_ = w.Close()
		return nil, s.wrap(name, "failed to upload", err)
	}
	if err := w.Close(); err != nil {
		return nil, s.wrap(name, "failed to finalize upload", err)
	}

	attrs := w.Attrs()
	var size int64
	if attrs != nil {
		size = attrs.Size
	}
	s.logger.Info("staged file", "object", s.object(name), "bytes", size)
	return &StagedFile{Name: name, Location: s.Location(), SourcePath: localPath, Size: size}, nil
}

// Open returns a reader over the raw (compressed) object.
func (s *GCSStager) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(s.object(name)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, &StageError{Location: s.Location(), Name: name, Message: "open", Cause: ErrNotFound}
		}
		return nil, s.wrap(name, "open", err)
	}
	return r, nil
}

// Close releases the storage client.
func (s *GCSStager) Close() error {
	return s.client.Close()
}

func (s *GCSStager) wrap(name, msg string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, gerr.Code)
	}
	return &StageError{Location: s.Location(), Name: name, Message: msg, Cause: err}
}
