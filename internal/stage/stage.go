package stage

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CompressedExt is appended to every staged file name.
const CompressedExt = ".gz"

// StagedFile describes an artifact after it has been staged.
type StagedFile struct {
	Name       string
	Location   string
	SourcePath string
	Size       int64
}

// Stager puts local files into a staging area, always gzip-compressed and
// always overwriting an existing object of the same name.
type Stager interface {
	Put(ctx context.Context, localPath string) (*StagedFile, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Location() string
}

// StagedName returns the staged object name for a local file.
func StagedName(localPath string) string {
	return filepath.Base(localPath) + CompressedExt
}

// OpenCSV opens a staged object and returns a reader over its decompressed content.
func OpenCSV(ctx context.Context, s Stager, name string) (io.ReadCloser, error) {
	rc, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(name, CompressedExt) {
		return rc, nil
	}
	zr, err := gzip.NewReader(rc)
	if err != nil {
		_ = rc.Close()
		return nil, &StageError{Location: s.Location(), Name: name, Message: "staged file is not gzip", Cause: err}
	}
	return &gzipReadCloser{Reader: zr, underlying: rc}, nil
}

type gzipReadCloser struct {
	*gzip.Reader
	underlying io.Closer
}

func (g *gzipReadCloser) Close() error {
	zerr := g.Reader.Close()
	if err := g.underlying.Close(); err != nil {
		return err
	}
	return zerr
}

// compress writes localPath to w through gzip.
func compress(localPath string, w io.Writer) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	zw := gzip.NewWriter(w)
	zw.Name = filepath.Base(localPath)
	if _, err := io.Copy(zw, f); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}
