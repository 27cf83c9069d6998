package stage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// LocalStager stages files in a directory on the local filesystem.
type LocalStager struct {
	dir    string
	logger *slog.Logger
}

// NewLocalStager returns a stager rooted at dir, creating it if needed.
func NewLocalStager(dir string, logger *slog.Logger) (*LocalStager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &StageError{Location: dir, Message: "failed to create stage directory", Cause: err}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalStager{dir: dir, logger: logger.With("component", "stage", "backend", "local")}, nil
}

// Location returns the stage directory.
func (s *LocalStager) Location() string {
	return s.dir
}

// Put compresses localPath into the stage, replacing any earlier copy.
func (s *LocalStager) Put(ctx context.Context, localPath string) (*StagedFile, error) {
	name := StagedName(localPath)
	dest := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return nil, &StageError{Location: s.dir, Name: name, Message: "failed to create temp file", Cause: err}
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := compress(localPath, tmp); err != nil {
		_ = tmp.Close()
		return nil, &StageError{Location: s.dir, Name: name, Message: "failed to compress", Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &StageError{Location: s.dir, Name: name, Message: "failed to close temp file", Cause: err}
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return nil, &StageError{Location: s.dir, Name: name, Message: "failed to replace staged file", Cause: err}
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, &StageError{Location: s.dir, Name: name, Message: "failed to stat staged file", Cause: err}
	}

	s.logger.Info("staged file", "name", name, "bytes", info.Size())
	return &StagedFile{Name: name, Location: s.dir, SourcePath: localPath, Size: info.Size()}, nil
}

// Open returns the raw (compressed) staged object.
func (s *LocalStager) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &StageError{Location: s.dir, Name: name, Message: "open", Cause: ErrNotFound}
		}
		return nil, &StageError{Location: s.dir, Name: name, Message: "open", Cause: err}
	}
	return f, nil
}
