package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dveri-ekat/door-assistant/internal/model"
)

// FileStore keeps the snapshot as a single JSON document on disk.
type FileStore struct {
	path string
}

// NewFile returns a FileStore writing to path.
func NewFile(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the snapshot file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(_ context.Context) (*model.Catalog, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "file: read %s", s.path)
	}
	return decodeCatalog(data)
}

// Save writes to a temp file in the target directory, syncs it and renames it
// over the snapshot.
func (s *FileStore) Save(_ context.Context, c *model.Catalog) error {
	data, err := encodeCatalog(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "file: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".catalog-*.tmp")
	if err != nil {
		return eris.Wrap(err, "file: create temp")
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "file: write temp")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "file: sync temp")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "file: close temp")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return eris.Wrapf(err, "file: rename to %s", s.path)
	}
	committed = true

	zap.L().Debug("file: snapshot saved",
		zap.String("path", s.path),
		zap.Int("products", c.Len()),
		zap.Int("bytes", len(data)),
	)
	return nil
}

func (s *FileStore) Close() error { return nil }
