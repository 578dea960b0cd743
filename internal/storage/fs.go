package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"arboretum/internal/models"
)

const (
	DirMode  fs.FileMode = 0o755
	FileMode fs.FileMode = 0o644
)

// ExportStore persists the dataset file and the generation marker.
type ExportStore struct {
	manifest ManifestStore
	rename   func(oldpath, newpath string) error
}

// NewExportStore returns a store that records successful generations in
// manifest.
func NewExportStore(manifest ManifestStore) *ExportStore {
	return &ExportStore{manifest: manifest, rename: os.Rename}
}

// EnsureTarget creates dir and its parents if absent.
func (s *ExportStore) EnsureTarget(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return &StoreError{Kind: ErrDirectoryCreate, Path: dir, Err: errors.New("not a directory")}
		}
		return nil
	}
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return &StoreError{Kind: ErrDirectoryCreate, Path: dir, Err: err}
	}
	logrus.Infof("Created export directory %s", dir)
	return nil
}

// CheckWritable probes dir by creating and removing a temporary file.
func (s *ExportStore) CheckWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return &StoreError{Kind: ErrNotWritable, Path: dir, Err: err}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return nil
}

// Write replaces path with data. The bytes go to a temporary file in the
// same directory which is renamed over path once complete, so readers see
// either the previous file or the new one. On failure the temporary file is
// removed and any previous file is left untouched.
func (s *ExportStore) Write(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &StoreError{Kind: ErrWrite, Path: path, Err: err}
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return &StoreError{Kind: ErrWrite, Path: path, Err: err}
	}
	if err = tmp.Sync(); err != nil {
		return &StoreError{Kind: ErrWrite, Path: path, Err: err}
	}
	if err = tmp.Chmod(FileMode); err != nil {
		return &StoreError{Kind: ErrWrite, Path: path, Err: err}
	}
	if err = tmp.Close(); err != nil {
		return &StoreError{Kind: ErrWrite, Path: path, Err: err}
	}
	if err = s.rename(tmpPath, path); err != nil {
		return &StoreError{Kind: ErrWrite, Path: path, Err: err}
	}
	return nil
}

// RecordGeneration persists now as the last generation and returns the new
// state.
func (s *ExportStore) RecordGeneration(ctx context.Context, now time.Time) (models.ManifestState, error) {
	state := models.At(now)
	if err := s.manifest.Save(ctx, state); err != nil {
		return models.ManifestState{}, &StoreError{Kind: ErrManifest, Path: s.manifest.String(), Err: err}
	}
	return state, nil
}

// Publish runs EnsureTarget, CheckWritable, Write and RecordGeneration in
// that order, stopping at the first failure. The returned state is the
// previous one unless every step succeeded.
func (s *ExportStore) Publish(ctx context.Context, path string, data []byte, prev models.ManifestState, now time.Time) (models.ManifestState, error) {
	dir := filepath.Dir(path)
	if err := s.EnsureTarget(dir); err != nil {
		return prev, err
	}
	if err := s.CheckWritable(dir); err != nil {
		return prev, err
	}
	if err := s.Write(path, data); err != nil {
		return prev, err
	}
	state, err := s.RecordGeneration(ctx, now)
	if err != nil {
		return prev, err
	}
	logrus.WithFields(logrus.Fields{"path": path, "bytes": len(data)}).Info("Dataset written")
	return state, nil
}

// FileInfo returns the modification time of the dataset file, or false if
// it does not exist.
func FileInfo(path string) (time.Time, bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.ModTime(), true, nil
}
