package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"arboretum/internal/models"
)

// ManifestStore loads and saves the last-generation marker.
type ManifestStore interface {
	Load(ctx context.Context) (models.ManifestState, error)
	Save(ctx context.Context, state models.ManifestState) error
	String() string
}

// FileManifest keeps the marker in a small JSON file.
type FileManifest struct {
	path string
}

type manifestFile struct {
	LastGeneration string `json:"last_generation"`
}

// NewFileManifest returns a manifest stored at path.
func NewFileManifest(path string) *FileManifest {
	return &FileManifest{path: path}
}

func (m *FileManifest) String() string { return m.path }

// Load returns the absent state when the file does not exist.
func (m *FileManifest) Load(_ context.Context) (models.ManifestState, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.ManifestState{}, nil
	}
	if err != nil {
		return models.ManifestState{}, fmt.Errorf("failed to read manifest %s: %w", m.path, err)
	}

	var f manifestFile
	if err := json.Unmarshal(data, &f); err != nil {
		return models.ManifestState{}, fmt.Errorf("failed to decode manifest %s: %w", m.path, err)
	}
	if f.LastGeneration == "" {
		return models.ManifestState{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, f.LastGeneration)
	if err != nil {
		return models.ManifestState{}, fmt.Errorf("invalid last_generation in %s: %w", m.path, err)
	}
	return models.At(t), nil
}

// Save overwrites the marker atomically.
func (m *FileManifest) Save(_ context.Context, state models.ManifestState) error {
	var f manifestFile
	if state.LastGeneration != nil {
		f.LastGeneration = state.LastGeneration.UTC().Format(time.RFC3339Nano)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), DirMode); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	tmp := fmt.Sprintf("%s.tmp.%d", m.path, os.Getpid())
	if err := os.WriteFile(tmp, data, FileMode); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}

// MemoryManifest keeps the marker in memory.
type MemoryManifest struct {
	State models.ManifestState
	Err   error
}

func (m *MemoryManifest) String() string { return "memory" }

func (m *MemoryManifest) Load(context.Context) (models.ManifestState, error) {
	return m.State, nil
}

func (m *MemoryManifest) Save(_ context.Context, state models.ManifestState) error {
	if m.Err != nil {
		return m.Err
	}
	m.State = state
	return nil
}
