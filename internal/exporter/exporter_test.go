package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arboretum/internal/export"
	"arboretum/internal/metrics"
	"arboretum/internal/models"
	"arboretum/internal/storage"
)

type fakeSource struct {
	trees  []models.TreeRecord
	err    error
	onRead func()
}

func (f *fakeSource) PublishedTrees(context.Context) ([]models.TreeRecord, error) {
	if f.onRead != nil {
		f.onRead()
	}
	return f.trees, f.err
}

func (f *fakeSource) ModifiedSince(_ context.Context, t time.Time) ([]models.TreeRecord, error) {
	var out []models.TreeRecord
	for _, tree := range f.trees {
		if tree.LastModified.After(t) {
			out = append(out, tree)
		}
	}
	return out, nil
}

type fakeMirror struct {
	data []byte
	err  error
}

func (f *fakeMirror) Upload(_ context.Context, data []byte) error {
	f.data = data
	return f.err
}

type fakeNotifier struct {
	key   string
	value []byte
}

func (f *fakeNotifier) Publish(_ context.Context, key string, value []byte) error {
	f.key, f.value = key, value
	return nil
}

var (
	modified  = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	generated = time.Date(2024, 4, 2, 14, 0, 0, 0, time.UTC)
)

func sampleTrees() []models.TreeRecord {
	return []models.TreeRecord{
		{
			ID: 101, Label: models.Text("17"), Name: "Chêne pédonculé",
			Easting: models.Text("1752431.27"), Northing: models.Text("3148259.84"),
			DetailURL: "https://arboretum.example.org/arbres/chene-pedoncule/", LastModified: modified,
		},
		{
			ID: 102, Label: models.Text("18"), Name: "Tilleul",
			Northing: models.Text("3148300"),
			DetailURL: "https://arboretum.example.org/arbres/tilleul/", LastModified: modified,
		},
		{
			ID: 103, Name: "Erable",
			Easting: models.Text("1752500"),
			DetailURL: "https://arboretum.example.org/arbres/erable/", LastModified: modified,
		},
	}
}

func newTestExporter(t *testing.T, src Source, manifest storage.ManifestStore, path string, opts ...Option) *Exporter {
	t.Helper()
	builder, err := export.NewBuilder("https://arboretum.example.org")
	require.NoError(t, err)
	opts = append([]Option{WithClock(func() time.Time { return generated })}, opts...)
	return New(src, builder, manifest, path, opts...)
}

func TestGenerate_MixedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carte-data", "arbres.json")
	manifest := &storage.MemoryManifest{}
	e := newTestExporter(t, &fakeSource{trees: sampleTrees()}, manifest, path)

	report, err := e.Generate(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.ValidCount)
	assert.Equal(t, 2, report.ErrorCount)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, `- "Tilleul" : missing easting coordinate`, report.Errors[0])
	assert.Equal(t, `- "Erable" : missing tree number, missing northing coordinate`, report.Errors[1])
	require.NotNil(t, report.GeneratedAt)
	assert.Equal(t, generated, *report.GeneratedAt)
	assert.Equal(t, generated, *manifest.State.LastGeneration)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var records []models.ExportRecord
	require.NoError(t, json.Unmarshal(raw, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "17", records[0].Label)
	assert.Equal(t, "/arbres/chene-pedoncule/", records[0].URL)
	assert.InDelta(t, 43.53242817168166, records[0].Lat, 1e-9)
	assert.InDelta(t, 3.648682066604315, records[0].Lng, 1e-9)
}

func TestGenerate_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbres.json")
	e := newTestExporter(t, &fakeSource{trees: sampleTrees()}, &storage.MemoryManifest{}, path)

	_, err := e.Generate(context.Background())
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = e.Generate(context.Background())
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestStatus_AfterExport(t *testing.T) {
	src := &fakeSource{trees: sampleTrees()}
	e := newTestExporter(t, src, &storage.MemoryManifest{}, filepath.Join(t.TempDir(), "arbres.json"))
	ctx := context.Background()

	st, err := e.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.UpToDate)
	assert.Nil(t, st.LastGeneration)
	assert.Empty(t, st.Modified)

	_, err = e.Generate(ctx)
	require.NoError(t, err)

	st, err = e.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.UpToDate)
	assert.Empty(t, st.Modified)

	src.trees[2].LastModified = generated.Add(time.Minute)
	st, err = e.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.UpToDate)
	require.Len(t, st.Modified, 1)
	assert.Equal(t, int64(103), st.Modified[0].ID)
}

func TestGenerate_StoreFailureKeepsManifest(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "carte-data")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	manifest := &storage.MemoryManifest{}
	e := newTestExporter(t, &fakeSource{trees: sampleTrees()}, manifest, filepath.Join(blocker, "arbres.json"))

	report, err := e.Generate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrDirectoryCreate)
	assert.False(t, report.Success)
	assert.Equal(t, "Could not create directory: "+blocker, report.Message)
	assert.Nil(t, report.GeneratedAt)
	assert.False(t, manifest.State.Generated())
}

func TestGenerate_ProjectionErrorAborts(t *testing.T) {
	trees := sampleTrees()
	trees[0].Easting = models.Text("17OOOOO")
	path := filepath.Join(t.TempDir(), "arbres.json")
	manifest := &storage.MemoryManifest{}
	e := newTestExporter(t, &fakeSource{trees: trees}, manifest, path)

	report, err := e.Generate(context.Background())
	assert.ErrorIs(t, err, export.ErrProjection)
	assert.False(t, report.Success)
	assert.NoFileExists(t, path)
	assert.False(t, manifest.State.Generated())
}

func TestGenerate_SourceError(t *testing.T) {
	e := newTestExporter(t, &fakeSource{err: errors.New("connection refused")}, &storage.MemoryManifest{}, filepath.Join(t.TempDir(), "arbres.json"))

	report, err := e.Generate(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Could not read the trees.", report.Message)
}

func TestGenerate_InProgress(t *testing.T) {
	e := newTestExporter(t, &fakeSource{}, &storage.MemoryManifest{}, filepath.Join(t.TempDir(), "arbres.json"))

	e.running.Lock()
	report, err := e.Generate(context.Background())
	e.running.Unlock()

	assert.ErrorIs(t, err, export.ErrExportInProgress)
	assert.False(t, report.Success)

	_, err = e.Generate(context.Background())
	assert.NoError(t, err)
}

func TestGenerate_PostPublishSteps(t *testing.T) {
	mirror := &fakeMirror{err: errors.New("bucket unavailable")}
	notifier := &fakeNotifier{}
	path := filepath.Join(t.TempDir(), "arbres.json")
	e := newTestExporter(t, &fakeSource{trees: sampleTrees()}, &storage.MemoryManifest{}, path,
		WithMirror(mirror), WithNotifier(notifier), WithMetrics(metrics.NewCollector(nil)))

	report, err := e.Generate(context.Background())
	require.NoError(t, err, "a failing mirror must not fail the run")
	assert.True(t, report.Success)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, written, mirror.data)

	assert.Equal(t, report.RunID, notifier.key)
	var event generatedEvent
	require.NoError(t, json.Unmarshal(notifier.value, &event))
	assert.Equal(t, report.RunID, event.RunID)
	assert.Equal(t, 1, event.ValidCount)
	assert.Equal(t, 2, event.ErrorCount)
	assert.Equal(t, generated, event.GeneratedAt)
	assert.NotEmpty(t, event.ID)
}

func TestGenerate_EditDuringRunIsStale(t *testing.T) {
	now := generated
	src := &fakeSource{trees: sampleTrees()}
	src.onRead = func() {
		// the tree is saved while the run is still building the file
		src.trees[0].LastModified = now.Add(30 * time.Second)
		now = now.Add(time.Minute)
	}
	manifest := &storage.MemoryManifest{}
	builder, err := export.NewBuilder("https://arboretum.example.org")
	require.NoError(t, err)
	e := New(src, builder, manifest, filepath.Join(t.TempDir(), "arbres.json"),
		WithClock(func() time.Time { return now }))

	report, err := e.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, generated, *report.GeneratedAt)
	assert.Equal(t, generated, *manifest.State.LastGeneration)

	st, err := e.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, st.UpToDate)
	require.Len(t, st.Modified, 1)
	assert.Equal(t, int64(101), st.Modified[0].ID)
}
