// Package exporter runs one dataset generation end to end: read the host
// store, build and encode the dataset, publish it and fan out the
// post-publish side effects.
package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"arboretum/internal/export"
	"arboretum/internal/metrics"
	"arboretum/internal/models"
	"arboretum/internal/pipeline"
	"arboretum/internal/status"
	"arboretum/internal/storage"
)

// Source is the read side of the host store.
type Source interface {
	PublishedTrees(ctx context.Context) ([]models.TreeRecord, error)
	status.Source
}

// Uploader receives a copy of every published dataset.
type Uploader interface {
	Upload(ctx context.Context, data []byte) error
}

// Publisher announces a published dataset.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Report is what the operator sees after a run.
type Report struct {
	RunID       string     `json:"run_id"`
	Success     bool       `json:"success"`
	ValidCount  int        `json:"valid_count"`
	ErrorCount  int        `json:"error_count"`
	Errors      []string   `json:"errors"`
	Message     string     `json:"message"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
	Path        string     `json:"path"`
}

// Exporter generates the dataset at a fixed path. Runs never overlap: a
// request made while a run is active fails with export.ErrExportInProgress.
type Exporter struct {
	source   Source
	builder  *export.Builder
	store    *storage.ExportStore
	manifest storage.ManifestStore
	path     string

	metrics  *metrics.Collector
	mirror   Uploader
	notifier Publisher
	now      func() time.Time

	running sync.Mutex
}

// Option configures optional collaborators.
type Option func(*Exporter)

func WithMetrics(c *metrics.Collector) Option { return func(e *Exporter) { e.metrics = c } }

func WithMirror(u Uploader) Option { return func(e *Exporter) { e.mirror = u } }

func WithNotifier(p Publisher) Option { return func(e *Exporter) { e.notifier = p } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(e *Exporter) { e.now = now } }

// New returns an exporter writing to path and recording generations in
// manifest.
func New(source Source, builder *export.Builder, manifest storage.ManifestStore, path string, opts ...Option) *Exporter {
	e := &Exporter{
		source:   source,
		builder:  builder,
		store:    storage.NewExportStore(manifest),
		manifest: manifest,
		path:     path,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Path is the dataset file location.
func (e *Exporter) Path() string { return e.path }

// Generate regenerates the dataset from the current host store content.
// Store failures are returned along with a report carrying the operator
// message. Validation problems never fail the run.
func (e *Exporter) Generate(ctx context.Context) (Report, error) {
	runID := uuid.NewString()
	if !e.running.TryLock() {
		e.recordRun(metrics.OutcomeInProgress, -1, -1, 0)
		return Report{RunID: runID, Errors: []string{}, Message: "An export is already in progress.", Path: e.path}, export.ErrExportInProgress
	}
	defer e.running.Unlock()

	started := e.now()
	log := logrus.WithField("run_id", runID)
	log.Info("Starting dataset generation")

	report, data, err := e.generate(ctx, runID, started)
	elapsed := e.now().Sub(started)
	if err != nil {
		log.Errorf("Dataset generation failed: %v", err)
		e.recordRun(metrics.OutcomeFailure, -1, -1, elapsed)
		return report, err
	}

	e.recordRun(metrics.OutcomeSuccess, report.ValidCount, report.ErrorCount, elapsed)
	if e.metrics != nil {
		e.metrics.SetLastGeneration(*report.GeneratedAt)
	}
	log.WithFields(logrus.Fields{"valid": report.ValidCount, "invalid": report.ErrorCount}).Info("Dataset generated")

	e.afterPublish(ctx, &publication{report: report, data: data})
	return report, nil
}

// generate records startedAt as the generation time. It is taken before
// the trees are read so that an edit made during the run is newer than
// the recorded generation and shows up as stale.
func (e *Exporter) generate(ctx context.Context, runID string, startedAt time.Time) (Report, []byte, error) {
	report := Report{RunID: runID, Errors: []string{}, Path: e.path}

	prev, err := e.manifest.Load(ctx)
	if err != nil {
		report.Message = "Could not read the last generation date."
		return report, nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	trees, err := e.source.PublishedTrees(ctx)
	if err != nil {
		report.Message = "Could not read the trees."
		return report, nil, fmt.Errorf("failed to load published trees: %w", err)
	}

	records, result, err := e.builder.Build(trees)
	if err != nil {
		report.Message = "A tree has invalid coordinates: " + err.Error()
		return report, nil, err
	}
	report.ValidCount = result.ValidCount
	report.ErrorCount = result.ErrorCount
	report.Errors = result.Errors

	data, err := export.Encode(records)
	if err != nil {
		report.Message = "Could not encode the dataset."
		return report, nil, err
	}

	state, err := e.store.Publish(ctx, e.path, data, prev, startedAt)
	if err != nil {
		var storeErr *storage.StoreError
		if errors.As(err, &storeErr) {
			report.Message = storeErr.Message()
		} else {
			report.Message = "An unknown error occurred."
		}
		return report, nil, err
	}

	report.Success = true
	report.GeneratedAt = state.LastGeneration
	report.Message = fmt.Sprintf("Dataset generated: %d tree(s) exported, %d error(s).", report.ValidCount, report.ErrorCount)
	return report, data, nil
}

// Status reports whether the published dataset is behind the host store.
func (e *Exporter) Status(ctx context.Context) (status.Status, error) {
	state, err := e.manifest.Load(ctx)
	if err != nil {
		return status.Status{}, fmt.Errorf("failed to load manifest: %w", err)
	}
	return status.Check(ctx, e.source, state)
}

func (e *Exporter) recordRun(outcome string, valid, invalid int, elapsed time.Duration) {
	if e.metrics != nil {
		e.metrics.RecordRun(outcome, valid, invalid, elapsed)
	}
}

// publication is the item flowing through the post-publish pipeline.
type publication struct {
	report Report
	data   []byte
}

// generatedEvent is the payload sent to the notify topic.
type generatedEvent struct {
	ID          string    `json:"id"`
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	ValidCount  int       `json:"valid_count"`
	ErrorCount  int       `json:"error_count"`
	Path        string    `json:"path"`
}

func (e *Exporter) afterPublish(ctx context.Context, item *publication) {
	var steps []pipeline.Step[publication]
	if e.mirror != nil {
		steps = append(steps, e.step("mirror", func(ctx context.Context, p *publication) error {
			return e.mirror.Upload(ctx, p.data)
		}))
	}
	if e.notifier != nil {
		steps = append(steps, e.step("notify", func(ctx context.Context, p *publication) error {
			payload, err := json.Marshal(generatedEvent{
				ID:          uuid.NewString(),
				RunID:       p.report.RunID,
				GeneratedAt: *p.report.GeneratedAt,
				ValidCount:  p.report.ValidCount,
				ErrorCount:  p.report.ErrorCount,
				Path:        p.report.Path,
			})
			if err != nil {
				return err
			}
			return e.notifier.Publish(ctx, p.report.RunID, payload)
		}))
	}
	if len(steps) == 0 {
		return
	}

	failures := pipeline.NewPipeline(pipeline.NewStage("publish", steps...)).Run(ctx, item)
	if len(failures) > 0 {
		logrus.WithField("run_id", item.report.RunID).Warnf("%d post-publish step(s) failed", len(failures))
	}
}

func (e *Exporter) step(name string, fn pipeline.Step[publication]) pipeline.Step[publication] {
	return func(ctx context.Context, p *publication) error {
		if err := fn(ctx, p); err != nil {
			if e.metrics != nil {
				e.metrics.RecordStepFailure(name)
			}
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
}
