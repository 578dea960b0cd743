package main

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"arboretum/internal/config"
	"arboretum/internal/export"
	"arboretum/internal/exporter"
	"arboretum/internal/hoststore"
	"arboretum/internal/keys"
	"arboretum/internal/metrics"
	"arboretum/internal/storage"
	"arboretum/pkg/kafkaclient"
)

// app holds the wired components shared by the commands.
type app struct {
	store    *hoststore.Store
	exporter *exporter.Exporter
	metrics  *metrics.Collector
	producer *kafkaclient.Producer
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := hoststore.Open(ctx, hoststore.Options{
		Driver:   cfg.Source.Driver,
		DSN:      cfg.Source.DSN,
		PostType: cfg.Source.PostType,
		Status:   cfg.Source.Status,
	})
	if err != nil {
		return nil, err
	}
	a := &app{store: store, metrics: metrics.NewCollector(nil)}

	if cfg.Source.Migrate {
		if err := store.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	var manifest storage.ManifestStore = store
	if cfg.Manifest.Backend == "file" {
		manifest = storage.NewFileManifest(cfg.Manifest.Path)
	}

	builder, err := export.NewBuilder(cfg.Site.BaseURL)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []exporter.Option{exporter.WithMetrics(a.metrics)}
	if cfg.Mirror.Enabled {
		mirror, err := storage.NewS3Mirror(storage.S3Options{
			Endpoint:  cfg.Mirror.Endpoint,
			AccessKey: cfg.Mirror.AccessKey,
			SecretKey: cfg.Mirror.SecretKey,
			UseSSL:    cfg.Mirror.UseSSL,
			Bucket:    cfg.Mirror.Bucket,
			Region:    cfg.Mirror.Region,
			Key:       keys.Dataset(cfg.Mirror.Prefix, cfg.Site.DatasetPath),
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, exporter.WithMirror(mirror))
	}
	if cfg.Notify.Enabled {
		a.producer = kafkaclient.NewProducer(cfg.Notify.Brokers, cfg.Notify.Topic)
		opts = append(opts, exporter.WithNotifier(a.producer))
	}

	a.exporter = exporter.New(store, builder, manifest, cfg.Site.DatasetFile(), opts...)
	logrus.WithFields(logrus.Fields{"dataset": cfg.Site.DatasetFile(), "manifest": manifest.String()}).Debug("Exporter ready")
	return a, nil
}

func (a *app) Close() {
	var errs []error
	if a.producer != nil {
		errs = append(errs, a.producer.Close())
	}
	errs = append(errs, a.store.Close())
	if err := errors.Join(errs...); err != nil {
		logrus.Warnf("Error while closing: %v", err)
	}
}
