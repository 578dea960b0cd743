package config

import "time"

const (
	DefaultUploadDir   = "wp-content/uploads"
	DefaultDatasetPath = "carte-data/arbres.json"

	DefaultSourceDriver = "sqlite"
	DefaultSourceDSN    = "data/arboretum.db"
	DefaultPostType     = "arbre"
	DefaultPostStatus   = "publish"

	DefaultManifestBackend = "file"
	DefaultManifestPath    = "data/manifest.json"

	DefaultMirrorBucket = "arboretum"

	DefaultNotifyTopic  = "arboretum.dataset.generated"
	DefaultWatchTopic   = "arboretum.tree.changed"
	DefaultWatchGroupID = "arboretum-watch"

	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultShutdownTimeout = 10 * time.Second

	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultLogMaxSizeMB  = 50
	DefaultLogMaxBackups = 5
	DefaultLogMaxAgeDays = 28
)

var DefaultBrokers = []string{"localhost:9092"}

// ApplyDefaults fills every unset field.
func ApplyDefaults(cfg *Config) {
	if cfg.Site.UploadDir == "" {
		cfg.Site.UploadDir = DefaultUploadDir
	}
	if cfg.Site.DatasetPath == "" {
		cfg.Site.DatasetPath = DefaultDatasetPath
	}

	if cfg.Source.Driver == "" {
		cfg.Source.Driver = DefaultSourceDriver
	}
	if cfg.Source.DSN == "" && cfg.Source.Driver == DefaultSourceDriver {
		cfg.Source.DSN = DefaultSourceDSN
	}
	if cfg.Source.PostType == "" {
		cfg.Source.PostType = DefaultPostType
	}
	if cfg.Source.Status == "" {
		cfg.Source.Status = DefaultPostStatus
	}

	if cfg.Manifest.Backend == "" {
		cfg.Manifest.Backend = DefaultManifestBackend
	}
	if cfg.Manifest.Path == "" {
		cfg.Manifest.Path = DefaultManifestPath
	}

	if cfg.Mirror.Bucket == "" {
		cfg.Mirror.Bucket = DefaultMirrorBucket
	}

	if len(cfg.Notify.Brokers) == 0 {
		cfg.Notify.Brokers = append([]string(nil), DefaultBrokers...)
	}
	if cfg.Notify.Topic == "" {
		cfg.Notify.Topic = DefaultNotifyTopic
	}
	if len(cfg.Watch.Brokers) == 0 {
		cfg.Watch.Brokers = append([]string(nil), cfg.Notify.Brokers...)
	}
	if cfg.Watch.Topic == "" {
		cfg.Watch.Topic = DefaultWatchTopic
	}
	if cfg.Watch.GroupID == "" {
		cfg.Watch.GroupID = DefaultWatchGroupID
	}

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = DefaultLogMaxBackups
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = DefaultLogMaxAgeDays
	}
}
