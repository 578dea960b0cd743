// Package config loads the exporter configuration from YAML and the
// environment.
package config

import (
	"path/filepath"
	"time"
)

// Config is the complete exporter configuration.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Source   SourceConfig   `yaml:"source"`
	Manifest ManifestConfig `yaml:"manifest"`
	Mirror   MirrorConfig   `yaml:"mirror"`
	Notify   NotifyConfig   `yaml:"notify"`
	Watch    WatchConfig    `yaml:"watch"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// SiteConfig describes the host site the dataset is published on.
type SiteConfig struct {
	// BaseURL is stripped from tree permalinks to build relative URLs.
	BaseURL string `yaml:"base_url"`
	// UploadDir is the public upload area of the site.
	UploadDir string `yaml:"upload_dir"`
	// DatasetPath is relative to UploadDir.
	DatasetPath string `yaml:"dataset_path"`
}

// DatasetFile is the absolute location of the dataset.
func (s SiteConfig) DatasetFile() string {
	return filepath.Join(s.UploadDir, filepath.FromSlash(s.DatasetPath))
}

type SourceConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	PostType string `yaml:"post_type"`
	Status   string `yaml:"status"`
	// Migrate creates the tables when missing. Meant for local setups.
	Migrate bool `yaml:"migrate"`
}

type ManifestConfig struct {
	// Backend is "file" or "database".
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type MirrorConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
}

type NotifyConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type WatchConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
	// Schedule is a five-field cron expression for periodic status logs.
	Schedule string `yaml:"schedule"`
}

type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}
