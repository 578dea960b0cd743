package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. ARBORETUM_SITE_BASE_URL.
const EnvPrefix = "ARBORETUM_"

// Load reads path, applies defaults and environment overrides, then
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return finish(&cfg)
}

// LoadOrDefault behaves like Load but falls back to defaults and the
// environment when path is empty or does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		cfg, err := Load(path)
		if err == nil || !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
		logrus.Infof("Configuration file %s not found, using defaults", path)
	}
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	ApplyDefaults(cfg)
	applyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Site.BaseURL, "SITE_BASE_URL")
	setString(&cfg.Site.UploadDir, "SITE_UPLOAD_DIR")
	setString(&cfg.Site.DatasetPath, "SITE_DATASET_PATH")

	setString(&cfg.Source.Driver, "SOURCE_DRIVER")
	setString(&cfg.Source.DSN, "SOURCE_DSN")
	setString(&cfg.Source.PostType, "SOURCE_POST_TYPE")
	setString(&cfg.Source.Status, "SOURCE_STATUS")
	setBool(&cfg.Source.Migrate, "SOURCE_MIGRATE")

	setString(&cfg.Manifest.Backend, "MANIFEST_BACKEND")
	setString(&cfg.Manifest.Path, "MANIFEST_PATH")

	setBool(&cfg.Mirror.Enabled, "MIRROR_ENABLED")
	setString(&cfg.Mirror.Endpoint, "MIRROR_ENDPOINT")
	setString(&cfg.Mirror.AccessKey, "MIRROR_ACCESS_KEY")
	setString(&cfg.Mirror.SecretKey, "MIRROR_SECRET_KEY")
	setBool(&cfg.Mirror.UseSSL, "MIRROR_USE_SSL")
	setString(&cfg.Mirror.Bucket, "MIRROR_BUCKET")
	setString(&cfg.Mirror.Region, "MIRROR_REGION")
	setString(&cfg.Mirror.Prefix, "MIRROR_PREFIX")

	setBool(&cfg.Notify.Enabled, "NOTIFY_ENABLED")
	setList(&cfg.Notify.Brokers, "NOTIFY_BROKERS")
	setString(&cfg.Notify.Topic, "NOTIFY_TOPIC")

	setList(&cfg.Watch.Brokers, "WATCH_BROKERS")
	setString(&cfg.Watch.Topic, "WATCH_TOPIC")
	setString(&cfg.Watch.GroupID, "WATCH_GROUP_ID")
	setString(&cfg.Watch.Schedule, "WATCH_SCHEDULE")

	setString(&cfg.Server.ListenAddress, "SERVER_LISTEN_ADDRESS")
	if val := os.Getenv(EnvPrefix + "SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		} else {
			logrus.Warnf("Ignoring %sSERVER_SHUTDOWN_TIMEOUT: %v", EnvPrefix, err)
		}
	}

	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.Log.File, "LOG_FILE")
}

func setString(dst *string, key string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func setBool(dst *bool, key string) {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		logrus.Warnf("Ignoring %s%s: %v", EnvPrefix, key, err)
		return
	}
	*dst = b
}

func setList(dst *[]string, key string) {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return
	}
	var items []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) > 0 {
		*dst = items
	}
}
