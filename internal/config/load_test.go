package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arboretum.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	path := writeConfig(t, `
site:
  base_url: "https://arboretum.example.org"
  upload_dir: "/var/www/wp-content/uploads"
source:
  driver: "pgx"
  dsn: "postgres://wp@localhost/wordpress"
manifest:
  backend: "database"
mirror:
  enabled: true
  endpoint: "minio:9000"
  access_key: "key"
  secret_key: "secret"
watch:
  schedule: "*/15 * * * *"
server:
  shutdown_timeout: "30s"
log:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://arboretum.example.org", cfg.Site.BaseURL)
	assert.Equal(t, "/var/www/wp-content/uploads/carte-data/arbres.json", cfg.Site.DatasetFile())
	assert.Equal(t, "pgx", cfg.Source.Driver)
	assert.Equal(t, DefaultPostType, cfg.Source.PostType)
	assert.Equal(t, "database", cfg.Manifest.Backend)
	assert.Equal(t, DefaultMirrorBucket, cfg.Mirror.Bucket)
	assert.Equal(t, DefaultBrokers, cfg.Watch.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "site:\n  base_url: \"https://a.example.org\"\n")
	t.Setenv("ARBORETUM_SITE_BASE_URL", "https://b.example.org/wp")
	t.Setenv("ARBORETUM_NOTIFY_ENABLED", "true")
	t.Setenv("ARBORETUM_NOTIFY_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ARBORETUM_MIRROR_USE_SSL", "not-a-bool")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://b.example.org/wp", cfg.Site.BaseURL)
	assert.True(t, cfg.Notify.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Notify.Brokers)
	assert.False(t, cfg.Mirror.UseSSL)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"bad yaml", "site: [", ""},
		{"bad driver", "source:\n  driver: mysql\n  dsn: x\n", "source.driver"},
		{"relative base url", "site:\n  base_url: arboretum.example.org\n", "site.base_url"},
		{"bad manifest backend", "manifest:\n  backend: redis\n", "manifest.backend"},
		{"mirror without endpoint", "mirror:\n  enabled: true\n", "mirror.endpoint"},
		{"bad schedule", "watch:\n  schedule: \"every minute\"\n", "watch.schedule"},
		{"bad log level", "log:\n  level: loud\n", "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			if tt.field == "" {
				return
			}
			var verr ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			var fields []string
			for _, fe := range verr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultDatasetPath, cfg.Site.DatasetPath)
	assert.Equal(t, DefaultSourceDriver, cfg.Source.Driver)
	assert.Equal(t, DefaultSourceDSN, cfg.Source.DSN)

	cfg, err = LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, DefaultListenAddress, cfg.Server.ListenAddress)
}

func TestValidationError_Message(t *testing.T) {
	one := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	assert.Equal(t, "configuration validation failed: a: bad", one.Error())

	two := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	assert.Equal(t, "configuration validation failed with 2 errors:\n  - a: bad\n  - b: worse", two.Error())
}
