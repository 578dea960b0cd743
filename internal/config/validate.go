package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// FieldError is a validation failure for one field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every FieldError found.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "configuration validation failed: " + e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:", len(e.Errors))
	for _, err := range e.Errors {
		sb.WriteString("\n  - " + err.Error())
	}
	return sb.String()
}

// Validate checks cfg and returns a ValidationError listing every problem.
func Validate(cfg *Config) error {
	var errs []FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.Site.BaseURL != "" {
		u, err := url.Parse(cfg.Site.BaseURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			add("site.base_url", "must be an absolute URL, got %q", cfg.Site.BaseURL)
		}
	}
	if cfg.Site.DatasetPath == "" || strings.HasSuffix(cfg.Site.DatasetPath, "/") {
		add("site.dataset_path", "must name a file")
	}

	switch cfg.Source.Driver {
	case "pgx", "sqlite":
	default:
		add("source.driver", "must be pgx or sqlite, got %q", cfg.Source.Driver)
	}
	if cfg.Source.DSN == "" {
		add("source.dsn", "is required")
	}

	switch cfg.Manifest.Backend {
	case "file":
		if cfg.Manifest.Path == "" {
			add("manifest.path", "is required for the file backend")
		}
	case "database":
	default:
		add("manifest.backend", "must be file or database, got %q", cfg.Manifest.Backend)
	}

	if cfg.Mirror.Enabled {
		if cfg.Mirror.Endpoint == "" {
			add("mirror.endpoint", "is required when the mirror is enabled")
		}
		if cfg.Mirror.AccessKey == "" || cfg.Mirror.SecretKey == "" {
			add("mirror.access_key", "access and secret keys are required when the mirror is enabled")
		}
	}

	if cfg.Notify.Enabled && len(cfg.Notify.Brokers) == 0 {
		add("notify.brokers", "at least one broker is required when notifications are enabled")
	}

	if cfg.Watch.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Watch.Schedule); err != nil {
			add("watch.schedule", "invalid cron expression: %v", err)
		}
	}

	if cfg.Server.ShutdownTimeout < 0 {
		add("server.shutdown_timeout", "must not be negative")
	}

	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		add("log.level", "unknown level %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		add("log.format", "must be text or json, got %q", cfg.Log.Format)
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
