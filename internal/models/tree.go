package models

import (
	"database/sql"
	"strings"
	"time"
)

// TreeRecord is a tree as the host store exposes it. Optional fields are
// nullable; a field is missing when it is NULL or blank.
type TreeRecord struct {
	ID           int64
	Label        sql.NullString
	Name         string
	Easting      sql.NullString
	Northing     sql.NullString
	DetailURL    string
	LastModified time.Time
}

// Present reports whether a nullable field holds a non-blank value. "0" is
// present.
func Present(v sql.NullString) bool {
	return v.Valid && strings.TrimSpace(v.String) != ""
}

// Text wraps a raw value as a present nullable field.
func Text(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

// ExportRecord is one entry of the published dataset. Field order is the
// serialization order.
type ExportRecord struct {
	ID    int64   `json:"id"`
	Label string  `json:"numero"`
	Name  string  `json:"nom"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	URL   string  `json:"url"`
}

// ExportResult summarizes one export run.
type ExportResult struct {
	ValidCount int      `json:"valid_count"`
	ErrorCount int      `json:"error_count"`
	Errors     []string `json:"errors"`
}

// ManifestState is the persisted marker of the last successful export.
// LastGeneration is nil until the first success.
type ManifestState struct {
	LastGeneration *time.Time `json:"last_generation,omitempty"`
}

// Generated reports whether an export has ever succeeded.
func (m ManifestState) Generated() bool {
	return m.LastGeneration != nil
}

// At returns a state recording a generation at t, in UTC.
func At(t time.Time) ManifestState {
	utc := t.UTC()
	return ManifestState{LastGeneration: &utc}
}
