// Package export turns host tree records into the published map dataset:
// validation, projection to WGS84 and deterministic serialization.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"arboretum/internal/models"
	geomodels "arboretum/models"
	"arboretum/pkg/geo"
)

// ProjectFunc converts projected easting/northing to WGS84.
type ProjectFunc func(easting, northing float64) geomodels.GeoPoint

// Builder partitions records into exportable entries and error lines.
type Builder struct {
	baseURL *url.URL
	project ProjectFunc
}

// NewBuilder returns a Builder that relativizes detail links against
// baseURL and projects with the CC44 zone.
func NewBuilder(baseURL string) (*Builder, error) {
	var base *url.URL
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid site base URL %q: %w", baseURL, err)
		}
		base = u
	}
	return &Builder{baseURL: base, project: geo.ToWGS84}, nil
}

// Build validates and projects every record in collection order. Records
// with problems are skipped and reported; a ProjectionError aborts the
// build.
func (b *Builder) Build(records []models.TreeRecord) ([]models.ExportRecord, models.ExportResult, error) {
	valid := make([]models.ExportRecord, 0, len(records))
	errorLines := make([]string, 0)

	for _, r := range records {
		if problems := Validate(r); len(problems) > 0 {
			line := FormatProblems(r.Name, problems)
			logrus.WithFields(logrus.Fields{"tree_id": r.ID, "name": r.Name}).Warnf("Skipping tree: %s", strings.Join(problems, ", "))
			errorLines = append(errorLines, line)
			continue
		}

		point, err := b.projectRecord(r)
		if err != nil {
			return nil, models.ExportResult{}, err
		}

		valid = append(valid, models.ExportRecord{
			ID:    r.ID,
			Label: r.Label.String,
			Name:  r.Name,
			Lat:   point.Lat,
			Lng:   point.Lng,
			URL:   relativeURL(b.baseURL, r.DetailURL),
		})
	}

	return valid, models.ExportResult{
		ValidCount: len(valid),
		ErrorCount: len(errorLines),
		Errors:     errorLines,
	}, nil
}

// FormatProblems renders the operator-facing line for a skipped record.
func FormatProblems(name string, problems []string) string {
	return `- "` + name + `" : ` + strings.Join(problems, ", ")
}

func (b *Builder) projectRecord(r models.TreeRecord) (geomodels.GeoPoint, error) {
	easting, err := parseCoordinate(r, "easting", r.Easting.String)
	if err != nil {
		return geomodels.GeoPoint{}, err
	}
	northing, err := parseCoordinate(r, "northing", r.Northing.String)
	if err != nil {
		return geomodels.GeoPoint{}, err
	}

	point := b.project(easting, northing)
	if !finite(point.Lat) || !finite(point.Lng) {
		return geomodels.GeoPoint{}, &ProjectionError{
			RecordID: r.ID,
			Name:     r.Name,
			Err:      fmt.Errorf("non-finite result for (%v, %v)", easting, northing),
		}
	}
	return point, nil
}

func parseCoordinate(r models.TreeRecord, field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err == nil && !finite(v) {
		err = errors.New("not a finite number")
	}
	if err != nil {
		return 0, &ProjectionError{RecordID: r.ID, Name: r.Name, Field: field, Value: raw, Err: err}
	}
	return v, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Encode serializes the dataset as an indented JSON array. Key order is
// fixed by ExportRecord, and non-ASCII text and slashes are left unescaped,
// so equal input always yields equal bytes.
func Encode(records []models.ExportRecord) ([]byte, error) {
	if records == nil {
		records = []models.ExportRecord{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("failed to encode dataset: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
