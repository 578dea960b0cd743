package export

import (
	"errors"
	"fmt"
)

var (
	// ErrProjection matches any ProjectionError.
	ErrProjection = errors.New("projection failed")
	// ErrExportInProgress is returned when a run is requested while another
	// one has not finished.
	ErrExportInProgress = errors.New("an export is already in progress")
)

// ProjectionError reports a record that passed validation but whose
// coordinates could not be projected. It aborts the run.
type ProjectionError struct {
	RecordID int64
	Name     string
	Field    string
	Value    string
	Err      error
}

func (e *ProjectionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("tree %d %q: invalid %s %q: %v", e.RecordID, e.Name, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("tree %d %q: %v", e.RecordID, e.Name, e.Err)
}

func (e *ProjectionError) Unwrap() error { return e.Err }

func (e *ProjectionError) Is(target error) bool { return target == ErrProjection }
