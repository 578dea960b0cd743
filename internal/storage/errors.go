package storage

import (
	"errors"
	"fmt"
)

var (
	ErrDirectoryCreate = errors.New("directory create failed")
	ErrNotWritable     = errors.New("directory not writable")
	ErrWrite           = errors.New("write failed")
	ErrManifest        = errors.New("manifest update failed")
)

// StoreError is a run-fatal failure of the export store. Kind is one of the
// sentinel errors above.
type StoreError struct {
	Kind error
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *StoreError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Message is the operator-facing text for the failure.
func (e *StoreError) Message() string {
	switch e.Kind {
	case ErrDirectoryCreate:
		return "Could not create directory: " + e.Path
	case ErrNotWritable:
		return "Directory is not writable: " + e.Path
	case ErrWrite:
		return "Error while writing the file."
	case ErrManifest:
		return "The file was written but the generation date could not be saved."
	default:
		return "An unknown error occurred."
	}
}
