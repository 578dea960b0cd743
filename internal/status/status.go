// Package status tells the operator whether the published dataset is
// behind the host store. It is advisory only and never regenerates.
package status

import (
	"context"
	"fmt"
	"strings"
	"time"

	"arboretum/internal/models"
)

// Source lists published trees changed after a point in time.
type Source interface {
	ModifiedSince(ctx context.Context, t time.Time) ([]models.TreeRecord, error)
}

// Status is the result of a staleness check.
type Status struct {
	UpToDate       bool
	Modified       []models.TreeRecord
	LastGeneration *time.Time
}

// Check compares the manifest against the host store. Without a previous
// generation the dataset is reported stale with no modified trees.
func Check(ctx context.Context, src Source, state models.ManifestState) (Status, error) {
	if !state.Generated() {
		return Status{UpToDate: false, Modified: []models.TreeRecord{}}, nil
	}

	modified, err := src.ModifiedSince(ctx, *state.LastGeneration)
	if err != nil {
		return Status{}, fmt.Errorf("failed to list modified trees: %w", err)
	}
	if modified == nil {
		modified = []models.TreeRecord{}
	}
	return Status{
		UpToDate:       len(modified) == 0,
		Modified:       modified,
		LastGeneration: state.LastGeneration,
	}, nil
}

// Notice renders the status the way the operator sees it.
func Notice(st Status, loc *time.Location) string {
	if st.LastGeneration == nil {
		return "No dataset has been generated yet."
	}
	if st.UpToDate {
		return "The dataset is up to date."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d tree(s) modified since the last generation:", len(st.Modified))
	for _, tree := range st.Modified {
		fmt.Fprintf(&b, "\n  - %s (modified %s)", tree.Name, tree.LastModified.In(loc).Format("02/01/2006 15:04"))
	}
	return b.String()
}
