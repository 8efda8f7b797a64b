// Package merge applies an accepted delta to the local BOM store.
package merge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zulandar/bomsync/internal/bom"
	"github.com/zulandar/bomsync/internal/workbook"
)

// Result counts the row operations applied. After a mid-merge failure it
// holds the partial state that made it into the store.
type Result struct {
	Removed int
	Updated int
	Added   int
}

// Total returns the number of applied row operations.
func (r Result) Total() int {
	return r.Removed + r.Updated + r.Added
}

// Summary returns a one-line digest, e.g. "3 changes applied".
func (r Result) Summary() string {
	switch r.Total() {
	case 0:
		return "no changes applied"
	case 1:
		return "1 change applied"
	default:
		return strconv.Itoa(r.Total()) + " changes applied"
	}
}

// Detail returns the per-operation counts, e.g. "2 updated, 1 added, 3 removed".
func (r Result) Detail() string {
	parts := make([]string, 0, 3)
	if r.Updated > 0 {
		parts = append(parts, strconv.Itoa(r.Updated)+" updated")
	}
	if r.Added > 0 {
		parts = append(parts, strconv.Itoa(r.Added)+" added")
	}
	if r.Removed > 0 {
		parts = append(parts, strconv.Itoa(r.Removed)+" removed")
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, ", ")
}

// Apply writes the delta into the rack's worksheet: removals first, then
// field updates, then appended lines filled by category color. Updates
// touch only the changed fields, so cells and columns outside the tracked
// set survive a refresh. The merge stops at the first failed row write and
// returns the partial Result alongside the error; rows already written stay
// written. On success the store is re-read and the fresh snapshot returned.
func Apply(store workbook.Store, rackID string, delta bom.Delta, colors map[string]string) (*bom.Snapshot, Result, error) {
	var res Result

	for _, line := range delta.Removed {
		if err := store.DeleteLine(rackID, line.ItemNumber); err != nil {
			return nil, res, fmt.Errorf("merge: remove %s: %w", line.ItemNumber, err)
		}
		res.Removed++
	}
	for _, change := range delta.Modified {
		if err := store.UpdateFields(rackID, change); err != nil {
			return nil, res, fmt.Errorf("merge: update %s: %w", change.ItemNumber, err)
		}
		res.Updated++
	}
	for _, line := range delta.Added {
		if err := store.AppendLines(rackID, []bom.Line{line}, colors); err != nil {
			return nil, res, fmt.Errorf("merge: add %s: %w", line.ItemNumber, err)
		}
		res.Added++
	}

	snap, err := store.ReadBOM(rackID)
	if err != nil {
		return nil, res, fmt.Errorf("merge: re-read %s: %w", rackID, err)
	}
	return snap, res, nil
}
