// Package bom defines bill-of-materials snapshots and the diff between them.
package bom

import (
	"fmt"
	"strings"
	"time"
)

// Snapshot origins.
const (
	OriginLocal  = "local"
	OriginRemote = "remote"
)

// Line is a single BOM row. ItemNumber is the diff identity; everything else
// is payload. Attributes holds the configured extra columns by key.
type Line struct {
	ItemNumber     string
	Name           string
	Description    string
	Category       string
	LifecyclePhase string
	Quantity       int
	Attributes     map[string]string
}

// Attr returns the named attribute value, or "" when unset.
func (l Line) Attr(key string) string {
	if l.Attributes == nil {
		return ""
	}
	return l.Attributes[key]
}

// Snapshot is an ordered BOM capture from one side of a sync.
type Snapshot struct {
	Origin  string
	TakenAt time.Time
	Lines   []Line
}

// ValidationError reports a snapshot that violates the BOM invariants.
type ValidationError struct {
	ItemNumber string
	Reason     string
}

func (e *ValidationError) Error() string {
	if e.ItemNumber == "" {
		return fmt.Sprintf("bom: %s", e.Reason)
	}
	return fmt.Sprintf("bom: %s: %s", e.ItemNumber, e.Reason)
}

// NewSnapshot normalizes lines and builds a validated snapshot. Item numbers
// are trimmed, a missing or non-positive quantity defaults to 1, and duplicate
// item numbers are rejected. Callers with legitimately duplicated rows
// aggregate them first (see Aggregate).
func NewSnapshot(origin string, lines []Line) (*Snapshot, error) {
	seen := make(map[string]bool, len(lines))
	out := make([]Line, 0, len(lines))
	for _, ln := range lines {
		ln.ItemNumber = strings.TrimSpace(ln.ItemNumber)
		if ln.ItemNumber == "" {
			return nil, &ValidationError{Reason: "line has empty item number"}
		}
		if seen[ln.ItemNumber] {
			return nil, &ValidationError{ItemNumber: ln.ItemNumber, Reason: "duplicate item number"}
		}
		seen[ln.ItemNumber] = true
		if ln.Quantity <= 0 {
			ln.Quantity = 1
		}
		out = append(out, ln)
	}
	return &Snapshot{Origin: origin, TakenAt: time.Now(), Lines: out}, nil
}

// Aggregate merges duplicate item numbers by summing quantities. The first
// occurrence keeps its payload fields; later duplicates contribute quantity
// only. Row order of first occurrences is preserved.
func Aggregate(lines []Line) []Line {
	index := make(map[string]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, ln := range lines {
		key := strings.TrimSpace(ln.ItemNumber)
		qty := ln.Quantity
		if qty <= 0 {
			qty = 1
		}
		if i, ok := index[key]; ok {
			out[i].Quantity += qty
			continue
		}
		ln.ItemNumber = key
		ln.Quantity = qty
		index[key] = len(out)
		out = append(out, ln)
	}
	return out
}

// Find returns the line with the given item number and whether it exists.
func (s *Snapshot) Find(itemNumber string) (Line, bool) {
	for _, ln := range s.Lines {
		if ln.ItemNumber == itemNumber {
			return ln, true
		}
	}
	return Line{}, false
}

// Empty reports whether the snapshot has no lines.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Lines) == 0
}
