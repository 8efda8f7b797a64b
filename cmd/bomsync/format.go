package main

import (
	"fmt"
	"io"
	"time"

	"github.com/zulandar/bomsync/internal/bom"
	"github.com/zulandar/bomsync/internal/dashboard"
)

// truncate shortens s to maxLen bytes, appending an ellipsis when cut.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// refreshedAgo renders the nullable last-refresh timestamp as a relative age.
func refreshedAgo(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return dashboard.TimeAgo(*t)
}

// renderDelta prints a delta as indented change lines: modified lines with
// their per-field old → new values, then added and removed lines.
func renderDelta(out io.Writer, d bom.Delta) {
	for _, ch := range d.Modified {
		fmt.Fprintf(out, "  ~ %s\n", ch.ItemNumber)
		for _, f := range ch.Fields {
			fmt.Fprintf(out, "      %-18s %q → %q\n", f.Field, f.Old, f.New)
		}
	}
	for _, ln := range d.Added {
		fmt.Fprintf(out, "  + %s  %s (qty %d)\n", ln.ItemNumber, ln.Name, ln.Quantity)
	}
	for _, ln := range d.Removed {
		fmt.Fprintf(out, "  - %s  %s (qty %d)\n", ln.ItemNumber, ln.Name, ln.Quantity)
	}
}
