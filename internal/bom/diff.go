package bom

import (
	"strconv"
	"strings"
)

// Core compared fields, in display order. Configured attribute keys follow.
const (
	FieldName           = "name"
	FieldDescription    = "description"
	FieldCategory       = "category"
	FieldLifecyclePhase = "lifecycle_phase"
	FieldQuantity       = "quantity"
)

var coreFields = []string{FieldName, FieldDescription, FieldCategory, FieldLifecyclePhase, FieldQuantity}

// FieldChange is one field-level difference on a line present on both sides.
type FieldChange struct {
	Field string
	Old   string
	New   string
}

// LineChange is a line present on both sides with at least one differing field.
type LineChange struct {
	ItemNumber string
	Fields     []FieldChange
}

// Delta partitions item numbers into modified, added and removed. An item
// number appears in at most one list; identical lines appear nowhere.
type Delta struct {
	Modified []LineChange
	Added    []Line
	Removed  []Line
}

// Empty reports whether the delta carries no differences.
func (d Delta) Empty() bool {
	return len(d.Modified) == 0 && len(d.Added) == 0 && len(d.Removed) == 0
}

// Count returns the total number of differing lines.
func (d Delta) Count() int {
	return len(d.Modified) + len(d.Added) + len(d.Removed)
}

// Summary returns a short human digest, e.g. "2 modified, 1 added, 3 removed".
func (d Delta) Summary() string {
	if d.Empty() {
		return "no changes"
	}
	parts := make([]string, 0, 3)
	if n := len(d.Modified); n > 0 {
		parts = append(parts, strconv.Itoa(n)+" modified")
	}
	if n := len(d.Added); n > 0 {
		parts = append(parts, strconv.Itoa(n)+" added")
	}
	if n := len(d.Removed); n > 0 {
		parts = append(parts, strconv.Itoa(n)+" removed")
	}
	return strings.Join(parts, ", ")
}

// Diff compares a local snapshot against the remote one. The remote side is
// authoritative: lines only remote are Added, lines only local are Removed,
// lines on both sides are compared field by field over the core fields plus
// the tracked attribute keys. Added and Modified follow remote line order,
// Removed follows local line order. An empty remote yields an all-removed
// delta; deciding whether that is plausible is the caller's job.
func Diff(local, remote *Snapshot, tracked []string) Delta {
	localIdx := make(map[string]Line, len(local.Lines))
	for _, ln := range local.Lines {
		localIdx[ln.ItemNumber] = ln
	}
	remoteIdx := make(map[string]bool, len(remote.Lines))

	var d Delta
	for _, rl := range remote.Lines {
		remoteIdx[rl.ItemNumber] = true
		ll, ok := localIdx[rl.ItemNumber]
		if !ok {
			d.Added = append(d.Added, rl)
			continue
		}
		if fields := compareLines(ll, rl, tracked); len(fields) > 0 {
			d.Modified = append(d.Modified, LineChange{ItemNumber: rl.ItemNumber, Fields: fields})
		}
	}
	for _, ll := range local.Lines {
		if !remoteIdx[ll.ItemNumber] {
			d.Removed = append(d.Removed, ll)
		}
	}
	return d
}

// compareLines returns the differing fields between a local and a remote line,
// in core-field order followed by tracked attribute order.
func compareLines(local, remote Line, tracked []string) []FieldChange {
	var changes []FieldChange
	for _, f := range coreFields {
		if f == FieldQuantity {
			if local.Quantity != remote.Quantity {
				changes = append(changes, FieldChange{
					Field: f,
					Old:   strconv.Itoa(local.Quantity),
					New:   strconv.Itoa(remote.Quantity),
				})
			}
			continue
		}
		lv := strings.TrimSpace(coreValue(local, f))
		rv := strings.TrimSpace(coreValue(remote, f))
		if lv != rv {
			changes = append(changes, FieldChange{Field: f, Old: lv, New: rv})
		}
	}
	for _, key := range tracked {
		lv := strings.TrimSpace(local.Attr(key))
		rv := strings.TrimSpace(remote.Attr(key))
		if lv != rv {
			changes = append(changes, FieldChange{Field: key, Old: lv, New: rv})
		}
	}
	return changes
}

func coreValue(l Line, field string) string {
	switch field {
	case FieldName:
		return l.Name
	case FieldDescription:
		return l.Description
	case FieldCategory:
		return l.Category
	case FieldLifecyclePhase:
		return l.LifecyclePhase
	}
	return ""
}
