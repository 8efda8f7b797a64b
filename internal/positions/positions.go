// Package positions derives installation-position labels from the workbook
// overview grid.
package positions

import (
	"fmt"
	"strings"
)

// Map holds each rack's ordered position labels, keyed by item number.
// Labels keep sheet column order; column order encodes physical position
// order, so they are never sorted.
type Map map[string][]string

// Labels returns the ordered labels for one rack, or nil when the rack
// occupies no position.
func (m Map) Labels(itemNumber string) []string {
	return m[itemNumber]
}

// ImpliedQuantity returns the number of positions a rack occupies.
func (m Map) ImpliedQuantity(itemNumber string) int {
	return len(m[itemNumber])
}

// Format renders position labels as the pushed attribute value.
func Format(labels []string) string {
	return strings.Join(labels, ", ")
}

// Collect scans the overview grid for position columns. The first row is
// the header row; a column is a position column when its trimmed header
// starts with the token, compared case-insensitively. The exact trimmed
// header text is the label, so operator naming round-trips faithfully.
// Cells list rack item numbers separated by commas or newlines. A label
// appears at most once per rack.
func Collect(grid [][]string, token string) (Map, error) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return nil, fmt.Errorf("positions: empty position token")
	}

	m := make(Map)
	if len(grid) < 2 {
		return m, nil
	}
	header := grid[0]

	for col := 0; col < len(header); col++ {
		label := strings.TrimSpace(header[col])
		if !strings.HasPrefix(strings.ToLower(label), token) {
			continue
		}
		for _, row := range grid[1:] {
			if col >= len(row) {
				continue
			}
			for _, item := range splitItems(row[col]) {
				if !hasLabel(m[item], label) {
					m[item] = append(m[item], label)
				}
			}
		}
	}
	return m, nil
}

// splitItems splits a grid cell into rack item numbers.
func splitItems(cell string) []string {
	fields := strings.FieldsFunc(cell, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	items := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			items = append(items, f)
		}
	}
	return items
}

func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}
