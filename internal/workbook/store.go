// Package workbook is the local BOM store: rack worksheets plus the overview
// grid, behind a Store interface with an .xlsx implementation and an
// in-memory one for tests and dry runs.
package workbook

import (
	"github.com/zulandar/bomsync/internal/bom"
)

// Meta is the header block of a rack worksheet.
type Meta struct {
	ItemNumber string
	Name       string
	RemoteID   string
}

// Store reads and writes rack BOMs. Implementations key racks by item
// number; the worksheet holding a rack is resolved through its header
// block, not its sheet name. The data region of a rack ends at the first
// row with an empty item number cell.
type Store interface {
	// RackSheets returns the header block of every rack worksheet in sheet
	// order. The overview sheet and sheets without an item number are
	// skipped.
	RackSheets() ([]Meta, error)

	// Meta reads the header block of one rack.
	Meta(itemNumber string) (Meta, error)

	// WriteMeta rewrites the header block, typically to record the remote
	// reference after a placeholder pull.
	WriteMeta(itemNumber string, meta Meta) error

	// ReadBOM reads the rack's data region into a local-origin snapshot.
	ReadBOM(itemNumber string) (*bom.Snapshot, error)

	// AppendLines appends lines after the last data row. fills maps a
	// category to a row fill color; categories missing from the map leave
	// the fill untouched.
	AppendLines(itemNumber string, lines []bom.Line, fills map[string]string) error

	// UpdateFields overwrites only the changed fields of the line named by
	// change.ItemNumber. Every other cell in the row keeps its value.
	UpdateFields(itemNumber string, change bom.LineChange) error

	// DeleteLine removes the whole row holding the given line.
	DeleteLine(itemNumber, lineItemNumber string) error

	// LastDataRow returns the 1-based row of the last populated data row,
	// or the row before the data region when the rack has no lines.
	LastDataRow(itemNumber string) (int, error)

	// OverviewGrid returns the overview sheet as rows of cell values.
	OverviewGrid() ([][]string, error)
}
