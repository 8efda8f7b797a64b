package workbook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"github.com/zulandar/bomsync/internal/bom"
	"github.com/zulandar/bomsync/internal/config"
)

// Header block cells of a rack worksheet.
const (
	metaItemCell   = "B1"
	metaNameCell   = "B2"
	metaRemoteCell = "B3"
)

// Fixed data columns. Configured attribute columns follow quantity.
const (
	colItemNumber  = 1
	colName        = 2
	colDescription = 3
	colCategory    = 4
	colPhase       = 5
	colQuantity    = 6
)

// Workbook is the .xlsx Store implementation over excelize. One worksheet
// per rack, bound by the item number in its header block; the overview
// sheet carries the position grid.
type Workbook struct {
	f      *excelize.File
	cfg    config.WorkbookConfig
	sheets map[string]string // rack item number -> sheet name
	styles map[string]int    // fill color -> style id
}

// Open opens the workbook file named in the configuration.
func Open(cfg config.WorkbookConfig) (*Workbook, error) {
	f, err := excelize.OpenFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("workbook: open %s: %w", cfg.Path, err)
	}
	return &Workbook{f: f, cfg: cfg, styles: make(map[string]int)}, nil
}

// Close releases the underlying file handle without saving.
func (w *Workbook) Close() error {
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("workbook: close %s: %w", w.cfg.Path, err)
	}
	return nil
}

func (w *Workbook) save() error {
	if err := w.f.Save(); err != nil {
		return fmt.Errorf("workbook: save %s: %w", w.cfg.Path, err)
	}
	return nil
}

// RackSheets returns the header block of every rack worksheet in sheet order.
func (w *Workbook) RackSheets() ([]Meta, error) {
	var metas []Meta
	for _, sheet := range w.f.GetSheetList() {
		if sheet == w.cfg.OverviewSheet {
			continue
		}
		meta, err := w.readMeta(sheet)
		if err != nil {
			return nil, err
		}
		if meta.ItemNumber == "" {
			continue
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

// Meta reads the header block of one rack.
func (w *Workbook) Meta(itemNumber string) (Meta, error) {
	sheet, err := w.sheetFor(itemNumber)
	if err != nil {
		return Meta{}, err
	}
	return w.readMeta(sheet)
}

// WriteMeta rewrites the header block of one rack.
func (w *Workbook) WriteMeta(itemNumber string, meta Meta) error {
	sheet, err := w.sheetFor(itemNumber)
	if err != nil {
		return err
	}
	for cell, value := range map[string]string{
		metaItemCell:   meta.ItemNumber,
		metaNameCell:   meta.Name,
		metaRemoteCell: meta.RemoteID,
	} {
		if err := w.f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("workbook: write meta %s!%s: %w", sheet, cell, err)
		}
	}
	if meta.ItemNumber != "" && meta.ItemNumber != itemNumber {
		delete(w.sheets, itemNumber)
		w.sheets[meta.ItemNumber] = sheet
	}
	return w.save()
}

// ReadBOM reads the rack's data region into a local-origin snapshot.
func (w *Workbook) ReadBOM(itemNumber string) (*bom.Snapshot, error) {
	sheet, err := w.sheetFor(itemNumber)
	if err != nil {
		return nil, err
	}

	var lines []bom.Line
	for row := w.cfg.DataStartRow; ; row++ {
		item, err := w.cellValue(sheet, colItemNumber, row)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(item) == "" {
			break
		}
		line, err := w.readLine(sheet, row)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	snap, err := bom.NewSnapshot(bom.OriginLocal, lines)
	if err != nil {
		return nil, fmt.Errorf("workbook: read %s: %w", itemNumber, err)
	}
	return snap, nil
}

func (w *Workbook) readLine(sheet string, row int) (bom.Line, error) {
	var line bom.Line
	var err error
	if line.ItemNumber, err = w.cellValue(sheet, colItemNumber, row); err != nil {
		return line, err
	}
	if line.Name, err = w.cellValue(sheet, colName, row); err != nil {
		return line, err
	}
	if line.Description, err = w.cellValue(sheet, colDescription, row); err != nil {
		return line, err
	}
	if line.Category, err = w.cellValue(sheet, colCategory, row); err != nil {
		return line, err
	}
	if line.LifecyclePhase, err = w.cellValue(sheet, colPhase, row); err != nil {
		return line, err
	}

	raw, err := w.cellValue(sheet, colQuantity, row)
	if err != nil {
		return line, err
	}
	if line.Quantity, err = parseQuantity(raw); err != nil {
		return line, fmt.Errorf("workbook: sheet %q row %d: %w", sheet, row, err)
	}

	for i, key := range w.cfg.AttributeColumns {
		value, err := w.cellValue(sheet, colQuantity+1+i, row)
		if err != nil {
			return line, err
		}
		if value = strings.TrimSpace(value); value != "" {
			if line.Attributes == nil {
				line.Attributes = make(map[string]string)
			}
			line.Attributes[key] = value
		}
	}
	return line, nil
}

// parseQuantity accepts integers and integral floats; a blank cell is zero,
// normalized to 1 at snapshot construction.
func parseQuantity(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("quantity %q is not a whole number", raw)
	}
	return int(f), nil
}

// AppendLines appends lines after the last data row, filling rows by
// category color where configured.
func (w *Workbook) AppendLines(itemNumber string, lines []bom.Line, fills map[string]string) error {
	sheet, err := w.sheetFor(itemNumber)
	if err != nil {
		return err
	}
	last, err := w.lastDataRow(sheet)
	if err != nil {
		return err
	}

	for i, line := range lines {
		row := last + 1 + i
		if err := w.writeLine(sheet, row, line); err != nil {
			return err
		}
		if color, ok := fills[line.Category]; ok && color != "" {
			if err := w.fillRow(sheet, row, color); err != nil {
				return err
			}
		}
	}
	return w.save()
}

func (w *Workbook) writeLine(sheet string, row int, line bom.Line) error {
	set := func(col int, value interface{}) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return fmt.Errorf("workbook: cell name (%d,%d): %w", col, row, err)
		}
		if err := w.f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("workbook: write %s!%s: %w", sheet, cell, err)
		}
		return nil
	}

	if err := set(colItemNumber, line.ItemNumber); err != nil {
		return err
	}
	if err := set(colName, line.Name); err != nil {
		return err
	}
	if err := set(colDescription, line.Description); err != nil {
		return err
	}
	if err := set(colCategory, line.Category); err != nil {
		return err
	}
	if err := set(colPhase, line.LifecyclePhase); err != nil {
		return err
	}
	if err := set(colQuantity, line.Quantity); err != nil {
		return err
	}
	for i, key := range w.cfg.AttributeColumns {
		if v := line.Attr(key); v != "" {
			if err := set(colQuantity+1+i, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Workbook) fillRow(sheet string, row int, color string) error {
	styleID, err := w.fillStyle(color)
	if err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(colItemNumber, row)
	last, _ := excelize.CoordinatesToCellName(colQuantity+len(w.cfg.AttributeColumns), row)
	if err := w.f.SetCellStyle(sheet, first, last, styleID); err != nil {
		return fmt.Errorf("workbook: fill %s row %d: %w", sheet, row, err)
	}
	return nil
}

func (w *Workbook) fillStyle(color string) (int, error) {
	color = strings.TrimPrefix(color, "#")
	if id, ok := w.styles[color]; ok {
		return id, nil
	}
	id, err := w.f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
	})
	if err != nil {
		return 0, fmt.Errorf("workbook: fill style %s: %w", color, err)
	}
	w.styles[color] = id
	return id, nil
}

// UpdateFields overwrites only the changed fields of one line.
func (w *Workbook) UpdateFields(itemNumber string, change bom.LineChange) error {
	sheet, err := w.sheetFor(itemNumber)
	if err != nil {
		return err
	}
	row, err := w.rowOf(sheet, change.ItemNumber)
	if err != nil {
		return err
	}

	for _, fc := range change.Fields {
		col, ok := w.columnFor(fc.Field)
		if !ok {
			return fmt.Errorf("workbook: no column for field %q", fc.Field)
		}
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return fmt.Errorf("workbook: cell name (%d,%d): %w", col, row, err)
		}
		var value interface{} = fc.New
		if fc.Field == bom.FieldQuantity {
			n, err := strconv.Atoi(fc.New)
			if err != nil {
				return fmt.Errorf("workbook: update %s: quantity %q is not a number", change.ItemNumber, fc.New)
			}
			value = n
		}
		if err := w.f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("workbook: write %s!%s: %w", sheet, cell, err)
		}
	}
	return w.save()
}

// columnFor maps a diff field name to its sheet column.
func (w *Workbook) columnFor(field string) (int, bool) {
	switch field {
	case bom.FieldName:
		return colName, true
	case bom.FieldDescription:
		return colDescription, true
	case bom.FieldCategory:
		return colCategory, true
	case bom.FieldLifecyclePhase:
		return colPhase, true
	case bom.FieldQuantity:
		return colQuantity, true
	}
	for i, key := range w.cfg.AttributeColumns {
		if key == field {
			return colQuantity + 1 + i, true
		}
	}
	return 0, false
}

// DeleteLine removes the whole row holding the given line.
func (w *Workbook) DeleteLine(itemNumber, lineItemNumber string) error {
	sheet, err := w.sheetFor(itemNumber)
	if err != nil {
		return err
	}
	row, err := w.rowOf(sheet, lineItemNumber)
	if err != nil {
		return err
	}
	if err := w.f.RemoveRow(sheet, row); err != nil {
		return fmt.Errorf("workbook: remove %s row %d: %w", sheet, row, err)
	}
	return w.save()
}

// LastDataRow returns the last populated data row, or the row before the
// data region when the rack has no lines.
func (w *Workbook) LastDataRow(itemNumber string) (int, error) {
	sheet, err := w.sheetFor(itemNumber)
	if err != nil {
		return 0, err
	}
	return w.lastDataRow(sheet)
}

func (w *Workbook) lastDataRow(sheet string) (int, error) {
	last := w.cfg.DataStartRow - 1
	for row := w.cfg.DataStartRow; ; row++ {
		item, err := w.cellValue(sheet, colItemNumber, row)
		if err != nil {
			return 0, err
		}
		if strings.TrimSpace(item) == "" {
			return last, nil
		}
		last = row
	}
}

// OverviewGrid returns the overview sheet as rows of cell values.
func (w *Workbook) OverviewGrid() ([][]string, error) {
	rows, err := w.f.GetRows(w.cfg.OverviewSheet)
	if err != nil {
		return nil, fmt.Errorf("workbook: overview sheet %q: %w", w.cfg.OverviewSheet, err)
	}
	return rows, nil
}

// rowOf locates the data row holding the given line item number.
func (w *Workbook) rowOf(sheet, lineItemNumber string) (int, error) {
	for row := w.cfg.DataStartRow; ; row++ {
		item, err := w.cellValue(sheet, colItemNumber, row)
		if err != nil {
			return 0, err
		}
		item = strings.TrimSpace(item)
		if item == "" {
			return 0, fmt.Errorf("workbook: line %s not found in sheet %q", lineItemNumber, sheet)
		}
		if item == lineItemNumber {
			return row, nil
		}
	}
}

// sheetFor resolves the worksheet bound to a rack item number.
func (w *Workbook) sheetFor(itemNumber string) (string, error) {
	if sheet, ok := w.sheets[itemNumber]; ok {
		return sheet, nil
	}
	if w.sheets == nil {
		w.sheets = make(map[string]string)
	}
	for _, sheet := range w.f.GetSheetList() {
		if sheet == w.cfg.OverviewSheet {
			continue
		}
		item, err := w.f.GetCellValue(sheet, metaItemCell)
		if err != nil {
			return "", fmt.Errorf("workbook: read %s!%s: %w", sheet, metaItemCell, err)
		}
		if item = strings.TrimSpace(item); item != "" {
			w.sheets[item] = sheet
		}
	}
	if sheet, ok := w.sheets[itemNumber]; ok {
		return sheet, nil
	}
	return "", fmt.Errorf("workbook: no worksheet for rack %s", itemNumber)
}

func (w *Workbook) readMeta(sheet string) (Meta, error) {
	var meta Meta
	for cell, dst := range map[string]*string{
		metaItemCell:   &meta.ItemNumber,
		metaNameCell:   &meta.Name,
		metaRemoteCell: &meta.RemoteID,
	} {
		value, err := w.f.GetCellValue(sheet, cell)
		if err != nil {
			return Meta{}, fmt.Errorf("workbook: read %s!%s: %w", sheet, cell, err)
		}
		*dst = strings.TrimSpace(value)
	}
	return meta, nil
}

func (w *Workbook) cellValue(sheet string, col, row int) (string, error) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", fmt.Errorf("workbook: cell name (%d,%d): %w", col, row, err)
	}
	value, err := w.f.GetCellValue(sheet, cell)
	if err != nil {
		return "", fmt.Errorf("workbook: read %s!%s: %w", sheet, cell, err)
	}
	return value, nil
}
