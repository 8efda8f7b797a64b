package workbook

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/zulandar/bomsync/internal/bom"
)

// ErrInjectedWrite is returned by a Memory store once its write budget set
// with FailAfterWrites is exhausted.
var ErrInjectedWrite = errors.New("workbook: injected write failure")

// Memory is an in-memory Store for tests and dry runs. Rows are numbered as
// in a worksheet: the data region starts at the configured start row.
type Memory struct {
	mu       sync.Mutex
	startRow int
	order    []string
	racks    map[string]*memRack
	grid     [][]string

	failAfter int // mutating calls allowed before injected failure; <0 means never fail
}

type memRack struct {
	meta  Meta
	lines []bom.Line
	fills map[string]string // line item number -> applied fill color
}

// NewMemory returns an empty store whose data region starts at dataStartRow.
func NewMemory(dataStartRow int) *Memory {
	return &Memory{
		startRow:  dataStartRow,
		racks:     make(map[string]*memRack),
		failAfter: -1,
	}
}

// AddRack seeds a rack with its header block and lines.
func (m *Memory) AddRack(meta Meta, lines []bom.Line) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = append(m.order, meta.ItemNumber)
	m.racks[meta.ItemNumber] = &memRack{
		meta:  meta,
		lines: cloneLines(lines),
		fills: make(map[string]string),
	}
}

// SetGrid seeds the overview grid.
func (m *Memory) SetGrid(grid [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grid = grid
}

// FailAfterWrites allows n further mutating calls, then fails every one
// after that with ErrInjectedWrite.
func (m *Memory) FailAfterWrites(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
}

// FillColor returns the fill applied to a line by AppendLines, or "".
func (m *Memory) FillColor(itemNumber, lineItemNumber string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.racks[itemNumber]
	if !ok {
		return ""
	}
	return r.fills[lineItemNumber]
}

// spendWrite consumes one mutating call from the injected-failure budget.
// Callers must hold mu.
func (m *Memory) spendWrite() error {
	if m.failAfter < 0 {
		return nil
	}
	if m.failAfter == 0 {
		return ErrInjectedWrite
	}
	m.failAfter--
	return nil
}

func (m *Memory) rack(itemNumber string) (*memRack, error) {
	r, ok := m.racks[itemNumber]
	if !ok {
		return nil, fmt.Errorf("workbook: no worksheet for rack %s", itemNumber)
	}
	return r, nil
}

// RackSheets returns the header blocks in insertion order.
func (m *Memory) RackSheets() ([]Meta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	metas := make([]Meta, 0, len(m.order))
	for _, item := range m.order {
		if r, ok := m.racks[item]; ok {
			metas = append(metas, r.meta)
		}
	}
	return metas, nil
}

// Meta reads the header block of one rack.
func (m *Memory) Meta(itemNumber string) (Meta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.rack(itemNumber)
	if err != nil {
		return Meta{}, err
	}
	return r.meta, nil
}

// WriteMeta rewrites the header block of one rack.
func (m *Memory) WriteMeta(itemNumber string, meta Meta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.rack(itemNumber)
	if err != nil {
		return err
	}
	if err := m.spendWrite(); err != nil {
		return err
	}
	r.meta = meta
	if meta.ItemNumber != "" && meta.ItemNumber != itemNumber {
		m.racks[meta.ItemNumber] = r
		delete(m.racks, itemNumber)
		for i, item := range m.order {
			if item == itemNumber {
				m.order[i] = meta.ItemNumber
			}
		}
	}
	return nil
}

// ReadBOM reads the rack's lines into a local-origin snapshot.
func (m *Memory) ReadBOM(itemNumber string) (*bom.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.rack(itemNumber)
	if err != nil {
		return nil, err
	}
	snap, err := bom.NewSnapshot(bom.OriginLocal, cloneLines(r.lines))
	if err != nil {
		return nil, fmt.Errorf("workbook: read %s: %w", itemNumber, err)
	}
	return snap, nil
}

// AppendLines appends lines after the existing ones, recording fills by
// category color.
func (m *Memory) AppendLines(itemNumber string, lines []bom.Line, fills map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.rack(itemNumber)
	if err != nil {
		return err
	}
	if err := m.spendWrite(); err != nil {
		return err
	}
	for _, line := range lines {
		r.lines = append(r.lines, cloneLine(line))
		if color, ok := fills[line.Category]; ok && color != "" {
			r.fills[line.ItemNumber] = color
		}
	}
	return nil
}

// UpdateFields overwrites only the changed fields of one line. Fields and
// attributes outside the change keep their values.
func (m *Memory) UpdateFields(itemNumber string, change bom.LineChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.rack(itemNumber)
	if err != nil {
		return err
	}
	idx := -1
	for i := range r.lines {
		if r.lines[i].ItemNumber == change.ItemNumber {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("workbook: line %s not found in rack %s", change.ItemNumber, itemNumber)
	}
	if err := m.spendWrite(); err != nil {
		return err
	}

	line := &r.lines[idx]
	for _, fc := range change.Fields {
		switch fc.Field {
		case bom.FieldName:
			line.Name = fc.New
		case bom.FieldDescription:
			line.Description = fc.New
		case bom.FieldCategory:
			line.Category = fc.New
		case bom.FieldLifecyclePhase:
			line.LifecyclePhase = fc.New
		case bom.FieldQuantity:
			n, err := strconv.Atoi(fc.New)
			if err != nil {
				return fmt.Errorf("workbook: update %s: quantity %q is not a number", change.ItemNumber, fc.New)
			}
			line.Quantity = n
		default:
			if line.Attributes == nil {
				line.Attributes = make(map[string]string)
			}
			line.Attributes[fc.Field] = fc.New
		}
	}
	return nil
}

// DeleteLine removes one line.
func (m *Memory) DeleteLine(itemNumber, lineItemNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.rack(itemNumber)
	if err != nil {
		return err
	}
	for i := range r.lines {
		if r.lines[i].ItemNumber == lineItemNumber {
			if err := m.spendWrite(); err != nil {
				return err
			}
			r.lines = append(r.lines[:i], r.lines[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("workbook: line %s not found in rack %s", lineItemNumber, itemNumber)
}

// LastDataRow returns the worksheet row of the last line, or the row before
// the data region when the rack is empty.
func (m *Memory) LastDataRow(itemNumber string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.rack(itemNumber)
	if err != nil {
		return 0, err
	}
	return m.startRow - 1 + len(r.lines), nil
}

// OverviewGrid returns the seeded grid.
func (m *Memory) OverviewGrid() ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.grid, nil
}

func cloneLines(lines []bom.Line) []bom.Line {
	out := make([]bom.Line, len(lines))
	for i, ln := range lines {
		out[i] = cloneLine(ln)
	}
	return out
}

func cloneLine(ln bom.Line) bom.Line {
	if ln.Attributes != nil {
		attrs := make(map[string]string, len(ln.Attributes))
		for k, v := range ln.Attributes {
			attrs[k] = v
		}
		ln.Attributes = attrs
	}
	return ln
}
