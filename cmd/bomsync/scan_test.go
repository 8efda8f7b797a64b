package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// ---- workbook fixture ----

func mustSet(t *testing.T, f *excelize.File, sheet, cell string, value interface{}) {
	t.Helper()
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		t.Fatalf("set %s!%s: %v", sheet, cell, err)
	}
}

func mustSheet(t *testing.T, f *excelize.File, name string) {
	t.Helper()
	if _, err := f.NewSheet(name); err != nil {
		t.Fatalf("new sheet %s: %v", name, err)
	}
}

// buildTestWorkbook writes a workbook with an overview position grid, a
// compute rack sheet with one data row, and optionally a storage rack sheet.
func buildTestWorkbook(t *testing.T, path string, includeStorage bool) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Overview"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	mustSet(t, f, "Overview", "A1", "Parent")
	mustSet(t, f, "Overview", "B1", "Pos 1")
	mustSet(t, f, "Overview", "C1", "Pos 2")
	mustSet(t, f, "Overview", "A2", "ASSY-100")
	mustSet(t, f, "Overview", "B2", "RACK-0001")
	mustSet(t, f, "Overview", "C2", "RACK-0001")

	mustSheet(t, f, "Rack A")
	mustSet(t, f, "Rack A", "A1", "Item Number")
	mustSet(t, f, "Rack A", "B1", "RACK-0001")
	mustSet(t, f, "Rack A", "A2", "Name")
	mustSet(t, f, "Rack A", "B2", "Compute Rack A")
	mustSet(t, f, "Rack A", "A5", "SRV-100")
	mustSet(t, f, "Rack A", "B5", "Compute Node")
	mustSet(t, f, "Rack A", "F5", 2)

	if includeStorage {
		mustSheet(t, f, "Rack B")
		mustSet(t, f, "Rack B", "B1", "RACK-0002")
		mustSet(t, f, "Rack B", "B2", "Storage Rack B")
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}

// ---- scan ----

func TestScanCmd_Help(t *testing.T) {
	out, err := runCommand(t, "", "scan", "--help")
	if err != nil {
		t.Fatalf("scan --help failed: %v", err)
	}
	for _, want := range []string{"rack worksheets", "--prune", "--config", "bomsync.yaml"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected help to contain %q, got: %s", want, out)
		}
	}
}

func TestScanCmd_MissingConfig(t *testing.T) {
	_, err := runCommand(t, "", "scan", "--config", "/nonexistent/bomsync.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "load config")
	}
}

func TestScanCmd_RegistersWorksheets(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	buildTestWorkbook(t, filepath.Join(dir, "racks.xlsx"), true)

	if _, err := runCommand(t, "", "db", "init", "--config", cfgPath); err != nil {
		t.Fatalf("db init: %v", err)
	}

	out, err := runCommand(t, "", "scan", "--config", cfgPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !strings.Contains(out, "Scanned 2 rack worksheet(s)") {
		t.Errorf("expected sheet count, got: %s", out)
	}
	if !strings.Contains(out, "Registered 2 new rack(s): RACK-0001, RACK-0002") {
		t.Errorf("expected registration line, got: %s", out)
	}

	// A second scan changes nothing.
	out, err = runCommand(t, "", "scan", "--config", cfgPath)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if !strings.Contains(out, "Tracking records already up to date") {
		t.Errorf("expected up-to-date message, got: %s", out)
	}
}

func TestScanCmd_PruneRemovesStaleRecords(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	wbPath := filepath.Join(dir, "racks.xlsx")
	buildTestWorkbook(t, wbPath, true)

	if _, err := runCommand(t, "", "db", "init", "--config", cfgPath); err != nil {
		t.Fatalf("db init: %v", err)
	}
	if _, err := runCommand(t, "", "scan", "--config", cfgPath); err != nil {
		t.Fatalf("scan: %v", err)
	}

	// The storage rack's worksheet disappears.
	buildTestWorkbook(t, wbPath, false)

	// Without --prune the record stays.
	out, err := runCommand(t, "", "scan", "--config", cfgPath)
	if err != nil {
		t.Fatalf("scan without prune: %v", err)
	}
	if strings.Contains(out, "Pruned") {
		t.Errorf("scan without --prune removed records: %s", out)
	}

	out, err = runCommand(t, "", "scan", "--prune", "--config", cfgPath)
	if err != nil {
		t.Fatalf("scan --prune: %v", err)
	}
	if !strings.Contains(out, "Pruned 1 stale record(s): RACK-0002") {
		t.Errorf("expected prune line, got: %s", out)
	}
}
