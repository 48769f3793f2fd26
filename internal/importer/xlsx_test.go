package importer

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T) *XLSX {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]any{
		{"nm", "price"},
		{"a", 1},
		{"b", 2},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	wb, err := OpenWorkbookReader(buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	t.Cleanup(func() { wb.Close() })
	return wb
}

func TestXLSXHasSheet(t *testing.T) {
	wb := buildWorkbook(t)
	if !wb.HasSheet("Sheet1") {
		t.Fatal("expected Sheet1 to exist")
	}
	if wb.HasSheet("tabs") {
		t.Fatal("expected tabs to be absent")
	}
}

func TestXLSXRowsKeyedByHeader(t *testing.T) {
	wb := buildWorkbook(t)
	rows, err := wb.Rows("Sheet1")
	if err != nil {
		t.Fatalf("open rows: %v", err)
	}
	defer rows.Close()

	var items []map[string]any
	for rows.Next() {
		row, err := rows.Row()
		if err != nil {
			t.Fatalf("read row: %v", err)
		}
		items = append(items, row)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 data rows, got %d", len(items))
	}
	// Cell values stream as strings.
	if items[0]["nm"] != "a" || items[0]["price"] != "1" {
		t.Fatalf("unexpected first row %v", items[0])
	}
	if items[1]["nm"] != "b" || items[1]["price"] != "2" {
		t.Fatalf("unexpected second row %v", items[1])
	}
}

func TestXLSXRowsAreFreshPerCall(t *testing.T) {
	wb := buildWorkbook(t)

	for pass := 0; pass < 2; pass++ {
		rows, err := wb.Rows("Sheet1")
		if err != nil {
			t.Fatalf("open rows: %v", err)
		}
		n := 0
		for rows.Next() {
			n++
		}
		rows.Close()
		if n != 2 {
			t.Fatalf("pass %d: expected 2 rows, got %d", pass, n)
		}
	}
}
