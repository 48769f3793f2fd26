package importer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSX adapts an excelize workbook to the Workbook contract. Sheet rows
// are streamed, never loaded whole, so memory stays bounded regardless
// of sheet size.
type XLSX struct {
	file *excelize.File
}

func OpenWorkbook(path string) (*XLSX, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &XLSX{file: file}, nil
}

func OpenWorkbookReader(r io.Reader) (*XLSX, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &XLSX{file: file}, nil
}

func (w *XLSX) Close() error {
	return w.file.Close()
}

func (w *XLSX) HasSheet(name string) bool {
	index, err := w.file.GetSheetIndex(name)
	return err == nil && index >= 0
}

// Rows opens a streaming iterator over a sheet. The first row is the
// header; every following row becomes a map keyed by it.
func (w *XLSX) Rows(name string) (Rows, error) {
	inner, err := w.file.Rows(name)
	if err != nil {
		return nil, fmt.Errorf("open sheet %s: %w", name, err)
	}

	var header []string
	if inner.Next() {
		header, err = inner.Columns()
		if err != nil {
			inner.Close()
			return nil, fmt.Errorf("read header of %s: %w", name, err)
		}
	}
	return &xlsxRows{inner: inner, header: header}, nil
}

type xlsxRows struct {
	inner  *excelize.Rows
	header []string
}

func (r *xlsxRows) Next() bool {
	return r.inner.Next()
}

func (r *xlsxRows) Row() (map[string]any, error) {
	columns, err := r.inner.Columns()
	if err != nil {
		return nil, err
	}
	row := make(map[string]any, len(r.header))
	for i, key := range r.header {
		if key == "" || i >= len(columns) || columns[i] == "" {
			continue
		}
		row[key] = columns[i]
	}
	return row, nil
}

func (r *xlsxRows) Close() error {
	return r.inner.Close()
}
