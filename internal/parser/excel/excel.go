// Package excel loads and saves Table data as .xlsx workbooks.
//
// Workbooks are read whole: every sheet in workbook order, each as a Table.
// Cell values arrive as the rendered strings excelize produces; downstream
// date coercion handles both formatted dates and raw serial numbers.
package excel

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"outreach/internal/table"
)

// Sheet pairs a sheet name with its parsed table. Order follows the workbook.
type Sheet struct {
	Name  string
	Table *table.Table
}

// ReadWorkbook loads every sheet of the workbook, in workbook order.
// Sheets with no header row come back as empty tables rather than errors.
func ReadWorkbook(path string) ([]Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	names := f.GetSheetList()
	sheets := make([]Sheet, 0, len(names))
	for _, name := range names {
		t, err := readSheet(f, name)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		sheets = append(sheets, Sheet{Name: name, Table: t})
	}
	return sheets, nil
}

// ReadSheet loads one named sheet from the workbook.
func ReadSheet(path, name string) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	t, err := readSheet(f, name)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", name, err)
	}
	return t, nil
}

func readSheet(f *excelize.File, name string) (*table.Table, error) {
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &table.Table{}, nil
	}

	hdr := rows[0]
	for i := range hdr {
		hdr[i] = strings.TrimSpace(hdr[i])
	}
	t := table.New(hdr...)

	for _, rec := range rows[1:] {
		row := make([]any, len(hdr))
		for i := range hdr {
			if i >= len(rec) {
				row[i] = nil // GetRows trims trailing empty cells
				continue
			}
			v := strings.TrimSpace(rec[i])
			if v == "" {
				row[i] = nil
			} else {
				row[i] = v
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteTable saves the table as a single-sheet .xlsx workbook.
func WriteTable(path string, t *table.Table, sheetName string) error {
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	f := excelize.NewFile()
	defer f.Close()

	const defaultSheet = "Sheet1"
	if sheetName != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
			return err
		}
	}

	hdr := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		hdr[i] = c
	}
	if err := setRow(f, sheetName, 1, hdr); err != nil {
		return err
	}
	for i, row := range t.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			if v == nil {
				cells[j] = ""
				continue
			}
			cells[j] = table.CellString(v)
		}
		if err := setRow(f, sheetName, i+2, cells); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func setRow(f *excelize.File, sheet string, rowNum int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &cells)
}
