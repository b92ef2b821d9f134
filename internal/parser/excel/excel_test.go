package excel

import (
	"path/filepath"
	"testing"

	"outreach/internal/table"
)

func TestWriteReadRoundTrip(t *testing.T) {
	src := table.New("Name", "MRN", "DOB")
	src.AddRow("Smith, Jane", "000123", "1990-05-06")
	src.AddRow("Doe, John", float64(4567), nil)

	path := filepath.Join(t.TempDir(), "roster.xlsx")
	if err := WriteTable(path, src, "Roster"); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}

	sheets, err := ReadWorkbook(path)
	if err != nil {
		t.Fatalf("ReadWorkbook: %v", err)
	}
	if len(sheets) != 1 || sheets[0].Name != "Roster" {
		t.Fatalf("sheets = %+v, want one sheet named Roster", sheets)
	}

	got := sheets[0].Table
	if got.Columns[0] != "Name" || got.Columns[2] != "DOB" {
		t.Fatalf("columns = %v", got.Columns)
	}
	if got.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", got.NumRows())
	}
	if v := got.Cell(0, "Name"); v != "Smith, Jane" {
		t.Fatalf("name = %v", v)
	}
	// Numbers come back as rendered strings.
	if v := got.Cell(1, "MRN"); v != "4567" {
		t.Fatalf("mrn = %v (%T), want \"4567\"", v, v)
	}
	// Empty cells come back missing.
	if v := got.Cell(1, "DOB"); v != nil {
		t.Fatalf("dob = %v, want nil", v)
	}
}

func TestReadSheet_Named(t *testing.T) {
	src := table.New("A", "B")
	src.AddRow("1", "2")

	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := WriteTable(path, src, "Data"); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}

	got, err := ReadSheet(path, "Data")
	if err != nil {
		t.Fatalf("ReadSheet: %v", err)
	}
	if got.Cell(0, "B") != "2" {
		t.Fatalf("cell = %v", got.Cell(0, "B"))
	}

	if _, err := ReadSheet(path, "Nope"); err == nil {
		t.Fatal("expected error for unknown sheet")
	}
}

func TestWriteTable_EmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	if err := WriteTable(path, table.New("Only", "Header"), ""); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}

	sheets, err := ReadWorkbook(path)
	if err != nil {
		t.Fatalf("ReadWorkbook: %v", err)
	}
	if sheets[0].Name != "Sheet1" {
		t.Fatalf("sheet name = %q", sheets[0].Name)
	}
	got := sheets[0].Table
	if got.NumRows() != 0 {
		t.Fatalf("rows = %d, want 0", got.NumRows())
	}
	if len(got.Columns) != 2 || got.Columns[0] != "Only" {
		t.Fatalf("columns = %v", got.Columns)
	}
}
