package artera

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"outreach/internal/schema"
	"outreach/internal/table"
)

func patientTable() *table.Table {
	t := table.New("Last Name", "First Name", "DOB", "MRN", "Preferred Language", "Sex at Birth", "Cell Phone", "Email")
	t.AddRow("Smith", "Jane", "1990-05-06", "000123", "Spanish; Castilian", "F", "805-555-0100", "jane@example.com")
	t.AddRow("Doe", "John", "12/31/1985", float64(4567), "English", "M", nil, nil)
	return t
}

func TestBuildUpload_ColumnsAndRowOrder(t *testing.T) {
	up, err := BuildUpload(patientTable(), nil, DefaultLanguageRecode())
	if err != nil {
		t.Fatalf("BuildUpload: %v", err)
	}
	if !reflect.DeepEqual(up.Columns, UploadColumns) {
		t.Fatalf("columns = %v, want %v", up.Columns, UploadColumns)
	}
	want := [][]any{
		{"Smith", nil, "Jane", "805-555-0100", nil, nil, "Spanish", "19900506", "F", "000123", "jane@example.com"},
		{"Doe", nil, "John", nil, nil, nil, "English", "19851231", "M", "4567", nil},
	}
	if !reflect.DeepEqual(up.Rows, want) {
		t.Fatalf("rows = %v, want %v", up.Rows, want)
	}
}

func TestBuildUpload_MissingRequiredFields(t *testing.T) {
	src := table.New("First Name", "Last Name")
	src.AddRow("Jane", "Smith")

	_, err := BuildUpload(src, nil, nil)
	var mfe *MissingFieldError
	if !errors.As(err, &mfe) {
		t.Fatalf("err = %v, want MissingFieldError", err)
	}
	if !reflect.DeepEqual(mfe.Fields, []schema.Field{schema.DOB, schema.MRN}) {
		t.Fatalf("missing fields = %v", mfe.Fields)
	}
	if !strings.Contains(err.Error(), "dob, mrn") {
		t.Fatalf("error %q does not list the missing fields", err)
	}
	if !strings.Contains(err.Error(), "first_name->First Name") {
		t.Fatalf("error %q does not carry the inferred map", err)
	}
}

func TestBuildUpload_NoNameSource(t *testing.T) {
	src := table.New("DOB", "MRN")
	src.AddRow("1990-05-06", "1")

	_, err := BuildUpload(src, nil, nil)
	var mfe *MissingFieldError
	if !errors.As(err, &mfe) {
		t.Fatalf("err = %v, want MissingFieldError", err)
	}
	if !reflect.DeepEqual(mfe.Fields, []schema.Field{schema.FullName}) {
		t.Fatalf("missing fields = %v", mfe.Fields)
	}
}

func TestBuildUpload_DanglingColumnMap(t *testing.T) {
	// A caller-supplied map can name columns the table does not have; that is
	// an error, never an index panic.
	src := table.New("A")
	src.AddRow("x")

	_, err := BuildUpload(src, schema.ColumnMap{
		schema.DOB:      "Birth Date Col",
		schema.MRN:      "Chart",
		schema.FullName: "Pt Name",
	}, nil)
	var mfe *MissingFieldError
	if !errors.As(err, &mfe) {
		t.Fatalf("err = %v, want MissingFieldError", err)
	}
	if !reflect.DeepEqual(mfe.Fields, []schema.Field{schema.DOB, schema.MRN, schema.FullName}) {
		t.Fatalf("dangling fields = %v", mfe.Fields)
	}

	// Same for a dangling half of a split-name mapping.
	src2 := table.New("DOB", "MRN", "First Name")
	src2.AddRow("1990-05-06", "1", "Jane")
	_, err = BuildUpload(src2, schema.ColumnMap{
		schema.DOB:       "DOB",
		schema.MRN:       "MRN",
		schema.FirstName: "First Name",
		schema.LastName:  "Surname Col",
	}, nil)
	if !errors.As(err, &mfe) {
		t.Fatalf("err = %v, want MissingFieldError", err)
	}
	if !reflect.DeepEqual(mfe.Fields, []schema.Field{schema.LastName}) {
		t.Fatalf("dangling fields = %v", mfe.Fields)
	}
}

func TestBuildUpload_EmptyTable(t *testing.T) {
	if _, err := BuildUpload(table.New("DOB", "MRN", "Name"), nil, nil); err == nil {
		t.Fatal("expected error for table with no rows")
	}
	if _, err := BuildUpload(nil, nil, nil); err == nil {
		t.Fatal("expected error for nil table")
	}
}

func TestBuildUpload_FullNameFallback(t *testing.T) {
	src := table.New("Name", "DOB", "MRN")
	src.AddRow("Smith, Jane", "1990-05-06", "1")
	src.AddRow("Mary Jane Watson", "1991-06-07", "2")

	up, err := BuildUpload(src, nil, nil)
	if err != nil {
		t.Fatalf("BuildUpload: %v", err)
	}
	if up.Rows[0][0] != "Smith" || up.Rows[0][2] != "Jane" {
		t.Fatalf("row 0 last/first = %v/%v", up.Rows[0][0], up.Rows[0][2])
	}
	if up.Rows[1][0] != "Watson" || up.Rows[1][2] != "Mary Jane" {
		t.Fatalf("row 1 last/first = %v/%v", up.Rows[1][0], up.Rows[1][2])
	}
}

func TestBuildUpload_DOBFormats(t *testing.T) {
	src := table.New("Name", "DOB", "MRN")
	src.AddRow("A, B", "1990-05-06", "1")
	src.AddRow("C, D", "5/6/1990", "2")
	src.AddRow("E, F", time.Date(1990, 5, 6, 13, 0, 0, 0, time.UTC), "3")
	src.AddRow("G, H", "not a date", "4")
	src.AddRow("I, J", nil, "5")

	up, err := BuildUpload(src, nil, nil)
	if err != nil {
		t.Fatalf("BuildUpload: %v", err)
	}
	dobIx := up.ColumnIndex("dob")
	for i, want := range []any{"19900506", "19900506", "19900506", nil, nil} {
		if got := up.Rows[i][dobIx]; got != want {
			t.Fatalf("row %d dob = %v, want %v", i, got, want)
		}
	}
}

func TestBuildUpload_LanguageRecode(t *testing.T) {
	src := table.New("Name", "DOB", "MRN", "Language")
	src.AddRow("A, B", "1990-05-06", "1", "Spanish; Castilian")
	src.AddRow("C, D", "1990-05-06", "2", "Mixteco")
	src.AddRow("E, F", "1990-05-06", "3", nil)

	up, err := BuildUpload(src, nil, DefaultLanguageRecode())
	if err != nil {
		t.Fatalf("BuildUpload: %v", err)
	}
	langIx := up.ColumnIndex("personPrefLanguage")
	if got := up.Rows[0][langIx]; got != "Spanish" {
		t.Fatalf("recoded language = %v, want Spanish", got)
	}
	if got := up.Rows[1][langIx]; got != "Mixteco" {
		t.Fatalf("unlisted language = %v, want Mixteco", got)
	}
	if got := up.Rows[2][langIx]; got != nil {
		t.Fatalf("missing language = %v, want nil", got)
	}
}

func TestBuildUpload_DoesNotMutateInput(t *testing.T) {
	src := patientTable()
	if _, err := BuildUpload(src, nil, DefaultLanguageRecode()); err != nil {
		t.Fatalf("BuildUpload: %v", err)
	}
	if got := src.Cell(0, "Preferred Language"); got != "Spanish; Castilian" {
		t.Fatalf("input mutated: language = %v", got)
	}
	if got := src.Cell(1, "MRN"); got != float64(4567) {
		t.Fatalf("input mutated: mrn = %v", got)
	}
}

func TestBuildUpload_Idempotent(t *testing.T) {
	first, err := BuildUpload(patientTable(), nil, DefaultLanguageRecode())
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}

	// The canonical output labels do not all self-infer, so the second pass
	// maps them explicitly.
	canonical := schema.ColumnMap{
		schema.FirstName: "personFirstName",
		schema.LastName:  "personLastName",
		schema.DOB:       "dob",
		schema.MRN:       "personID",
		schema.Language:  "personPrefLanguage",
		schema.Gender:    "gender",
		schema.Phone:     "personCellPhone",
		schema.HomePhone: "personHomePhone",
		schema.WorkPhone: "personWorkPhone",
		schema.Email:     "PersonEmail",
	}
	second, err := BuildUpload(first, canonical, DefaultLanguageRecode())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("second pass drifted:\nfirst:  %v\nsecond: %v", first.Rows, second.Rows)
	}
}

func TestSplitFullName(t *testing.T) {
	cases := []struct {
		in          string
		first, last string
	}{
		{"Smith, Jane", "Jane", "Smith"},
		{"Smith,  Jane", "Jane", "Smith"},
		{"Smith,Jane", "Jane", "Smith"},
		{"Garcia Lopez, Maria Elena", "Maria Elena", "Garcia Lopez"},
		{"Jane Smith", "Jane", "Smith"},
		{"Mary Jane Smith", "Mary Jane", "Smith"},
		{"Cher", "", "Cher"},
		{"  ", "", ""},
		{"", "", ""},
		{"Smith,", "", "Smith"},
	}
	for _, c := range cases {
		first, last := SplitFullName(c.in)
		if first != c.first || last != c.last {
			t.Fatalf("SplitFullName(%q) = (%q, %q), want (%q, %q)",
				c.in, first, last, c.first, c.last)
		}
	}
}
