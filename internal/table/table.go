// Package table defines the in-memory tabular model shared by every pipeline.
//
// A Table is a fixed column order plus positional rows. Cells are `any` with
// nil meaning "missing"; callers that need "present but empty" store "".
// Pipelines operate copy-on-write: they Clone() their input and never mutate
// a table a caller still holds.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Table is an ordered collection of named columns and positional rows.
//
// Invariants:
//   - len(row) == len(Columns) for every row.
//   - Column order is significant and preserved by every transform.
type Table struct {
	Columns []string
	Rows    [][]any
}

// New returns an empty table with the given column order.
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// ColumnIndex returns the position of the column with the exact label, or -1.
func (t *Table) ColumnIndex(label string) int {
	for i, c := range t.Columns {
		if c == label {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the exact label exists.
func (t *Table) HasColumn(label string) bool { return t.ColumnIndex(label) >= 0 }

// NumRows returns the row count. Safe on nil tables.
func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table is nil or has no rows.
// A table with columns but zero rows is still empty; inference and
// normalization treat it as having nothing to work with.
func (t *Table) Empty() bool { return t == nil || len(t.Rows) == 0 }

// Clone returns a deep copy: new column slice, new row slices.
// Cell values themselves are shared (cells are treated as immutable scalars).
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]any, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append([]any(nil), r...)
	}
	return out
}

// AddRow appends a row, padding or truncating to the column count.
func (t *Table) AddRow(cells ...any) {
	row := make([]any, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// AddColumn appends a column filled with fill. If the label already exists
// the existing column is overwritten with fill instead.
func (t *Table) AddColumn(label string, fill any) {
	if ix := t.ColumnIndex(label); ix >= 0 {
		for _, r := range t.Rows {
			r[ix] = fill
		}
		return
	}
	t.Columns = append(t.Columns, label)
	for i, r := range t.Rows {
		t.Rows[i] = append(r, fill)
	}
}

// SetColumn writes values into the named column, creating it if absent.
// len(values) must equal NumRows.
func (t *Table) SetColumn(label string, values []any) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("table: set column %q: %d values for %d rows", label, len(values), len(t.Rows))
	}
	ix := t.ColumnIndex(label)
	if ix < 0 {
		t.AddColumn(label, nil)
		ix = len(t.Columns) - 1
	}
	for i := range t.Rows {
		t.Rows[i][ix] = values[i]
	}
	return nil
}

// RenameColumn renames from → to. No-op when from is absent.
func (t *Table) RenameColumn(from, to string) {
	if ix := t.ColumnIndex(from); ix >= 0 {
		t.Columns[ix] = to
	}
}

// Cell returns the value at (row, column label); nil when either is missing.
func (t *Table) Cell(row int, label string) any {
	ix := t.ColumnIndex(label)
	if ix < 0 || row < 0 || row >= len(t.Rows) {
		return nil
	}
	return t.Rows[row][ix]
}

// FilterRows returns a new table keeping rows where keep returns true,
// preserving relative order. Rows are shared with the receiver; callers on
// the copy-on-write path should have Cloned already.
func (t *Table) FilterRows(keep func(row []any) bool) *Table {
	out := &Table{Columns: t.Columns, Rows: make([][]any, 0, len(t.Rows))}
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// CellString renders a cell for output. Missing renders as "".
//
// Numeric cells avoid scientific notation and trailing ".0": an MRN loaded
// as 1234.0 from a workbook must come back as "1234", and a string MRN with
// leading zeros must pass through untouched.
func CellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return CellString(float64(x))
	case time.Time:
		return x.Format("2006-01-02")
	default:
		return fmt.Sprint(x)
	}
}

// IsMissing reports whether a cell counts as missing: nil, or a string that
// is empty after trimming. The source data does not distinguish blank from
// absent, so neither do we.
func IsMissing(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
