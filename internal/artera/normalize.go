// Package artera normalizes patient tables into the Artera SFTP upload
// schema and exports them as dated CSV files.
//
// The upload schema is a downstream ingestion contract: column names, column
// order, and the 8-digit dob format must not drift.
package artera

import (
	"fmt"
	"sort"
	"strings"

	"outreach/internal/schema"
	"outreach/internal/table"
)

// UploadColumns is the exact output column order required by the vendor's
// SFTP ingestion. Do not reorder.
var UploadColumns = []string{
	"personLastName",
	"personMidName",
	"personFirstName",
	"personCellPhone",
	"personHomePhone",
	"personWorkPhone",
	"personPrefLanguage",
	"dob",
	"gender",
	"personID",
	"PersonEmail",
}

// DefaultLanguageRecode is the standing recode applied to the preferred
// language column: the registry emits the compound locale label, the vendor
// wants the plain one.
func DefaultLanguageRecode() map[string]string {
	return map[string]string{"Spanish; Castilian": "Spanish"}
}

// MissingFieldError reports required field mappings that could not be
// resolved before normalization. The full inferred column map rides along
// for diagnosis; missing requirements are never silently defaulted.
type MissingFieldError struct {
	Fields    []schema.Field
	ColumnMap schema.ColumnMap
}

func (e *MissingFieldError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
	}
	return fmt.Sprintf("missing required column mapping (%s); inferred map: %s",
		strings.Join(names, ", "), formatColumnMap(e.ColumnMap))
}

func formatColumnMap(m schema.ColumnMap) string {
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + "->" + m[schema.Field(f)]
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// BuildUpload normalizes t into the Artera upload schema.
//
// columnMap may be nil, in which case it is inferred from t. languageRecode
// may be nil (no recoding). Requirements, checked before any row work:
//   - t must have at least one row;
//   - dob and mrn must be mapped;
//   - either (first_name and last_name) or full_name must be mapped;
//   - every required mapping must name a column t actually has. Caller-supplied
//     maps can dangle; a dangling required label is a MissingFieldError, not a
//     crash.
//
// Row order is preserved and the input table is never mutated. Normalizing
// an already-canonical table again produces identical output.
func BuildUpload(t *table.Table, columnMap schema.ColumnMap, languageRecode map[string]string) (*table.Table, error) {
	if t.Empty() {
		return nil, fmt.Errorf("artera: input table is empty")
	}
	if columnMap == nil {
		columnMap = schema.InferColumnMap(t, nil)
	}

	var missing []schema.Field
	if !columnMap.Resolved(schema.DOB) {
		missing = append(missing, schema.DOB)
	}
	if !columnMap.Resolved(schema.MRN) {
		missing = append(missing, schema.MRN)
	}
	haveSplitName := columnMap.Resolved(schema.FirstName) && columnMap.Resolved(schema.LastName)
	if !haveSplitName && !columnMap.Resolved(schema.FullName) {
		missing = append(missing, schema.FullName)
	}
	if len(missing) > 0 {
		return nil, &MissingFieldError{Fields: missing, ColumnMap: columnMap}
	}

	src := func(f schema.Field) int {
		if !columnMap.Resolved(f) {
			return -1
		}
		return t.ColumnIndex(columnMap.Get(f))
	}

	dobIx := src(schema.DOB)
	mrnIx := src(schema.MRN)
	firstIx := src(schema.FirstName)
	lastIx := src(schema.LastName)
	fullIx := src(schema.FullName)

	var dangling []schema.Field
	if dobIx < 0 {
		dangling = append(dangling, schema.DOB)
	}
	if mrnIx < 0 {
		dangling = append(dangling, schema.MRN)
	}
	if haveSplitName {
		if firstIx < 0 {
			dangling = append(dangling, schema.FirstName)
		}
		if lastIx < 0 {
			dangling = append(dangling, schema.LastName)
		}
	} else if fullIx < 0 {
		dangling = append(dangling, schema.FullName)
	}
	if len(dangling) > 0 {
		return nil, &MissingFieldError{Fields: dangling, ColumnMap: columnMap}
	}


	midIx := src(schema.MiddleName)
	phoneIx := src(schema.Phone)
	homeIx := src(schema.HomePhone)
	workIx := src(schema.WorkPhone)
	langIx := src(schema.Language)
	genderIx := src(schema.Gender)
	emailIx := src(schema.Email)

	out := table.New(UploadColumns...)
	out.Rows = make([][]any, 0, len(t.Rows))

	for _, row := range t.Rows {
		var first, last any
		if haveSplitName {
			first, last = row[firstIx], row[lastIx]
		} else {
			f, l := SplitFullName(table.CellString(row[fullIx]))
			first, last = f, l
		}

		lang := pick(row, langIx)
		if languageRecode != nil && langIx >= 0 {
			if repl, ok := languageRecode[table.CellString(lang)]; ok && lang != nil {
				lang = repl
			}
		}

		out.Rows = append(out.Rows, []any{
			last,
			pick(row, midIx),
			first,
			pick(row, phoneIx),
			pick(row, homeIx),
			pick(row, workIx),
			lang,
			dobString(row[dobIx]),
			pick(row, genderIx),
			table.CellString(row[mrnIx]),
			pick(row, emailIx),
		})
	}
	return out, nil
}

func pick(row []any, ix int) any {
	if ix < 0 {
		return nil
	}
	return row[ix]
}

// dobString renders a date cell as the vendor's 8-digit YYYYMMDD form.
// Unparseable dates degrade to missing, never to a default date.
func dobString(v any) any {
	d, ok := table.ParseDate(v)
	if !ok {
		return nil
	}
	return d.Format("20060102")
}

// SplitFullName splits a combined name into (first, last).
//
// The "Last, First" form wins when a comma is present (split at the first
// comma only, whitespace after the comma dropped). Without a comma the value
// is whitespace-tokenized: the final token is the last name, everything
// before it joined by single spaces is the first name. Empty input yields
// empty strings, not missing.
func SplitFullName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	if i := strings.Index(name, ","); i >= 0 {
		return strings.TrimLeft(name[i+1:], " \t"), name[:i]
	}
	toks := strings.Fields(name)
	if len(toks) == 1 {
		return "", toks[0]
	}
	return strings.Join(toks[:len(toks)-1], " "), toks[len(toks)-1]
}
