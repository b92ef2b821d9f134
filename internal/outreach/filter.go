// Package outreach selects patients due for proactive contact.
//
// Filter is a pure, single-pass, whole-table transform: given the same input
// table and the same "today", it always produces the same output. It never
// errors on missing columns — absent columns make individual steps no-ops or
// all-true/all-false per the rules below — and unparseable values degrade to
// missing instead of failing the run.
package outreach

import (
	"strings"
	"time"

	"outreach/internal/table"
)

// Column labels the filter keys on. These are the literal registry export
// headers, not inferred aliases.
const (
	colName          = "Name"
	colFirstName     = "First Name"
	colLastName      = "Last Name"
	colDateOfBirth   = "Date of Birth"
	colDOB           = "DOB"
	colDeceased      = "Deceased"
	colLanguage      = "Language"
	colMRN           = "MRN"
	colEncounterDate = "Most Recent Encounter Date"
	colApptDate      = "Next Appointment Date"
	colApptLocation  = "Next Appointment Location"
	colApptType      = "Next Appointment Type"
)

// apptLocationTokens and apptTypeTokens feed case-insensitive substring
// matches against the next-appointment columns. "Speciman" and "Chrio" are
// the literal spellings the upstream rules use; keep them verbatim.
var apptLocationTokens = []string{"Dental", "Bridge"}

var apptTypeTokens = []string{
	"ECM",
	"Medication Purchase",
	"Walk",
	"Bloodwork",
	"Care Management",
	"Lab Only",
	"Vaccination",
	"Speciman",
	"Injection",
	"Chrio",
	"Acu",
	"Podiatry",
}

// CutoffDays is the recency boundary: a patient needs outreach when their
// most recent encounter is at least this many days old.
const CutoffDays = 90

// Filter applies the outreach selection rules to t and returns a new table.
// The input table is never mutated.
//
// Steps, in fixed order:
//  1. Coerce the encounter and next-appointment date columns to dates. Both
//     columns are created (all missing) when absent, so the output always
//     carries them — and a source with no encounter dates filters to zero
//     rows at step 8, exactly like the system this replaces.
//  2. Upper-case Name and derive Last Name / First Name on the literal
//     "comma space" split.
//  3. Rename "Date of Birth" to "DOB" when no DOB column exists.
//  4. Keep only rows where Deceased is exactly "N".
//  5. Keep rows with no next appointment, or one at a Dental/Bridge
//     location, or one of the follow-up-friendly appointment types.
//  6. Recode the compound Spanish locale label.
//  7. Stringify MRN.
//  8. Keep rows whose most recent encounter is on or before today−90 days.
//  9. Drop exact duplicate rows, keeping first occurrences in order.
func Filter(t *table.Table, today time.Time) *table.Table {
	w := t.Clone()
	if w == nil {
		w = &table.Table{}
	}
	cutoff := table.DateOnly(today).AddDate(0, 0, -CutoffDays)

	coerceDateColumn(w, colEncounterDate)
	coerceDateColumn(w, colApptDate)

	splitName(w)

	if w.HasColumn(colDateOfBirth) && !w.HasColumn(colDOB) {
		w.RenameColumn(colDateOfBirth, colDOB)
	}

	if ix := w.ColumnIndex(colDeceased); ix >= 0 {
		w = w.FilterRows(func(row []any) bool {
			s, ok := row[ix].(string)
			return ok && s == "N"
		})
	}

	w = filterAppointments(w)

	if ix := w.ColumnIndex(colLanguage); ix >= 0 {
		for _, row := range w.Rows {
			if s, ok := row[ix].(string); ok && s == "Spanish; Castilian" {
				row[ix] = "Spanish"
			}
		}
	}

	if ix := w.ColumnIndex(colMRN); ix >= 0 {
		for _, row := range w.Rows {
			if row[ix] != nil {
				row[ix] = table.CellString(row[ix])
			}
		}
	}

	if ix := w.ColumnIndex(colEncounterDate); ix >= 0 {
		w = w.FilterRows(func(row []any) bool {
			d, ok := row[ix].(time.Time)
			return ok && !d.After(cutoff)
		})
	}

	return dropDuplicateRows(w)
}

// coerceDateColumn converts every cell of the named column to a date-only
// time.Time, degrading unparseable cells to missing. The column is created
// all-missing when absent.
func coerceDateColumn(t *table.Table, label string) {
	ix := t.ColumnIndex(label)
	if ix < 0 {
		t.AddColumn(label, nil)
		return
	}
	for _, row := range t.Rows {
		if d, ok := table.ParseDate(row[ix]); ok {
			row[ix] = d
		} else {
			row[ix] = nil
		}
	}
}

// splitName upper-cases the Name column and derives Last Name / First Name.
// The split is on the literal ", " once: two parts map to last/first, a
// single part becomes the last name with first missing. Missing names stay
// missing and derive nothing.
func splitName(t *table.Table) {
	ix := t.ColumnIndex(colName)
	if ix < 0 {
		return
	}

	lasts := make([]any, len(t.Rows))
	firsts := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		s, ok := row[ix].(string)
		if !ok {
			continue
		}
		s = strings.ToUpper(s)
		row[ix] = s

		parts := strings.SplitN(s, ", ", 2)
		lasts[i] = parts[0]
		if len(parts) == 2 {
			firsts[i] = parts[1]
		}
	}
	_ = t.SetColumn(colLastName, lasts)
	_ = t.SetColumn(colFirstName, firsts)
}

// filterAppointments keeps rows satisfying any of:
//
//	date_na:    next appointment date missing
//	loc_match:  next appointment location contains a location token
//	type_match: next appointment type contains a type token
//
// An absent location/type column makes its predicate false for every row,
// not true; date_na on an absent column is all-true (the column is created
// beforehand, which amounts to the same thing).
func filterAppointments(t *table.Table) *table.Table {
	dateIx := t.ColumnIndex(colApptDate)
	locIx := t.ColumnIndex(colApptLocation)
	typeIx := t.ColumnIndex(colApptType)

	return t.FilterRows(func(row []any) bool {
		if dateIx < 0 || table.IsMissing(row[dateIx]) {
			return true
		}
		if locIx >= 0 && containsAnyFold(row[locIx], apptLocationTokens) {
			return true
		}
		if typeIx >= 0 && containsAnyFold(row[typeIx], apptTypeTokens) {
			return true
		}
		return false
	})
}

func containsAnyFold(v any, tokens []string) bool {
	if v == nil {
		return false
	}
	s := strings.ToLower(table.CellString(v))
	for _, tok := range tokens {
		if strings.Contains(s, strings.ToLower(tok)) {
			return true
		}
	}
	return false
}

// dropDuplicateRows removes rows whose full-row fingerprint has been seen,
// keeping the first occurrence and preserving survivor order. Running the
// whole Filter a second time over its own output removes nothing further.
func dropDuplicateRows(t *table.Table) *table.Table {
	seen := make(map[string]struct{}, len(t.Rows))
	return t.FilterRows(func(row []any) bool {
		fp := rowFingerprint(row)
		if _, dup := seen[fp]; dup {
			return false
		}
		seen[fp] = struct{}{}
		return true
	})
}
