package schema

import (
	"errors"

	"outreach/internal/table"
)

// ErrNoSuitableSheet is returned by SelectBestSheet when the workbook has no
// sheets at all. A workbook whose sheets all score zero still selects the
// first sheet; required-field enforcement is the normalizer's job.
var ErrNoSuitableSheet = errors.New("no suitable sheet found (need DOB and MRN present)")

// SheetTable pairs a sheet name with its table. Slice order must follow the
// workbook; tie-breaks depend on it.
type SheetTable struct {
	Name  string
	Table *table.Table
}

// Selection is the result of SelectBestSheet.
type Selection struct {
	Name      string
	Table     *table.Table
	ColumnMap ColumnMap
	Score     int
}

// sheetScore rates how inferable the required and desirable patient fields
// are from one sheet's column map:
//
//	+3 dob resolved, +3 mrn resolved,
//	+2 first+last names resolved, else +1 full name resolved.
//
// The name branches are exclusive: full_name only counts when the split-name
// pair failed.
func sheetScore(m ColumnMap) int {
	score := 0
	if m.Resolved(DOB) {
		score += 3
	}
	if m.Resolved(MRN) {
		score += 3
	}
	if m.Resolved(FirstName) && m.Resolved(LastName) {
		score += 2
	} else if m.Resolved(FullName) {
		score++
	}
	return score
}

// SelectBestSheet infers a column map for every sheet and picks the highest
// scorer. Ties keep the earliest sheet: the comparison is strictly greater,
// never greater-or-equal.
func SelectBestSheet(sheets []SheetTable, extra AliasTable) (Selection, error) {
	best := Selection{Score: -1}
	for _, s := range sheets {
		cmap := InferColumnMap(s.Table, extra)
		if score := sheetScore(cmap); score > best.Score {
			best = Selection{Name: s.Name, Table: s.Table, ColumnMap: cmap, Score: score}
		}
	}
	if best.Score < 0 {
		return Selection{}, ErrNoSuitableSheet
	}
	return best, nil
}
