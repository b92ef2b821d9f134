package schema

import (
	"errors"
	"testing"
)

func TestSelectBestSheet_PrefersResolvableRequiredFields(t *testing.T) {
	summary := oneRowTable("Total Visits", "Clinic")            // score 0
	roster := oneRowTable("DOB", "MRN", "First Name", "Last Name") // score 8

	sel, err := SelectBestSheet([]SheetTable{
		{Name: "Summary", Table: summary},
		{Name: "Roster", Table: roster},
	}, nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.Name != "Roster" {
		t.Fatalf("selected %q, want Roster", sel.Name)
	}
	if sel.Score != 8 {
		t.Fatalf("score = %d, want 8", sel.Score)
	}
}

func TestSelectBestSheet_FullNameScoresBelowSplitName(t *testing.T) {
	split := oneRowTable("dob", "mrn", "first name", "last name")
	full := oneRowTable("dob", "mrn", "patient name")

	if got := sheetScore(InferColumnMap(split, nil)); got != 8 {
		t.Fatalf("split-name score = %d, want 8", got)
	}
	if got := sheetScore(InferColumnMap(full, nil)); got != 7 {
		t.Fatalf("full-name score = %d, want 7", got)
	}
}

func TestSelectBestSheet_NameBranchesAreExclusive(t *testing.T) {
	// When first+last resolve, full_name must not add another point.
	all := oneRowTable("dob", "mrn", "first name", "last name", "patient name")
	if got := sheetScore(InferColumnMap(all, nil)); got != 8 {
		t.Fatalf("score = %d, want 8 (name branches exclusive)", got)
	}
}

func TestSelectBestSheet_TieKeepsEarliestSheet(t *testing.T) {
	a := oneRowTable("dob", "mrn")
	b := oneRowTable("dob", "mrn")

	sel, err := SelectBestSheet([]SheetTable{
		{Name: "First", Table: a},
		{Name: "Second", Table: b},
	}, nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.Name != "First" {
		t.Fatalf("tie selected %q, want First", sel.Name)
	}
}

func TestSelectBestSheet_ZeroScoringSheetStillWins(t *testing.T) {
	// A workbook with only unusable sheets still selects one; required-field
	// enforcement happens in the normalizer, not here.
	sel, err := SelectBestSheet([]SheetTable{
		{Name: "Only", Table: oneRowTable("Notes")},
	}, nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.Name != "Only" || sel.Score != 0 {
		t.Fatalf("sel = %+v", sel)
	}
}

func TestSelectBestSheet_EmptyWorkbook(t *testing.T) {
	_, err := SelectBestSheet(nil, nil)
	if !errors.Is(err, ErrNoSuitableSheet) {
		t.Fatalf("err = %v, want ErrNoSuitableSheet", err)
	}
}
