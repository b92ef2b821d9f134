// Package schema maps loosely-labeled registry exports onto the canonical
// patient-record fields.
//
// Matching is heuristic by design: real exports spell "Date of Birth" a dozen
// ways. The matcher is a two-phase scan over normalized labels — exact alias
// lookup first, substring fallback second — with explicitly ordered alias and
// column sequences so ties break the same way on every run.
package schema

// Field is a canonical patient-record field name.
type Field string

// Canonical fields. FieldOrder below is the fixed enumeration order used by
// inference; it is part of the behavioral contract, not a style choice.
const (
	FullName   Field = "full_name"
	FirstName  Field = "first_name"
	LastName   Field = "last_name"
	DOB        Field = "dob"
	MRN        Field = "mrn"
	Gender     Field = "gender"
	Phone      Field = "phone"
	Email      Field = "email"
	Language   Field = "language"
	HomePhone  Field = "home_phone"
	WorkPhone  Field = "work_phone"
	MiddleName Field = "middle_name"
)

// FieldOrder is the fixed field enumeration order for inference and scoring.
var FieldOrder = []Field{
	FullName, FirstName, LastName, DOB, MRN, Gender,
	Phone, Email, Language, HomePhone, WorkPhone, MiddleName,
}

// AliasTable maps each canonical field to its ordered known column-label
// aliases (lower-case, whitespace-collapsed). Alias position carries no
// priority; exactness does.
type AliasTable map[Field][]string

// DefaultAliases returns a fresh copy of the built-in alias table. Callers
// can mutate the copy freely; the defaults themselves never change.
func DefaultAliases() AliasTable {
	out := make(AliasTable, len(defaultAliases))
	for k, v := range defaultAliases {
		out[k] = append([]string(nil), v...)
	}
	return out
}

var defaultAliases = AliasTable{
	FullName:   {"name", "patient name", "member name", "full name"},
	FirstName:  {"first name", "given name", "patient first name", "first_name"},
	LastName:   {"last name", "surname", "family name", "patient last name", "last_name"},
	DOB:        {"dob", "date of birth", "birthdate", "birth date"},
	MRN:        {"mrn", "person id", "patient id", "medical record number", "chart number", "member id"},
	Gender:     {"sex at birth", "gender", "birth sex", "assigned sex at birth", "biological sex"},
	Phone:      {"phone", "cell", "cell phone", "mobile", "mobile phone", "primary phone", "person phone"},
	Email:      {"email", "email address", "person email", "patient email"},
	Language:   {"language", "preferred language", "person language", "primary language"},
	HomePhone:  {"home phone"},
	WorkPhone:  {"work phone"},
	MiddleName: {"middle name", "mid name", "middle initial"},
}

// MergeAliases unions the defaults with caller extras as an ordered union:
// default aliases first, then extras not already present, in caller order.
// Neither input is mutated.
func MergeAliases(extra AliasTable) AliasTable {
	merged := DefaultAliases()
	for field, aliases := range extra {
		seen := make(map[string]struct{}, len(merged[field]))
		for _, a := range merged[field] {
			seen[normalizeLabel(a)] = struct{}{}
		}
		for _, a := range aliases {
			n := normalizeLabel(a)
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			merged[field] = append(merged[field], a)
		}
	}
	return merged
}
